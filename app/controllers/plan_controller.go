package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/cache"
)

const (
	plansCacheKey = "plans:active"
	plansCacheTTL = 10 * time.Minute
)

// HandleListPlans returns the active plan catalog, served from the cache when possible.
func (ctl *Controller) HandleListPlans(c *fiber.Ctx) error {
	var plans []models.Plan
	err := cache.GetJSON(plansCacheKey, &plans)
	if err == nil {
		return c.JSON(fiber.Map{"plans": plans})
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warnf("[Cache] Reading %s failed: %v", plansCacheKey, err)
	}

	plans, err = ctl.Billing.ListPlans(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	if err := cache.SetJSON(plansCacheKey, plans, plansCacheTTL); err != nil {
		log.Warnf("[Cache] Writing %s failed: %v", plansCacheKey, err)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// HandleCreatePlan adds a plan to the catalog.
func (ctl *Controller) HandleCreatePlan(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Tier        string `json:"tier"`
		AmountMinor int64  `json:"amount_minor"`
		Currency    string `json:"currency"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}

	plan := &models.Plan{
		Name:        req.Name,
		Description: req.Description,
		Tier:        models.SubscriptionPlan(req.Tier),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
	}
	if err := ctl.Billing.CreatePlan(c.UserContext(), plan); err != nil {
		return respondError(c, err)
	}
	invalidatePlans()
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// HandleUpdatePlan changes name, description or amount of plan :id.
func (ctl *Controller) HandleUpdatePlan(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid plan id")
	}
	var in billing.PlanUpdate
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}

	plan, err := ctl.Billing.UpdatePlan(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	invalidatePlans()
	return c.JSON(plan)
}

// HandleDeletePlan deactivates plan :id.
func (ctl *Controller) HandleDeletePlan(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid plan id")
	}
	if err := ctl.Billing.DeactivatePlan(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	invalidatePlans()
	return c.SendStatus(fiber.StatusNoContent)
}

func invalidatePlans() {
	if err := cache.Delete(plansCacheKey); err != nil {
		log.Warnf("[Cache] Invalidating %s failed: %v", plansCacheKey, err)
	}
}
