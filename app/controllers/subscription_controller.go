package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/usercontext"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// HandleGetSubscription returns the derived subscription status of the caller.
func (ctl *Controller) HandleGetSubscription(c *fiber.Ctx) error {
	view, err := ctl.Billing.Status(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// HandleSubscribe starts a paid subscription for the caller.
// Request: JSON { "plan": "monthly" | "yearly" }
func (ctl *Controller) HandleSubscribe(c *fiber.Ctx) error {
	var req struct {
		Plan string `json:"plan" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}
	if err := ctl.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "plan is required")
	}
	tier, err := models.ParsePlan(req.Plan)
	if err != nil {
		return respondError(c, err)
	}

	user, err := ctl.Billing.Subscribe(c.UserContext(), usercontext.GetUserID(c), tier)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(billing.NewSubscriberView(user, ctl.Now()))
}

// HandleCancelSubscription disables the provider subscription of user :id.
// Only the owner or an admin may cancel.
func (ctl *Controller) HandleCancelSubscription(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid user id")
	}
	caller := usercontext.GetUserContext(c)
	if caller.UserID != id && !caller.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Not allowed to cancel this subscription")
	}

	user, err := ctl.Billing.Cancel(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(billing.NewSubscriberView(user, ctl.Now()))
}

// HandleReactivateSubscription lets an admin set a user's billing fields directly.
func (ctl *Controller) HandleReactivateSubscription(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid user id")
	}
	var in billing.ReactivateInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}

	user, err := ctl.Billing.Reactivate(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	log.Infof("[Admin] User %d reactivated subscription of user %d", usercontext.GetUserID(c), id)
	return c.JSON(billing.NewSubscriberView(user, ctl.Now()))
}

// HandleListSubscribers returns a page of users with their derived status.
// Query: page (1-based), per_page
func (ctl *Controller) HandleListSubscribers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultPageSize)
	if perPage < 1 || perPage > maxPageSize {
		perPage = defaultPageSize
	}

	ctx := c.UserContext()
	total, err := ctl.Users.Count(ctx)
	if err != nil {
		return respondError(c, err)
	}
	// one past the last page keeps the offset in range for any page value
	if lastPage := (total+int64(perPage)-1)/int64(perPage) + 1; int64(page) > lastPage {
		page = int(lastPage)
	}
	users, err := ctl.Users.ListSubscribers(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return respondError(c, err)
	}

	now := ctl.Now()
	items := make([]billing.SubscriberView, 0, len(users))
	for i := range users {
		items = append(items, billing.NewSubscriberView(&users[i], now))
	}

	return c.JSON(fiber.Map{
		"items":    items,
		"page":     page,
		"per_page": perPage,
		"total":    total,
	})
}

// HandleRunSweep runs the expiry sweep immediately.
func (ctl *Controller) HandleRunSweep(c *fiber.Ctx) error {
	changed, err := ctl.Sweeper.Run(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"downgraded": changed})
}
