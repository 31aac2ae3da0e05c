package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/app/repository"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/media"
)

// Sweeper runs one subscription expiry sweep.
type Sweeper interface {
	Run(ctx context.Context) (int64, error)
}

// Controller holds the dependencies of the API handlers.
type Controller struct {
	Users      repository.UserRepository
	Media      repository.MediaRepository
	Billing    *billing.Service
	Processor  *billing.Processor
	Sweeper    Sweeper
	MediaStore media.Store
	Now        billing.Clock

	validate *validator.Validate
}

// New creates a controller. A nil clock uses time.Now.
func New(c Controller) *Controller {
	if c.Now == nil {
		c.Now = time.Now
	}
	c.validate = validator.New()
	return &c
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// respondError maps domain errors to HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, billing.ErrValidation), errors.Is(err, models.ErrInvalidBilling):
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, billing.ErrSubscriberNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, billing.ErrPlanNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Plan not found")
	case errors.Is(err, repository.ErrMediaNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Media not found")
	case errors.Is(err, billing.ErrNoSubscription):
		return jsonError(c, fiber.StatusConflict, "no_subscription", "User has no paid subscription")
	case errors.Is(err, billing.ErrUnknownPlanCode):
		return jsonError(c, fiber.StatusServiceUnavailable, "plan_unavailable", "No provider plan is configured for this tier")
	case errors.Is(err, billing.ErrGatewayFailure):
		log.Errorf("[API] Payment provider failure: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "Payment provider request failed")
	default:
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Internal server error")
	}
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
