package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleAuthRegister creates a free account and returns its API key once.
func (ctl *Controller) HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}
	if err := ctl.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", validationMessage(err))
	}

	ctx := c.UserContext()
	_, err := ctl.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	case !errors.Is(err, billing.ErrSubscriberNotFound):
		return respondError(c, err)
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	rawKey, err := user.IssueAPIKey()
	if err != nil {
		return respondError(c, err)
	}
	if err := ctl.Users.Create(ctx, user); err != nil {
		return respondError(c, err)
	}
	log.Infof("[Auth] Registered user %d", user.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":    billing.NewSubscriberView(user, ctl.Now()),
		"api_key": rawKey,
	})
}

// HandleAuthLogin checks the credentials and rotates the API key.
func (ctl *Controller) HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}
	if err := ctl.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", validationMessage(err))
	}

	ctx := c.UserContext()
	user, err := ctl.Users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, billing.ErrSubscriberNotFound) {
		return respondError(c, err)
	}
	// notice: the response does not tell which part was wrong
	if user == nil || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
	}
	if !user.IsVisible() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "User inactive")
	}

	rawKey, err := user.IssueAPIKey()
	if err != nil {
		return respondError(c, err)
	}
	now := ctl.Now()
	user.LastLoginAt = &now
	if err := ctl.Users.Update(ctx, user); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"api_key": rawKey})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
