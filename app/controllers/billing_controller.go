package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "X-Paystack-Signature"

// HandleBillingWebhook verifies a provider delivery and acknowledges it
// before the event is applied.
func (ctl *Controller) HandleBillingWebhook(c *fiber.Ctx) error {
	err := ctl.Processor.Receive(c.Body(), c.Get(SignatureHeader))
	switch {
	case errors.Is(err, billing.ErrWebhookSecretMissing):
		log.Error("[Billing] Webhook received but PAYSTACK_WEBHOOK_SECRET is not configured")
		return jsonError(c, fiber.StatusInternalServerError, "webhook_not_configured", "Webhook secret is not configured")
	case errors.Is(err, billing.ErrInvalidSignature):
		log.Warnf("[Billing] Rejected webhook with invalid signature from %s", c.IP())
		return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "Invalid webhook signature")
	case errors.Is(err, billing.ErrProcessorClosed):
		return jsonError(c, fiber.StatusServiceUnavailable, "shutting_down", "Server is shutting down, retry later")
	case err != nil:
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
