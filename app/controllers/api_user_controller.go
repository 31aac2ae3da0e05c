package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/entitlements"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/usercontext"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/utils"
)

// HandleGetUserAccount returns account information for the authenticated user.
func (ctl *Controller) HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	ctx := c.UserContext()
	account, err := ctl.Users.GetByID(ctx, userCtx.UserID)
	if err != nil {
		return respondError(c, err)
	}
	items, err := ctl.Media.ListByUserID(ctx, account.ID)
	if err != nil {
		return respondError(c, err)
	}
	mediaCount := int64(len(items))
	avatarURL := utils.GravatarURL(account.Email, 200)
	// items are newest first
	for i := range items {
		if items[i].Kind == models.MediaKindAvatar {
			avatarURL = ctl.MediaStore.URL(items[i].ObjectKey)
			break
		}
	}

	now := ctl.Now()
	subscription := billing.NewSubscriberView(account, now)
	limits := entitlements.ForStatus(subscription.Status)

	response := fiber.Map{
		"id":            account.ID,
		"username":      account.Name,
		"email":         account.Email,
		"avatar_url":    avatarURL,
		"position":      account.Position,
		"club":          account.Club,
		"nationality":   account.Nationality,
		"is_admin":      account.IsAdmin(),
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
		"subscription": fiber.Map{
			"plan":                     subscription.Plan,
			"status":                   subscription.Status,
			"renewal_date":             formatTimePtr(subscription.RenewalDate),
			"provider_subscription_id": subscription.ProviderSubscriptionID,
		},
		"limits": limits,
		"stats": fiber.Map{
			"media": fiber.Map{
				"count":     mediaCount,
				"remaining": max(limits.MaxMediaItems-mediaCount, 0),
			},
		},
	}

	return c.JSON(response)
}
