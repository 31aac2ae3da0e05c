package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/PlayerFolio/app/controllers"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/middleware"
)

const webhookPath = "/api/v1/billing/webhook"

type ApiRouter struct {
	cfg Config
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	ctl := h.cfg.Controller

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:          60,
		Expiration:   time.Minute,
		KeyGenerator: controllers.ClientIP,
		Storage:      h.cfg.LimiterStorage,
		// provider retries must never be throttled
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), webhookPath)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "Too many requests"})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ping": "pong"})
	})
	v1.Post("/billing/webhook", ctl.HandleBillingWebhook)
	v1.Post("/auth/register", ctl.HandleAuthRegister)
	v1.Post("/auth/login", ctl.HandleAuthLogin)
	v1.Get("/plans", ctl.HandleListPlans)

	auth := v1.Group("", middleware.APIKeyAuthMiddleware(h.cfg.Users), middleware.RequireAPIAuth)
	auth.Get("/user/account", ctl.HandleGetUserAccount)
	auth.Get("/user/subscription", ctl.HandleGetSubscription)
	auth.Post("/user/subscription", ctl.HandleSubscribe)
	auth.Get("/user/media", ctl.HandleListMedia)
	auth.Post("/user/media", ctl.HandleUploadMedia)
	auth.Delete("/user/media/:uuid", ctl.HandleDeleteMedia)
	auth.Post("/users/:id/subscription/cancel", ctl.HandleCancelSubscription)

	admin := auth.Group("/admin", middleware.RequireAdmin)
	admin.Get("/subscribers", ctl.HandleListSubscribers)
	admin.Post("/subscriptions/sweep", ctl.HandleRunSweep)
	admin.Post("/users/:id/subscription/reactivate", ctl.HandleReactivateSubscription)
	admin.Post("/plans", ctl.HandleCreatePlan)
	admin.Put("/plans/:id", ctl.HandleUpdatePlan)
	admin.Delete("/plans/:id", ctl.HandleDeletePlan)
}

func NewApiRouter(cfg Config) *ApiRouter {
	return &ApiRouter{cfg: cfg}
}
