package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/ManuelReschke/PlayerFolio/internal/pkg/metrics"
)

// HttpRouter serves the operational endpoints.
type HttpRouter struct {
	cfg Config
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if h.cfg.MetricsUser == "" || h.cfg.MetricsPass == "" {
		log.Warn("[Router] METRICS_USER/METRICS_PASSWORD not set, /metrics is disabled")
		return
	}
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			h.cfg.MetricsUser: h.cfg.MetricsPass,
		},
	}), metrics.Handler())
}

func NewHttpRouter(cfg Config) *HttpRouter {
	return &HttpRouter{cfg: cfg}
}
