package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PlayerFolio/app/controllers"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/middleware"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Config carries what the routers need from the application.
type Config struct {
	Controller  *controllers.Controller
	Users       middleware.APIKeyLookup
	MetricsUser string
	MetricsPass string

	// LimiterStorage backs the API rate limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, cfg Config) {
	// operational routes first so they bypass the API limiter
	setup(app, NewHttpRouter(cfg), NewApiRouter(cfg))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
