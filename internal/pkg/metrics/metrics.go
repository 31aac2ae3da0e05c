package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhookEvents counts processed provider webhook deliveries by event type and outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playerfolio",
		Subsystem: "billing",
		Name:      "webhook_events_total",
		Help:      "Provider webhook events by type and processing outcome.",
	}, []string{"event", "outcome"})

	// SweepRuns counts expiry sweep runs by result.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playerfolio",
		Subsystem: "billing",
		Name:      "sweep_runs_total",
		Help:      "Expiry sweep runs by result.",
	}, []string{"result"})

	// SweepDowngrades counts subscribers downgraded by the expiry sweep.
	SweepDowngrades = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playerfolio",
		Subsystem: "billing",
		Name:      "sweep_downgrades_total",
		Help:      "Subscribers downgraded to free by the expiry sweep.",
	})

	// GatewayRequests counts payment provider API calls by operation and result.
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playerfolio",
		Subsystem: "billing",
		Name:      "gateway_requests_total",
		Help:      "Payment provider API calls by operation and result.",
	}, []string{"operation", "result"})
)

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
