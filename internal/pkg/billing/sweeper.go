package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/internal/pkg/metrics"
)

// Sweeper downgrades paid subscribers whose renewal date lapsed more than
// the grace window ago. It keeps no state between runs.
type Sweeper struct {
	store Store
	grace time.Duration
	now   Clock
}

// NewSweeper creates a sweeper. A nil clock uses time.Now.
func NewSweeper(store Store, grace time.Duration, now Clock) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if grace < 0 {
		grace = 0
	}
	return &Sweeper{store: store, grace: grace, now: now}
}

// Cutoff returns the renewal date before which subscribers are downgraded.
func (s *Sweeper) Cutoff() time.Time {
	return s.now().Add(-s.grace)
}

// Run performs one sweep and returns the number of subscribers downgraded.
func (s *Sweeper) Run(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff()
	changed, err := s.store.DowngradeLapsed(ctx, cutoff)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("expiry sweep (cutoff %s): %w", cutoff.Format(time.RFC3339), err)
	}

	metrics.SweepRuns.WithLabelValues("ok").Inc()
	metrics.SweepDowngrades.Add(float64(changed))
	log.Infof("[Billing] Expiry sweep downgraded %d subscriber(s) lapsed before %s", changed, cutoff.Format(time.RFC3339))
	return changed, nil
}
