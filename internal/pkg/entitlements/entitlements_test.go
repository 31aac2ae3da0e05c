package entitlements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
)

func TestForStatus(t *testing.T) {
	assert.True(t, ForStatus(billing.StatusActive).PaidAccess)
	assert.True(t, ForStatus(billing.StatusCanceled).PaidAccess)
	assert.False(t, ForStatus(billing.StatusExpired).PaidAccess)
	assert.False(t, ForStatus(billing.StatusFree).PaidAccess)
}

func TestForUser(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	renewal := now.Add(5 * 24 * time.Hour)
	canceled := &models.User{Plan: models.PlanMonthly, RenewalDate: &renewal}

	limits := ForUser(canceled, now)
	assert.True(t, limits.PaidAccess)
	assert.True(t, limits.AllowsKind(models.MediaKindHighlight))

	// access ends at the renewal date
	limits = ForUser(canceled, renewal.Add(time.Minute))
	assert.False(t, limits.PaidAccess)
	assert.False(t, limits.AllowsKind(models.MediaKindHighlight))
	assert.True(t, limits.AllowsKind(models.MediaKindAvatar))
}

func TestCanAddMedia(t *testing.T) {
	free := ForStatus(billing.StatusFree)
	assert.True(t, free.CanAddMedia(free.MaxMediaItems-1))
	assert.False(t, free.CanAddMedia(free.MaxMediaItems))
}
