package entitlements

import (
	"time"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
)

// Limits are the profile features available at an access level.
type Limits struct {
	PaidAccess      bool  `json:"paid_access"`
	MaxMediaItems   int64 `json:"max_media_items"`
	MaxUploadBytes  int64 `json:"max_upload_bytes"`
	HighlightVideos bool  `json:"highlight_videos"`
}

var (
	freeLimits = Limits{
		MaxMediaItems:  5,
		MaxUploadBytes: 5 << 20,
	}
	paidLimits = Limits{
		PaidAccess:      true,
		MaxMediaItems:   100,
		MaxUploadBytes:  50 << 20,
		HighlightVideos: true,
	}
)

// ForStatus maps a derived subscription status to its limits.
func ForStatus(status billing.Status) Limits {
	if status.HasPaidAccess() {
		return paidLimits
	}
	return freeLimits
}

// ForUser derives the status of u at now and returns its limits.
func ForUser(u *models.User, now time.Time) Limits {
	return ForStatus(billing.DeriveStatus(u.Billing(), now))
}

// AllowsKind reports whether media of kind may be uploaded.
func (l Limits) AllowsKind(kind string) bool {
	if kind == models.MediaKindHighlight {
		return l.HighlightVideos
	}
	return true
}

// CanAddMedia reports whether one more item fits when current items exist.
func (l Limits) CanAddMedia(current int64) bool {
	return current < l.MaxMediaItems
}
