package billing

import (
	"time"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

// Status is the derived billing state of a subscriber. It is never stored.
type Status string

const (
	StatusFree     Status = "free"
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// DeriveStatus classifies the billing fields at now. First match wins:
// free plan, missing renewal date, lapsed renewal date, missing provider
// subscription, then active.
func DeriveStatus(b models.Billing, now time.Time) Status {
	if b.Plan == models.PlanFree || b.Plan == "" {
		return StatusFree
	}
	if b.RenewalDate == nil {
		return StatusCanceled
	}
	if !b.RenewalDate.After(now) {
		return StatusExpired
	}
	if b.ProviderSubscriptionID == nil || *b.ProviderSubscriptionID == "" {
		return StatusCanceled
	}
	return StatusActive
}

// HasPaidAccess reports whether the status still grants the paid tier.
// Canceled subscribers keep access until their renewal date.
func (s Status) HasPaidAccess() bool {
	return s == StatusActive || s == StatusCanceled
}

// SubscriberView is the read model returned by every subscriber endpoint.
type SubscriberView struct {
	ID                     uint       `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	Plan                   string     `json:"plan"`
	Status                 Status     `json:"status"`
	RenewalDate            *time.Time `json:"renewal_date"`
	ProviderSubscriptionID *string    `json:"provider_subscription_id"`
	Active                 bool       `json:"active"`
	Deleted                bool       `json:"deleted"`
}

// NewSubscriberView computes the derived status for u at now.
func NewSubscriberView(u *models.User, now time.Time) SubscriberView {
	b := u.Billing()
	return SubscriberView{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		Plan:                   string(b.Normalize().Plan),
		Status:                 DeriveStatus(b, now),
		RenewalDate:            b.RenewalDate,
		ProviderSubscriptionID: b.ProviderSubscriptionID,
		Active:                 u.Active,
		Deleted:                u.Deleted,
	}
}
