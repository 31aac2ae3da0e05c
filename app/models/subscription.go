package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SubscriptionPlan is the billing tier stored on a user record.
type SubscriptionPlan string

const (
	PlanFree    SubscriptionPlan = "free"
	PlanMonthly SubscriptionPlan = "monthly"
	PlanYearly  SubscriptionPlan = "yearly"
)

// ErrInvalidBilling is returned by Billing.Validate.
var ErrInvalidBilling = errors.New("invalid billing fields")

// ParsePlan accepts the stored or user supplied name of a plan.
func ParsePlan(raw string) (SubscriptionPlan, error) {
	switch p := SubscriptionPlan(strings.ToLower(strings.TrimSpace(raw))); p {
	case PlanFree, PlanMonthly, PlanYearly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown plan %q", ErrInvalidBilling, raw)
	}
}

// IsPaid reports whether p is one of the paid tiers.
func (p SubscriptionPlan) IsPaid() bool {
	return p == PlanMonthly || p == PlanYearly
}

// Billing is the subscriber subset of a user record.
type Billing struct {
	Plan                   SubscriptionPlan
	RenewalDate            *time.Time
	ProviderSubscriptionID *string
}

// FreeBilling is the state every account starts in and is downgraded to.
func FreeBilling() Billing {
	return Billing{Plan: PlanFree}
}

// Normalize clears renewal date and provider subscription on the free plan
// and drops empty subscription ids.
func (b Billing) Normalize() Billing {
	if b.Plan == "" {
		b.Plan = PlanFree
	}
	if b.ProviderSubscriptionID != nil && strings.TrimSpace(*b.ProviderSubscriptionID) == "" {
		b.ProviderSubscriptionID = nil
	}
	if b.Plan == PlanFree {
		b.RenewalDate = nil
		b.ProviderSubscriptionID = nil
	}
	return b
}

// Validate checks the stored invariants without normalizing.
func (b Billing) Validate() error {
	if _, err := ParsePlan(string(b.Plan)); err != nil {
		return err
	}
	if b.Plan == PlanFree && (b.RenewalDate != nil || b.ProviderSubscriptionID != nil) {
		return fmt.Errorf("%w: free plan cannot carry a renewal date or provider subscription", ErrInvalidBilling)
	}
	return nil
}

// SubscriptionID returns the provider subscription id or an empty string.
func (b Billing) SubscriptionID() string {
	if b.ProviderSubscriptionID == nil {
		return ""
	}
	return *b.ProviderSubscriptionID
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
