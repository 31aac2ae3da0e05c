package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

// ErrUnknownPlanCode is returned when a provider plan code maps to no tier.
var ErrUnknownPlanCode = errors.New("unknown provider plan code")

// Catalog resolves provider plan codes to tiers and back. Configured codes
// win over plans stored by administrators.
type Catalog struct {
	codes map[string]models.SubscriptionPlan
	plans PlanStore
}

// NewCatalog creates a catalog from the configured mapping and an optional plan store.
func NewCatalog(codes map[string]models.SubscriptionPlan, plans PlanStore) *Catalog {
	normalized := make(map[string]models.SubscriptionPlan, len(codes))
	for code, tier := range codes {
		if code = strings.TrimSpace(code); code != "" && tier.IsPaid() {
			normalized[code] = tier
		}
	}
	return &Catalog{codes: normalized, plans: plans}
}

// TierForCode maps a provider plan code to monthly or yearly.
func (c *Catalog) TierForCode(ctx context.Context, code string) (models.SubscriptionPlan, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrUnknownPlanCode
	}
	if tier, ok := c.codes[code]; ok {
		return tier, nil
	}
	if c.plans == nil {
		return "", ErrUnknownPlanCode
	}
	plan, err := c.plans.GetByProviderCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return "", ErrUnknownPlanCode
		}
		return "", err
	}
	if !plan.Tier.IsPaid() {
		return "", ErrUnknownPlanCode
	}
	return plan.Tier, nil
}

// CodeForTier returns the provider plan code used to sell tier.
func (c *Catalog) CodeForTier(ctx context.Context, tier models.SubscriptionPlan) (string, error) {
	if !tier.IsPaid() {
		return "", fmt.Errorf("%w: plan %q is not sold", ErrValidation, tier)
	}
	for code, t := range c.codes {
		if t == tier {
			return code, nil
		}
	}
	if c.plans != nil {
		plans, err := c.plans.ListActive(ctx)
		if err != nil {
			return "", err
		}
		for _, p := range plans {
			if p.Tier == tier && p.ProviderPlanCode != "" {
				return p.ProviderPlanCode, nil
			}
		}
	}
	return "", fmt.Errorf("%w for tier %q", ErrUnknownPlanCode, tier)
}
