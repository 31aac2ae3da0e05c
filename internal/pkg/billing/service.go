package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

const defaultCurrency = "NGN"

// ErrNoSubscription is returned when cancelling a user without a provider subscription.
var ErrNoSubscription = errors.New("user has no provider subscription")

// Service implements the user and admin facing subscription operations.
type Service struct {
	users   Store
	plans   PlanStore
	gateway Gateway
	catalog *Catalog
	now     Clock
}

// NewService wires the subscription operations. A nil clock uses time.Now.
func NewService(users Store, plans PlanStore, gateway Gateway, catalog *Catalog, now Clock) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{users: users, plans: plans, gateway: gateway, catalog: catalog, now: now}
}

// ReactivateInput is an administrative override of a user's billing fields.
type ReactivateInput struct {
	Plan                   models.SubscriptionPlan `json:"plan"`
	RenewalDate            *time.Time              `json:"renewal_date"`
	ProviderSubscriptionID string                  `json:"provider_subscription_id"`
}

// PlanUpdate carries the mutable plan fields. Nil fields are left alone.
type PlanUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AmountMinor *int64  `json:"amount_minor"`
}

// Status returns the subscriber view of userID at the current time.
func (s *Service) Status(ctx context.Context, userID uint) (SubscriberView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return SubscriberView{}, err
	}
	return NewSubscriberView(user, s.now()), nil
}

// Subscribe starts a provider subscription on tier. The local record only
// changes after the provider accepted the subscription.
func (s *Service) Subscribe(ctx context.Context, userID uint, tier models.SubscriptionPlan) (*models.User, error) {
	if !tier.IsPaid() {
		return nil, fmt.Errorf("%w: plan must be monthly or yearly", ErrValidation)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	planCode, err := s.catalog.CodeForTier(ctx, tier)
	if err != nil {
		return nil, err
	}

	subscriptionCode, err := s.gateway.CreateSubscription(ctx, user.Email, planCode)
	if err != nil {
		return nil, fmt.Errorf("%w: create subscription for user %d: %w", ErrGatewayFailure, user.ID, err)
	}

	renewal, _ := NextRenewal(tier, s.now())
	next := models.Billing{Plan: tier, RenewalDate: &renewal, ProviderSubscriptionID: models.StringPtr(subscriptionCode)}
	if err := s.users.SetBilling(ctx, user.ID, next); err != nil {
		return nil, fmt.Errorf("store subscription of user %d: %w", user.ID, err)
	}
	user.SetBilling(next)
	log.Infof("[Billing] User %d subscribed to %s (%s)", user.ID, tier, subscriptionCode)
	return user, nil
}

// Cancel stops future billing. Paid access continues until the renewal date.
// Nothing changes locally when the provider call fails.
func (s *Service) Cancel(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	current := user.Billing()
	if !current.Plan.IsPaid() {
		return nil, ErrNoSubscription
	}
	code := current.SubscriptionID()
	if code == "" {
		// already cancelled
		return user, nil
	}

	if err := s.gateway.DisableSubscription(ctx, code); err != nil {
		return nil, fmt.Errorf("%w: disable subscription %s: %w", ErrGatewayFailure, code, err)
	}

	next := models.Billing{Plan: current.Plan, RenewalDate: current.RenewalDate}
	if err := s.users.SetBilling(ctx, user.ID, next); err != nil {
		return nil, fmt.Errorf("store cancellation of user %d: %w", user.ID, err)
	}
	user.SetBilling(next)
	log.Infof("[Billing] User %d cancelled subscription %s", user.ID, code)
	return user, nil
}

// Reactivate overrides the billing fields of userID without calling the provider.
func (s *Service) Reactivate(ctx context.Context, userID uint, in ReactivateInput) (*models.User, error) {
	if !in.Plan.IsPaid() {
		return nil, fmt.Errorf("%w: plan must be monthly or yearly", ErrValidation)
	}
	if in.RenewalDate == nil {
		return nil, fmt.Errorf("%w: renewal_date is required", ErrValidation)
	}
	if !in.RenewalDate.After(s.now()) {
		return nil, fmt.Errorf("%w: renewal_date must be in the future", ErrValidation)
	}

	next := models.Billing{
		Plan:                   in.Plan,
		RenewalDate:            in.RenewalDate,
		ProviderSubscriptionID: models.StringPtr(in.ProviderSubscriptionID),
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetBilling(ctx, user.ID, next); err != nil {
		return nil, fmt.Errorf("store reactivation of user %d: %w", user.ID, err)
	}
	user.SetBilling(next)
	log.Infof("[Billing] User %d reactivated on %s until %s", user.ID, in.Plan, in.RenewalDate.Format(time.RFC3339))
	return user, nil
}

// ListPlans returns the active plan catalog.
func (s *Service) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return s.plans.ListActive(ctx)
}

// CreatePlan stores a new plan. The provider copy is created best-effort.
func (s *Service) CreatePlan(ctx context.Context, plan *models.Plan) error {
	plan.IsActive = true
	if plan.Currency == "" {
		plan.Currency = defaultCurrency
	}
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if s.gateway != nil {
		code, err := s.gateway.CreatePlan(ctx, planInput(plan))
		if err != nil {
			log.Warnf("[Billing] Provider plan creation for %q failed: %v", plan.Name, err)
		} else {
			plan.ProviderPlanCode = code
		}
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return fmt.Errorf("store plan %q: %w", plan.Name, err)
	}
	return nil
}

// UpdatePlan applies in to plan id. Provider sync is best-effort.
func (s *Service) UpdatePlan(ctx context.Context, id uint, in PlanUpdate) (*models.Plan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		plan.Name = *in.Name
	}
	if in.Description != nil {
		plan.Description = *in.Description
	}
	if in.AmountMinor != nil {
		plan.AmountMinor = *in.AmountMinor
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("store plan %d: %w", plan.ID, err)
	}
	if s.gateway != nil && plan.ProviderPlanCode != "" {
		if err := s.gateway.UpdatePlan(ctx, plan.ProviderPlanCode, planInput(plan)); err != nil {
			log.Warnf("[Billing] Provider plan update for %s failed: %v", plan.ProviderPlanCode, err)
		}
	}
	return plan, nil
}

// DeactivatePlan removes a plan from the catalog. Subscribers already on
// its tier keep their billing fields.
func (s *Service) DeactivatePlan(ctx context.Context, id uint) error {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !plan.IsActive {
		return nil
	}
	plan.IsActive = false
	if err := s.plans.Update(ctx, plan); err != nil {
		return fmt.Errorf("store plan %d: %w", plan.ID, err)
	}
	if s.gateway != nil && plan.ProviderPlanCode != "" {
		if err := s.gateway.DeactivatePlan(ctx, plan.ProviderPlanCode); err != nil {
			log.Warnf("[Billing] Provider plan deactivation for %s failed: %v", plan.ProviderPlanCode, err)
		}
	}
	return nil
}

func planInput(p *models.Plan) PlanInput {
	return PlanInput{
		Name:        p.Name,
		Description: p.Description,
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		Interval:    p.ProviderInterval(),
	}
}
