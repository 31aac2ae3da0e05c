package billing

import (
	"context"
	"errors"
)

var (
	// ErrGatewayNotFound is returned when the provider does not know a resource.
	ErrGatewayNotFound = errors.New("provider resource not found")
	// ErrDuplicateSubscription is returned when the customer already holds the plan.
	ErrDuplicateSubscription = errors.New("provider subscription already exists")
	// ErrGatewayFailure wraps every provider failure surfaced by the Service.
	ErrGatewayFailure = errors.New("payment provider request failed")
)

// PlanInput is the provider-facing description of a plan.
type PlanInput struct {
	Name        string
	Description string
	AmountMinor int64
	Currency    string
	// Interval is the provider interval name, monthly or annually.
	Interval string
}

// Gateway is the payment provider used for subscriptions and plans.
type Gateway interface {
	// CreateSubscription subscribes customer to planCode and returns the
	// subscription code. An existing subscription on the same plan is reused
	// or replaced rather than reported as an error.
	CreateSubscription(ctx context.Context, customer, planCode string) (string, error)
	// DisableSubscription stops future billing. An unknown subscription is
	// already disabled and is not an error.
	DisableSubscription(ctx context.Context, subscriptionCode string) error
	CreatePlan(ctx context.Context, in PlanInput) (string, error)
	UpdatePlan(ctx context.Context, planCode string, in PlanInput) error
	DeactivatePlan(ctx context.Context, planCode string) error
}
