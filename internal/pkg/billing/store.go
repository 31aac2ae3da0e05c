package billing

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

var (
	// ErrSubscriberNotFound is returned by Store lookups that match no record.
	ErrSubscriberNotFound = errors.New("subscriber not found")
	// ErrPlanNotFound is returned by PlanStore lookups that match no plan.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrValidation marks client errors on billing input.
	ErrValidation = errors.New("validation failed")
)

// Store is the persistence the subscription core needs from the user records.
// Every write is an absolute set on one identified record, or a bulk update
// whose match condition is its own selection filter.
type Store interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderSubscriptionID(ctx context.Context, subscriptionID string) (*models.User, error)
	SetBilling(ctx context.Context, id uint, b models.Billing) error
	// DowngradeLapsed moves every paid record whose renewal date is before
	// cutoff to the free plan and returns the number of records changed.
	DowngradeLapsed(ctx context.Context, cutoff time.Time) (int64, error)
}

// PlanStore persists plans managed by administrators.
type PlanStore interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, id uint) (*models.Plan, error)
	GetByProviderCode(ctx context.Context, code string) (*models.Plan, error)
	ListActive(ctx context.Context) ([]models.Plan, error)
	Update(ctx context.Context, plan *models.Plan) error
}

// Clock returns the current time. Tests replace it.
type Clock func() time.Time
