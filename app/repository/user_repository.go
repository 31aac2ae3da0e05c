package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrSubscriberNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.SetBilling(user.Billing())
	return r.db.WithContext(ctx).Create(user).Error
}

// Update saves profile fields. Billing fields are only written through SetBilling.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Model(user).
		Omit("plan", "renewal_date", "provider_subscription_id").
		Save(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by their email address, ignoring case
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, billing.ErrSubscriberNotFound
	}
	return r.first(ctx, "LOWER(email) = ?", normalized)
}

// GetByProviderSubscriptionID retrieves the user owning a provider subscription
func (r *userRepository) GetByProviderSubscriptionID(ctx context.Context, subscriptionID string) (*models.User, error) {
	trimmed := strings.TrimSpace(subscriptionID)
	if trimmed == "" {
		return nil, billing.ErrSubscriberNotFound
	}
	return r.first(ctx, "provider_subscription_id = ?", trimmed)
}

// GetByAPIKeyHash resolves an API key hash to its active user
func (r *userRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, billing.ErrSubscriberNotFound
	}
	return r.first(ctx, "api_key_hash = ? AND active = ? AND deleted = ?", trimmed, true, false)
}

// SetBilling overwrites the billing fields of one user.
func (r *userRepository) SetBilling(ctx context.Context, id uint, b models.Billing) error {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"plan":                     b.Plan,
			"renewal_date":             b.RenewalDate,
			"provider_subscription_id": b.ProviderSubscriptionID,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to set billing for user %d: %w", id, err)
	}
	return nil
}

// DowngradeLapsed moves every paid user whose renewal date is before cutoff
// to the free plan in one statement.
func (r *userRepository) DowngradeLapsed(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("plan <> ? AND renewal_date IS NOT NULL AND renewal_date < ?", models.PlanFree, cutoff).
		Updates(map[string]interface{}{
			"plan":                     models.PlanFree,
			"renewal_date":             nil,
			"provider_subscription_id": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to downgrade lapsed subscribers: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListSubscribers retrieves a page of users ordered by ID
func (r *userRepository) ListSubscribers(ctx context.Context, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("deleted = ?", false).Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the number of users that are not deleted
func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("deleted = ?", false).Count(&count).Error
	return count, err
}
