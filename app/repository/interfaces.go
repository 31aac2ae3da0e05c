package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
	"gorm.io/gorm"
)

// ErrMediaNotFound is returned by media lookups that match no record.
var ErrMediaNotFound = errors.New("media not found")

// UserRepository defines the interface for user-related database operations.
// The embedded billing.Store is the only write path for billing fields.
type UserRepository interface {
	billing.Store
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, error)
	ListSubscribers(ctx context.Context, offset, limit int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

// PlanRepository defines the interface for plan catalog operations
type PlanRepository interface {
	billing.PlanStore
}

// MediaRepository defines the interface for profile media operations
type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	GetByUUID(ctx context.Context, uuid string) (*models.Media, error)
	ListByUserID(ctx context.Context, userID uint) ([]models.Media, error)
	CountByUserID(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User  UserRepository
	Plan  PlanRepository
	Media MediaRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Plan:  NewPlanRepository(db),
		Media: NewMediaRepository(db),
	}
}
