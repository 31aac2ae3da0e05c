package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"gorm.io/gorm"
)

// mediaRepository implements the MediaRepository interface
type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new media repository instance
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

// Create creates a new media record in the database
func (r *mediaRepository) Create(ctx context.Context, media *models.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

// GetByUUID retrieves a media record by its public identifier
func (r *mediaRepository) GetByUUID(ctx context.Context, uuid string) (*models.Media, error) {
	var media models.Media
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&media).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &media, nil
}

// ListByUserID retrieves all media of a user, newest first
func (r *mediaRepository) ListByUserID(ctx context.Context, userID uint) ([]models.Media, error) {
	var items []models.Media
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&items).Error
	return items, err
}

// CountByUserID returns the number of media items of a user
func (r *mediaRepository) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Media{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Delete removes a media record by its ID
func (r *mediaRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Media{}, id).Error
}
