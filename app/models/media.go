package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MediaKindAvatar      = "avatar"
	MediaKindCertificate = "certificate"
	MediaKindAchievement = "achievement"
	MediaKindHighlight   = "highlight"
)

// Media is a file attached to a player profile and stored in the object store.
type Media struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	UUID        string    `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Kind        string    `gorm:"type:varchar(20);not null;index" json:"kind" validate:"required,oneof=avatar certificate achievement highlight"`
	Title       string    `gorm:"type:varchar(200);default:''" json:"title" validate:"max=200"`
	FileName    string    `gorm:"type:varchar(255)" json:"file_name"`
	ObjectKey   string    `gorm:"type:varchar(255);not null" json:"-"`
	ContentType string    `gorm:"type:varchar(100)" json:"content_type"`
	FileSize    int64     `json:"file_size"`
	URL         string    `gorm:"-" json:"url,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate assigns the public identifier.
func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == "" {
		m.UUID = uuid.New().String()
	}
	return nil
}

func (Media) TableName() string {
	return "media"
}
