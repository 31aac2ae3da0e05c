package media

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/PlayerFolio/internal/pkg/env"
)

// Config holds the object store settings for profile media
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Optional CDN or public bucket URL
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     strings.TrimRight(env.GetEnv("S3_ENDPOINT_URL", ""), "/"),
		PublicBaseURL:   strings.TrimRight(env.GetEnv("S3_PUBLIC_URL", ""), "/"),
	}

	if cfg.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required")
	}
	return cfg, nil
}

// ObjectKey generates the object key of a media item.
// Format: media/<user>/<kind>/YYYY/MM/<uuid><ext>
func ObjectKey(userID uint, kind, mediaUUID, ext string, at time.Time) string {
	return fmt.Sprintf("media/%d/%s/%04d/%02d/%s%s", userID, kind, at.Year(), int(at.Month()), mediaUUID, strings.ToLower(ext))
}

// PublicURL returns the URL objects are served from.
func (c *Config) PublicURL(key string) string {
	switch {
	case c.PublicBaseURL != "":
		return c.PublicBaseURL + "/" + key
	case c.EndpointURL != "":
		return fmt.Sprintf("%s/%s/%s", c.EndpointURL, c.BucketName, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.BucketName, c.Region, key)
	}
}
