package billing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/env"
)

const (
	defaultPaystackBaseURL = "https://api.paystack.co"
	defaultGraceWindow     = 48 * time.Hour
	defaultSweepAt         = "03:00"
)

// Config holds provider credentials and subscription lifecycle settings.
type Config struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	// PlanCodes maps provider plan codes to paid tiers.
	PlanCodes   map[string]models.SubscriptionPlan
	GraceWindow time.Duration
	// daily wall-clock time (UTC) of the expiry sweep
	SweepHour   uint
	SweepMinute uint
}

// LoadConfig reads billing settings from the environment.
func LoadConfig() (*Config, error) {
	secret := strings.TrimSpace(env.GetEnv("PAYSTACK_SECRET_KEY", ""))
	cfg := &Config{
		SecretKey:     secret,
		WebhookSecret: strings.TrimSpace(env.GetEnv("PAYSTACK_WEBHOOK_SECRET", secret)),
		BaseURL:       strings.TrimRight(strings.TrimSpace(env.GetEnv("PAYSTACK_BASE_URL", defaultPaystackBaseURL)), "/"),
		PlanCodes:     map[string]models.SubscriptionPlan{},
		GraceWindow:   defaultGraceWindow,
	}

	if code := strings.TrimSpace(env.GetEnv("PAYSTACK_PLAN_MONTHLY", "")); code != "" {
		cfg.PlanCodes[code] = models.PlanMonthly
	}
	if code := strings.TrimSpace(env.GetEnv("PAYSTACK_PLAN_YEARLY", "")); code != "" {
		cfg.PlanCodes[code] = models.PlanYearly
	}

	if raw := strings.TrimSpace(env.GetEnv("SUBSCRIPTION_GRACE_HOURS", "")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 0 {
			return nil, fmt.Errorf("invalid SUBSCRIPTION_GRACE_HOURS %q", raw)
		}
		cfg.GraceWindow = time.Duration(hours) * time.Hour
	}

	hour, minute, err := parseClock(env.GetEnv("SWEEP_AT", defaultSweepAt))
	if err != nil {
		return nil, err
	}
	cfg.SweepHour, cfg.SweepMinute = hour, minute

	return cfg, nil
}

func parseClock(raw string) (uint, uint, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, errors.New("SWEEP_AT must be formatted as HH:MM")
	}
	return uint(t.Hour()), uint(t.Minute()), nil
}
