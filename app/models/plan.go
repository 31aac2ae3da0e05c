package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BillingIntervalMonthly  = "monthly"
	BillingIntervalAnnually = "annually"
)

// Plan is a sellable subscription plan mirrored to the payment provider.
// ProviderPlanCode is empty until the provider accepted the plan.
type Plan struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Name             string           `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=2,max=100"`
	Description      string           `gorm:"type:text" json:"description" validate:"max=1000"`
	Tier             SubscriptionPlan `gorm:"type:varchar(20);not null;index" json:"tier" validate:"required,oneof=monthly yearly"`
	AmountMinor      int64            `gorm:"not null" json:"amount_minor" validate:"required,gt=0"`
	Currency         string           `gorm:"type:char(3);not null;default:'NGN'" json:"currency" validate:"required,len=3"`
	ProviderPlanCode string           `gorm:"type:varchar(100);default:'';index" json:"provider_plan_code"`
	IsActive         bool             `gorm:"default:true;index" json:"is_active"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProviderInterval returns the provider billing interval matching the tier.
func (p *Plan) ProviderInterval() string {
	if p.Tier == PlanYearly {
		return BillingIntervalAnnually
	}
	return BillingIntervalMonthly
}

func (p *Plan) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
