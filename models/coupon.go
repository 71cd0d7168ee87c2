package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Discount type constants
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type Coupon struct {
	ID                 uint                      `gorm:"primaryKey" json:"id"`
	Code               string                    `gorm:"uniqueIndex;not null" json:"code"`
	Discount           decimal.Decimal           `gorm:"type:decimal(12,2);not null" json:"discount"`
	DiscountType       string                    `gorm:"not null" json:"discount_type"` // "percentage" or "fixed"
	ExpiryDate         *time.Time                `json:"expiry_date"`
	MaxRedemptions     *int                      `json:"max_redemptions"`
	CurrentRedemptions int                       `gorm:"not null;default:0" json:"current_redemptions"`
	IsActive           bool                      `gorm:"default:true" json:"is_active"`
	ApplicablePlans    datatypes.JSONSlice[uint] `json:"applicable_plans"`
	CreatedBy          uint                      `gorm:"index" json:"created_by"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	DeletedAt          gorm.DeletedAt            `gorm:"index" json:"-"`
}

// IsExpired reports whether the coupon's expiry date is set and not in the future
func (c Coupon) IsExpired(now time.Time) bool {
	return c.ExpiryDate != nil && !c.ExpiryDate.After(now)
}

// IsExhausted reports whether the redemption limit has been reached
func (c Coupon) IsExhausted() bool {
	return c.MaxRedemptions != nil && c.CurrentRedemptions >= *c.MaxRedemptions
}

// AppliesToPlan implements the legacy applicable-plans filter. An empty list applies to every plan.
func (c Coupon) AppliesToPlan(planID uint) bool {
	if len(c.ApplicablePlans) == 0 {
		return true
	}
	for _, id := range c.ApplicablePlans {
		if id == planID {
			return true
		}
	}
	return false
}
