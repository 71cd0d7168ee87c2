package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Renewal interval constants
const (
	RenewalMonthly   = "monthly"
	RenewalQuarterly = "quarterly"
	RenewalYearly    = "yearly"
	RenewalOneTime   = "one-time"
)

// Plan is a purchasable membership tier
type Plan struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"not null" json:"name"`
	Description     string          `json:"description"`
	Fee             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"fee"`
	RenewalInterval string          `gorm:"not null;default:'monthly'" json:"renewal_interval"`
	CouponID        *uint           `gorm:"index" json:"coupon_id"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
	CreatedBy       uint            `gorm:"index;not null" json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsValidRenewalInterval reports whether interval is one the plan may use
func IsValidRenewalInterval(interval string) bool {
	switch interval {
	case RenewalMonthly, RenewalQuarterly, RenewalYearly, RenewalOneTime:
		return true
	}
	return false
}
