package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Application status constants
const (
	ApplicationStatusIncomplete = "incomplete"
	ApplicationStatusPending    = "pending"
	ApplicationStatusApproved   = "approved"
	ApplicationStatusRejected   = "rejected"
)

// Application is a prospective member's submission against a plan
type Application struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Email           string          `gorm:"index;not null" json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	PlanID          uint            `gorm:"index;not null" json:"plan_id"`
	Plan            Plan            `gorm:"foreignKey:PlanID" json:"-"`
	FormData        datatypes.JSON  `json:"form_data"`
	Status          string          `gorm:"index;not null;default:'incomplete'" json:"status"`
	CouponID        *uint           `json:"coupon_id"`
	CouponCode      *string         `json:"coupon_code"`
	OriginalAmount  decimal.Decimal `gorm:"type:decimal(12,2)" json:"original_amount"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2)" json:"discount_amount"`
	FinalAmount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"final_amount"`
	PaymentInfo     datatypes.JSON  `json:"payment_info"`
	SubscriptionID  *uint           `json:"subscription_id"`
	ReviewedBy      *uint           `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasCouponReference reports whether the application recorded any coupon at submission
func (a Application) HasCouponReference() bool {
	return a.CouponID != nil || (a.CouponCode != nil && *a.CouponCode != "")
}

// ApplicationPaymentInfo is the blob stored in Application.PaymentInfo once payment is recorded
type ApplicationPaymentInfo struct {
	TransactionID  string                 `json:"transaction_id"`
	PaymentMethod  string                 `json:"payment_method"`
	Amount         string                 `json:"amount"`
	ExpectedAmount string                 `json:"expected_amount"`
	AmountSource   string                 `json:"amount_source"`
	Details        map[string]interface{} `json:"details,omitempty"`
	RecordedAt     time.Time              `json:"recorded_at"`
}
