package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment method constants
const (
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodCrypto   = "crypto"
	PaymentMethodManual   = "manual"
)

type Payment struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	UserID         uint            `json:"user_id" gorm:"index"`
	PlanID         uint            `json:"plan_id" gorm:"index"`
	SubscriptionID *uint           `json:"subscription_id" gorm:"index"`
	ApplicationID  *uint           `json:"application_id" gorm:"index"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(12,2)"`
	Status         string          `json:"status" gorm:"index;not null;default:'pending'"` // pending, completed, failed
	Method         string          `json:"method"`
	Identifier     *string         `json:"identifier" gorm:"uniqueIndex"` // gateway order or invoice id
	TransactionID  string          `json:"transaction_id" gorm:"index"`
	CompletedAt    *time.Time      `json:"completed_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsValidPaymentStatus reports whether status is a known payment status
func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}
