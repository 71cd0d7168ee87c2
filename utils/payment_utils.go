package utils

import (
	"errors"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Paths that complete a payment
const (
	CompletionSourceManual     = "manual"
	CompletionSourceWebhook    = "razorpay_webhook"
	CompletionSourceCryptoIPN  = "crypto_webhook"
	CompletionSourceCryptoPoll = "crypto_poll"
	CompletionSourceApproval   = "application_approval"
	CompletionSourceCheckout   = "razorpay_checkout"
)

// CompletionResult is returned by CompletePayment
type CompletionResult struct {
	Payment          *models.Payment
	AlreadyCompleted bool
	// Activation is nil when the payment has no member or plan to activate yet
	Activation *ActivationResult
}

// CompletePayment marks a payment completed and runs the activation cascade. The payment row is
// locked for the transition so concurrent deliveries of the same gateway event serialize, and a
// payment that is already completed only re-runs the idempotent activation.
func CompletePayment(db *gorm.DB, paymentID uint, source string, now time.Time) (*CompletionResult, error) {
	var payment models.Payment
	alreadyCompleted := false

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError(ErrPaymentNotFound, err)
			}
			return WrapError(err, "failed to load payment")
		}

		alreadyCompleted = payment.Status == models.PaymentStatusCompleted
		updates := map[string]interface{}{}
		if !alreadyCompleted {
			payment.Status = models.PaymentStatusCompleted
			payment.CompletedAt = &now
			updates["status"] = payment.Status
			updates["completed_at"] = now
			if payment.TransactionID == "" {
				payment.TransactionID = uuid.New().String()
				updates["transaction_id"] = payment.TransactionID
			}
		}

		if payment.SubscriptionID == nil && payment.PlanID != 0 && payment.UserID != 0 {
			sub, err := CreateSubscription(tx, payment.UserID, payment.PlanID)
			if err != nil {
				return err
			}
			payment.SubscriptionID = &sub.ID
			updates["subscription_id"] = sub.ID
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return WrapError(err, "failed to complete payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{Payment: &payment, AlreadyCompleted: alreadyCompleted}
	if !alreadyCompleted {
		PaymentsCompletedTotal.WithLabelValues(source).Inc()
		LogInfo("Payment %d completed via %s", payment.ID, source)
	}

	if payment.SubscriptionID == nil {
		LogInfo("Payment %d has no subscription to activate yet", payment.ID)
		return result, nil
	}

	activation, err := ActivateSubscription(db, *payment.SubscriptionID, now)
	if err != nil {
		return nil, err
	}
	result.Activation = activation
	return result, nil
}

// FailPayment marks a pending payment failed. Completed payments are left untouched.
func FailPayment(db *gorm.DB, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := db.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError(ErrPaymentNotFound, err)
		}
		return nil, WrapError(err, "failed to load payment")
	}
	if payment.Status == models.PaymentStatusCompleted {
		return nil, BadRequestError("Completed payments cannot be marked as failed", nil)
	}
	res := db.Model(&models.Payment{}).
		Where("id = ? AND status <> ?", payment.ID, models.PaymentStatusCompleted).
		Update("status", models.PaymentStatusFailed)
	if res.Error != nil {
		return nil, WrapError(res.Error, "failed to update payment")
	}
	payment.Status = models.PaymentStatusFailed
	LogInfo("Payment %d marked failed", payment.ID)
	return &payment, nil
}

// FindPaymentByIdentifier loads a payment by its gateway order or invoice id
func FindPaymentByIdentifier(db *gorm.DB, identifier string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Where("identifier = ?", identifier).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError(ErrPaymentNotFound, err)
		}
		return nil, WrapError(err, "failed to load payment")
	}
	return &payment, nil
}
