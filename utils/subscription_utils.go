package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivationResult is returned by ActivateSubscription
type ActivationResult struct {
	Subscription *models.Subscription
	// Activated is false when the subscription was already active or is cancelled
	Activated bool
	Card      *models.DigitalCard
}

// RenewalMonths maps a renewal interval to its length in calendar months. Zero means the
// subscription never expires.
func RenewalMonths(interval string) int {
	switch interval {
	case models.RenewalMonthly:
		return 1
	case models.RenewalQuarterly:
		return 3
	case models.RenewalYearly:
		return 12
	}
	return 0
}

// AddMonthsClamped adds calendar months to t, clamping the day to the end of the target
// month: Jan 31 + 1 month is Feb 29 in a leap year.
func AddMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// RenewalEndDate returns the end of the first period starting at start, or nil for
// one-time and unknown intervals
func RenewalEndDate(start time.Time, interval string) *time.Time {
	months := RenewalMonths(interval)
	if months == 0 {
		return nil
	}
	end := AddMonthsClamped(start, months)
	return &end
}

// CurrentPeriodEnd returns the first period boundary after now for a subscription that started
// at start. Boundaries are counted from start so month-end clamping does not drift.
func CurrentPeriodEnd(start time.Time, interval string, now time.Time) *time.Time {
	months := RenewalMonths(interval)
	if months == 0 {
		return nil
	}
	for periods := 1; ; periods++ {
		end := AddMonthsClamped(start, periods*months)
		if end.After(now) {
			return &end
		}
	}
}

// GenerateMemberNumber returns an unused MBR-XXXXXXXX member number
func GenerateMemberNumber(db *gorm.DB) (string, error) {
	for i := 0; i < 5; i++ {
		raw := strings.ReplaceAll(uuid.New().String(), "-", "")
		number := MemberNumberPrefix + strings.ToUpper(raw[:8])

		var count int64
		if err := db.Model(&models.Subscription{}).Where("member_number = ?", number).Count(&count).Error; err != nil {
			return "", WrapError(err, "failed to check member number")
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", errors.New("could not generate a unique member number")
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports it
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ActivateSubscription moves a pending or past_due subscription to active and issues its
// digital card. A past_due subscription keeps its start date and is carried into the period
// that contains now. The transition is a compare-and-set on the status, so repeated calls are
// no-ops; card provisioning runs on every call and is itself idempotent.
func ActivateSubscription(db *gorm.DB, subscriptionID uint, now time.Time) (*ActivationResult, error) {
	var sub models.Subscription
	var plan models.Plan
	activated := false

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&sub, subscriptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError(ErrSubscriptionMissing, err)
			}
			return WrapError(err, "failed to load subscription")
		}
		if err := tx.Unscoped().First(&plan, sub.PlanID).Error; err != nil {
			return WrapError(err, fmt.Sprintf("failed to load plan %d", sub.PlanID))
		}

		if sub.Status != models.SubscriptionStatusPending && sub.Status != models.SubscriptionStatusPastDue {
			return nil
		}

		start := now
		if sub.StartDate != nil {
			start = *sub.StartDate
		}
		end := CurrentPeriodEnd(start, plan.RenewalInterval, now)

		res := tx.Model(&models.Subscription{}).
			Where("id = ? AND status IN ?", sub.ID, []string{models.SubscriptionStatusPending, models.SubscriptionStatusPastDue}).
			Updates(map[string]interface{}{
				"status":       models.SubscriptionStatusActive,
				"start_date":   start,
				"end_date":     end,
				"renewal_date": end,
			})
		if res.Error != nil {
			return WrapError(res.Error, "failed to activate subscription")
		}
		if res.RowsAffected == 0 {
			return nil
		}

		activated = true
		sub.Status = models.SubscriptionStatusActive
		sub.StartDate = &start
		sub.EndDate = end
		sub.RenewalDate = end
		return nil
	})
	if err != nil {
		return nil, err
	}

	sub.Plan = plan
	result := &ActivationResult{Subscription: &sub, Activated: activated}
	if activated {
		SubscriptionsActivatedTotal.Inc()
		LogInfo("Subscription %d (%s) activated until %v", sub.ID, sub.MemberNumber, sub.EndDate)
	} else {
		LogDebug("Subscription %d already %s, activation skipped", sub.ID, sub.Status)
	}

	if sub.Status == models.SubscriptionStatusActive {
		card, err := ProvisionDigitalCard(db, &sub, &plan)
		if err != nil {
			DigitalCardsTotal.WithLabelValues("failed").Inc()
			LogError("Digital card provisioning failed for subscription %d: %v", sub.ID, err)
		} else {
			result.Card = card
		}
	}

	return result, nil
}

// CreateSubscription opens a pending subscription with a fresh member number
func CreateSubscription(tx *gorm.DB, userID, planID uint) (*models.Subscription, error) {
	number, err := GenerateMemberNumber(tx)
	if err != nil {
		return nil, err
	}
	sub := models.Subscription{
		UserID:       userID,
		PlanID:       planID,
		MemberNumber: number,
		Status:       models.SubscriptionStatusPending,
	}
	if err := tx.Create(&sub).Error; err != nil {
		return nil, WrapError(err, "failed to create subscription")
	}
	LogInfo("Subscription %d created for user %d on plan %d (%s)", sub.ID, userID, planID, number)
	return &sub, nil
}
