package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewalEndDate(t *testing.T) {
	jan31 := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		start    time.Time
		interval string
		want     *time.Time
	}{
		{"monthly clamps to leap day", jan31, models.RenewalMonthly, ptrTime(time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC))},
		{"monthly non-leap year", time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), models.RenewalMonthly, ptrTime(time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC))},
		{"quarterly", time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC), models.RenewalQuarterly, ptrTime(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))},
		{"yearly from leap day", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), models.RenewalYearly, ptrTime(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))},
		{"mid month", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), models.RenewalMonthly, ptrTime(time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC))},
		{"one-time never ends", jan31, models.RenewalOneTime, nil},
		{"unknown interval never ends", jan31, "weekly", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenewalEndDate(tt.start, tt.interval)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func TestGenerateMemberNumber(t *testing.T) {
	db := SetupTestDB(t)
	number, err := GenerateMemberNumber(db)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(number, MemberNumberPrefix))
	assert.Len(t, number, len(MemberNumberPrefix)+8)
	assert.Equal(t, strings.ToUpper(number), number)
}

func TestCompletePaymentCreatesAndActivatesSubscription(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	plan := CreateTestPlan(t, db, owner, "25", models.RenewalMonthly)

	payment := models.Payment{UserID: member.ID, PlanID: plan.ID, Amount: plan.Fee, Status: models.PaymentStatusPending, Method: models.PaymentMethodManual}
	require.NoError(t, db.Create(&payment).Error)

	now := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	result, err := CompletePayment(db, payment.ID, CompletionSourceManual, now)
	require.NoError(t, err)
	assert.False(t, result.AlreadyCompleted)
	require.NotNil(t, result.Activation)
	assert.True(t, result.Activation.Activated)
	require.NotNil(t, result.Activation.Card)

	sub := result.Activation.Subscription
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.True(t, strings.HasPrefix(sub.MemberNumber, MemberNumberPrefix))
	require.NotNil(t, sub.EndDate)
	assert.True(t, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC).Equal(*sub.EndDate))

	var stored models.Payment
	require.NoError(t, db.First(&stored, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	require.NotNil(t, stored.SubscriptionID)
	assert.Equal(t, sub.ID, *stored.SubscriptionID)
	assert.NotEmpty(t, stored.TransactionID)

	card := result.Activation.Card
	assert.Equal(t, sub.MemberNumber, card.MemberNumber)
	assert.Equal(t, "Test User", card.HolderName)
	assert.Equal(t, DefaultCardPrimaryColor, card.PrimaryColor)
}

func TestCompletionCascadeIsIdempotent(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	plan := CreateTestPlan(t, db, owner, "25", models.RenewalYearly)

	payment := models.Payment{UserID: member.ID, PlanID: plan.ID, Amount: plan.Fee, Status: models.PaymentStatusPending}
	require.NoError(t, db.Create(&payment).Error)

	now := time.Now().UTC()
	first, err := CompletePayment(db, payment.ID, CompletionSourceWebhook, now)
	require.NoError(t, err)
	second, err := CompletePayment(db, payment.ID, CompletionSourceWebhook, now.Add(time.Minute))
	require.NoError(t, err)

	assert.True(t, second.AlreadyCompleted)
	require.NotNil(t, second.Activation)
	assert.False(t, second.Activation.Activated)
	require.NotNil(t, second.Activation.Card)
	assert.Equal(t, first.Activation.Card.ID, second.Activation.Card.ID)

	again, err := ActivateSubscription(db, first.Activation.Subscription.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, again.Activated)

	var subs, cards int64
	db.Model(&models.Subscription{}).Count(&subs)
	db.Model(&models.DigitalCard{}).Where("is_template = ?", false).Count(&cards)
	assert.Equal(t, int64(1), subs)
	assert.Equal(t, int64(1), cards)
}

func TestActivateSubscriptionRenewsPastDue(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	plan := CreateTestPlan(t, db, owner, "25", models.RenewalQuarterly)

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	sub, err := CreateSubscription(db, member.ID, plan.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(sub).Updates(map[string]interface{}{
		"status":     models.SubscriptionStatusPastDue,
		"start_date": start,
	}).Error)

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	result, err := ActivateSubscription(db, sub.ID, now)
	require.NoError(t, err)
	assert.True(t, result.Activated)
	require.NotNil(t, result.Subscription.StartDate)
	assert.True(t, start.Equal(*result.Subscription.StartDate))
	require.NotNil(t, result.Subscription.EndDate)
	assert.True(t, result.Subscription.EndDate.After(now))
	assert.True(t, time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC).Equal(*result.Subscription.EndDate))

	// the next reminder run leaves the renewed subscription alone
	run, err := RunReminderJobs(db, now.Add(time.Hour), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, run.MarkedPastDue)

	var stored models.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
}

func TestCompletePaymentRenewsLapsedSubscription(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	plan := CreateTestPlan(t, db, owner, "10", models.RenewalMonthly)

	sub, err := CreateSubscription(db, member.ID, plan.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(sub).Updates(map[string]interface{}{
		"status":     models.SubscriptionStatusPastDue,
		"start_date": time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		"end_date":   time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	}).Error)

	invoice := "inv_renew_1"
	payment := models.Payment{UserID: member.ID, PlanID: plan.ID, SubscriptionID: &sub.ID, Amount: plan.Fee,
		Status: models.PaymentStatusPending, Method: models.PaymentMethodCrypto, Identifier: &invoice}
	require.NoError(t, db.Create(&payment).Error)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	result, err := CompletePayment(db, payment.ID, CompletionSourceCryptoIPN, now)
	require.NoError(t, err)
	require.NotNil(t, result.Activation)
	assert.True(t, result.Activation.Activated)
	assert.True(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC).Equal(*result.Activation.Subscription.EndDate))

	run, err := RunReminderJobs(db, now.Add(24*time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, run.MarkedPastDue)
}

func TestCurrentPeriodEnd(t *testing.T) {
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		start    time.Time
		interval string
		now      time.Time
		want     *time.Time
	}{
		{"first period", jan31, models.RenewalMonthly, jan31, ptrTime(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))},
		{"skips lapsed periods without drift", jan31, models.RenewalMonthly, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ptrTime(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))},
		{"boundary equal to now moves on", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), models.RenewalQuarterly, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), ptrTime(time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC))},
		{"yearly", time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), models.RenewalYearly, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), ptrTime(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))},
		{"one-time", jan31, models.RenewalOneTime, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurrentPeriodEnd(tt.start, tt.interval, tt.now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}
}

func TestActivateSubscriptionSkipsCancelled(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	plan := CreateTestPlan(t, db, owner, "25", models.RenewalMonthly)

	sub, err := CreateSubscription(db, member.ID, plan.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(sub).Update("status", models.SubscriptionStatusCancelled).Error)

	result, err := ActivateSubscription(db, sub.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, result.Activated)
	assert.Nil(t, result.Card)
}

func TestCompletePaymentWithoutMemberOnlyMarksCompleted(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	plan := CreateTestPlan(t, db, owner, "25", models.RenewalMonthly)

	payment := models.Payment{PlanID: plan.ID, Amount: plan.Fee, Status: models.PaymentStatusPending}
	require.NoError(t, db.Create(&payment).Error)

	result, err := CompletePayment(db, payment.ID, CompletionSourceCheckout, time.Now())
	require.NoError(t, err)
	assert.Nil(t, result.Activation)
	assert.Equal(t, models.PaymentStatusCompleted, result.Payment.Status)

	_, err = FailPayment(db, payment.ID)
	assert.Error(t, err, "completed payments cannot fail")

	_, err = CompletePayment(db, payment.ID+100, CompletionSourceManual, time.Now())
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Code)
}
