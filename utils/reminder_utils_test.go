package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentEmail struct {
	to, subject string
}

func captureEmails(t *testing.T) *[]sentEmail {
	t.Helper()
	var sent []sentEmail
	previous := EmailSender
	EmailSender = func(to, subject, body string) error {
		sent = append(sent, sentEmail{to, subject})
		return nil
	}
	t.Cleanup(func() { EmailSender = previous })
	return &sent
}

func createActiveSubscription(t *testing.T, db *gorm.DB, member *models.User, plan *models.Plan, end time.Time) *models.Subscription {
	t.Helper()
	sub, err := CreateSubscription(db, member.ID, plan.ID)
	require.NoError(t, err)
	start := end.AddDate(0, -1, 0)
	require.NoError(t, db.Model(sub).Updates(map[string]interface{}{
		"status":       models.SubscriptionStatusActive,
		"start_date":   start,
		"end_date":     end,
		"renewal_date": end,
	}).Error)
	return sub
}

func TestUpcomingRemindersAreSentOncePerCycle(t *testing.T) {
	db := SetupTestDB(t)
	sent := captureEmails(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	far := CreateTestUser(t, db, "far@example.com")
	plan := CreateTestPlan(t, db, owner, "10", models.RenewalMonthly)

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	createActiveSubscription(t, db, member, plan, now.AddDate(0, 0, 3))
	createActiveSubscription(t, db, far, plan, now.AddDate(0, 0, 20))

	count, err := SendUpcomingRenewalReminders(db, now, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = SendUpcomingRenewalReminders(db, now.Add(6*time.Hour), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.Len(t, *sent, 1)
	assert.Equal(t, "member@example.com", (*sent)[0].to)

	var reminders int64
	db.Model(&models.Reminder{}).Count(&reminders)
	assert.Equal(t, int64(1), reminders)
}

func TestMarkExpiredSubscriptions(t *testing.T) {
	db := SetupTestDB(t)
	sent := captureEmails(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	plan := CreateTestPlan(t, db, owner, "10", models.RenewalMonthly)

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	sub := createActiveSubscription(t, db, member, plan, now.AddDate(0, 0, -2))

	run, err := RunReminderJobs(db, now, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, run.MarkedPastDue)
	assert.Equal(t, 1, run.ExpiredSent)
	assert.Equal(t, 0, run.UpcomingSent)

	var stored models.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusPastDue, stored.Status)

	run, err = RunReminderJobs(db, now.Add(time.Hour), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, run.MarkedPastDue)
	assert.Equal(t, 0, run.ExpiredSent)
	require.Len(t, *sent, 1)
	assert.Equal(t, "Your membership has expired", (*sent)[0].subject)
}

func TestFailedReminderIsRetried(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	plan := CreateTestPlan(t, db, owner, "10", models.RenewalMonthly)

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	createActiveSubscription(t, db, member, plan, now.AddDate(0, 0, 2))

	previous := EmailSender
	t.Cleanup(func() { EmailSender = previous })
	EmailSender = func(to, subject, body string) error { return errors.New("smtp down") }

	count, err := SendUpcomingRenewalReminders(db, now, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	EmailSender = func(to, subject, body string) error { return nil }
	count, err = SendUpcomingRenewalReminders(db, now, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStartReminderSchedulerRejectsBadSpec(t *testing.T) {
	db := SetupTestDB(t)
	_, err := StartReminderScheduler(db, "not a cron spec", 7)
	assert.Error(t, err)

	scheduler, err := StartReminderScheduler(db, "0 0 6 * * *", 7)
	require.NoError(t, err)
	assert.Len(t, scheduler.Entries(), 1)
	<-scheduler.Stop().Done()
}
