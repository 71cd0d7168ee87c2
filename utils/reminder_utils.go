package utils

import (
	"fmt"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReminderRun summarizes one pass of the reminder jobs
type ReminderRun struct {
	MarkedPastDue int
	ExpiredSent   int
	UpcomingSent  int
}

// StartReminderScheduler runs the reminder jobs on spec (six-field cron syntax, seconds first).
// The caller stops the returned scheduler on shutdown.
func StartReminderScheduler(db *gorm.DB, spec string, daysBefore int) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithSeconds())
	_, err := scheduler.AddFunc(spec, func() {
		LogInfo("[CRON] Starting renewal reminder run")
		run, err := RunReminderJobs(db, time.Now().UTC(), daysBefore)
		if err != nil {
			LogError("[CRON] Renewal reminder run failed: %v", err)
			return
		}
		LogInfo("[CRON] Renewal reminder run finished: %d past due, %d expiry notices, %d upcoming notices",
			run.MarkedPastDue, run.ExpiredSent, run.UpcomingSent)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	scheduler.Start()
	return scheduler, nil
}

// RunReminderJobs marks lapsed subscriptions past_due and sends the pending notices
func RunReminderJobs(db *gorm.DB, now time.Time, daysBefore int) (*ReminderRun, error) {
	run := &ReminderRun{}

	marked, expiredSent, err := MarkExpiredSubscriptions(db, now)
	if err != nil {
		return nil, err
	}
	run.MarkedPastDue, run.ExpiredSent = marked, expiredSent

	upcoming, err := SendUpcomingRenewalReminders(db, now, daysBefore)
	if err != nil {
		return nil, err
	}
	run.UpcomingSent = upcoming
	return run, nil
}

// MarkExpiredSubscriptions moves active subscriptions whose end date has passed to past_due and
// notifies each member once
func MarkExpiredSubscriptions(db *gorm.DB, now time.Time) (marked int, sent int, err error) {
	var subs []models.Subscription
	err = db.Preload("User").Preload("Plan", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.SubscriptionStatusActive, now).
		Find(&subs).Error
	if err != nil {
		return 0, 0, WrapError(err, "failed to load expired subscriptions")
	}

	for i := range subs {
		sub := &subs[i]
		res := db.Model(&models.Subscription{}).
			Where("id = ? AND status = ?", sub.ID, models.SubscriptionStatusActive).
			Update("status", models.SubscriptionStatusPastDue)
		if res.Error != nil {
			LogError("Failed to mark subscription %d past due: %v", sub.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		marked++
		LogInfo("Subscription %d (%s) is now past due", sub.ID, sub.MemberNumber)

		ok, err := sendReminder(db, sub, models.ReminderExpired, now)
		if err != nil {
			LogError("Failed to send expiry notice for subscription %d: %v", sub.ID, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return marked, sent, nil
}

// SendUpcomingRenewalReminders notifies members whose subscription ends within daysBefore days
func SendUpcomingRenewalReminders(db *gorm.DB, now time.Time, daysBefore int) (int, error) {
	if daysBefore <= 0 {
		daysBefore = DefaultReminderDays
	}
	horizon := now.AddDate(0, 0, daysBefore)

	var subs []models.Subscription
	err := db.Preload("User").Preload("Plan", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		Where("status = ? AND end_date IS NOT NULL AND end_date >= ? AND end_date <= ?", models.SubscriptionStatusActive, now, horizon).
		Find(&subs).Error
	if err != nil {
		return 0, WrapError(err, "failed to load renewing subscriptions")
	}

	sent := 0
	for i := range subs {
		ok, err := sendReminder(db, &subs[i], models.ReminderRenewalUpcoming, now)
		if err != nil {
			LogError("Failed to send renewal reminder for subscription %d: %v", subs[i].ID, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// sendReminder claims the (subscription, kind, end date) slot and sends the email. It reports
// false when the reminder for this cycle was already sent.
func sendReminder(db *gorm.DB, sub *models.Subscription, kind string, now time.Time) (bool, error) {
	if sub.EndDate == nil {
		return false, nil
	}

	reminder := models.Reminder{
		SubscriptionID: sub.ID,
		Kind:           kind,
		DueDate:        *sub.EndDate,
		Email:          sub.User.Email,
		SentAt:         now,
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&reminder)
	if res.Error != nil {
		return false, WrapError(res.Error, "failed to record reminder")
	}
	if res.RowsAffected == 0 {
		LogDebug("Reminder %s for subscription %d already sent", kind, sub.ID)
		return false, nil
	}

	subject := "Your membership renews soon"
	if kind == models.ReminderExpired {
		subject = "Your membership has expired"
	}
	body := renewalReminderBody(Title(sub.User.FullName()), sub.Plan.Name, *sub.EndDate, kind == models.ReminderExpired)
	if err := EmailSender(sub.User.Email, subject, body); err != nil {
		// release the slot so the next run retries
		db.Delete(&models.Reminder{}, reminder.ID)
		return false, err
	}

	RemindersSentTotal.WithLabelValues(kind).Inc()
	LogInfo("Sent %s reminder to %s for subscription %d", kind, sub.User.Email, sub.ID)
	return true, nil
}
