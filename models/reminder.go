package models

import (
	"time"
)

// Reminder kinds
const (
	ReminderRenewalUpcoming = "renewal_upcoming"
	ReminderExpired         = "expired"
)

// Reminder records a renewal notice already sent for one billing cycle
type Reminder struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID uint      `gorm:"uniqueIndex:idx_reminders_cycle;not null" json:"subscription_id"`
	Kind           string    `gorm:"uniqueIndex:idx_reminders_cycle;not null" json:"kind"`
	DueDate        time.Time `gorm:"uniqueIndex:idx_reminders_cycle;not null" json:"due_date"`
	Email          string    `json:"email"`
	SentAt         time.Time `json:"sent_at"`
}
