package models

import (
	"time"
)

// Subscription status constants
const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPastDue   = "past_due"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription records a member's access to a plan
type Subscription struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	User         User       `gorm:"foreignKey:UserID" json:"-"`
	PlanID       uint       `gorm:"index;not null" json:"plan_id"`
	Plan         Plan       `gorm:"foreignKey:PlanID" json:"-"`
	MemberNumber string     `gorm:"uniqueIndex;not null" json:"member_number"`
	Status       string     `gorm:"index;not null;default:'pending'" json:"status"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	RenewalDate  *time.Time `json:"renewal_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
