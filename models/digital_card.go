package models

import (
	"time"
)

// DigitalCard is either a template (IsTemplate) or a card issued to one subscription.
// SubscriptionID is unique so a subscription can never hold two issued cards; templates keep it NULL.
type DigitalCard struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	IsTemplate     bool       `gorm:"index;not null;default:false" json:"is_template"`
	PlanID         *uint      `gorm:"index" json:"plan_id"`
	CreatedBy      uint       `gorm:"index" json:"created_by"`
	SubscriptionID *uint      `gorm:"uniqueIndex" json:"subscription_id"`
	UserID         *uint      `gorm:"index" json:"user_id"`
	MemberNumber   string     `json:"member_number"`
	HolderName     string     `json:"holder_name"`
	PlanName       string     `json:"plan_name"`
	Title          string     `json:"title"`
	LogoURL        string     `json:"logo_url"`
	PrimaryColor   string     `gorm:"default:'#1E3A8A'" json:"primary_color"`
	SecondaryColor string     `gorm:"default:'#3B82F6'" json:"secondary_color"`
	TextColor      string     `gorm:"default:'#FFFFFF'" json:"text_color"`
	ShowBarcode    bool       `json:"show_barcode"`
	BarcodeType    string     `gorm:"default:'qr'" json:"barcode_type"`
	ValidUntil     *time.Time `json:"valid_until"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
