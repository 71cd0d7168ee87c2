package utils

import "github.com/shopspring/decimal"

// Application constants
const (
	// Application name
	AppName = "MemberSphere"

	// API prefix
	APIPrefix = "/api"

	// Default pagination limit
	DefaultPaginationLimit = 10

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Days before the end date when the upcoming-renewal reminder goes out
	DefaultReminderDays = 7

	// Prefix of generated member numbers
	MemberNumberPrefix = "MBR-"
)

// AmountTolerance is the absolute difference under which two amounts are considered equal
var AmountTolerance = decimal.NewFromFloat(0.01)

// Error messages
const (
	ErrUnauthorized        = "Unauthorized access"
	ErrForbidden           = "Access forbidden"
	ErrInvalidEmail        = "Invalid email format"
	ErrPlanNotFound        = "Plan not found"
	ErrCouponNotFound      = "Coupon not found"
	ErrApplicationNotFound = "Application not found"
	ErrPaymentNotFound     = "Payment not found"
	ErrSubscriptionMissing = "Subscription not found"
	ErrInternalServer      = "Internal server error"
)

// Success messages
const (
	MsgCreateSuccess = "Created successfully"
	MsgUpdateSuccess = "Updated successfully"
)
