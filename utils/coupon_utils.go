package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon rejections. All of them are reported to the caller with HTTP 400.
var (
	ErrCouponInvalid     = NewAppError(http.StatusBadRequest, "Invalid or inactive coupon code", nil)
	ErrCouponExpired     = NewAppError(http.StatusBadRequest, "Coupon has expired", nil)
	ErrCouponExhausted   = NewAppError(http.StatusBadRequest, "Coupon usage limit reached", nil)
	ErrCouponNotForPlan  = NewAppError(http.StatusBadRequest, "Coupon code is not valid for the selected plan", nil)
	ErrCouponPlanMissing = NewAppError(http.StatusNotFound, ErrPlanNotFound, nil)
)

// CouponQuote is the outcome of a successful coupon validation
type CouponQuote struct {
	Coupon         *models.Coupon
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

// CalculateDiscount applies coupon to fee. The discount never exceeds the fee, so the
// final amount is floored at zero.
func CalculateDiscount(fee decimal.Decimal, coupon *models.Coupon) (discount, final decimal.Decimal) {
	switch coupon.DiscountType {
	case models.DiscountTypePercentage:
		discount = fee.Mul(coupon.Discount).Div(decimal.NewFromInt(100))
	default:
		discount = coupon.Discount
	}
	discount = RoundCents(discount)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(fee) {
		discount = fee
	}
	return discount, RoundCents(fee.Sub(discount))
}

// CheckCouponUsable enforces the active, expiry and redemption-limit rules
func CheckCouponUsable(coupon *models.Coupon, now time.Time) error {
	if coupon == nil || !coupon.IsActive {
		return ErrCouponInvalid
	}
	if coupon.IsExpired(now) {
		return ErrCouponExpired
	}
	if coupon.IsExhausted() {
		return ErrCouponExhausted
	}
	return nil
}

// CouponAppliesToPlan implements the applicability rule. A plan with an associated coupon
// accepts only that coupon; otherwise the coupon's legacy plan list decides.
func CouponAppliesToPlan(coupon *models.Coupon, plan *models.Plan, requestedPlanID uint) bool {
	if plan.CouponID != nil {
		return coupon.ID == *plan.CouponID
	}
	return coupon.AppliesToPlan(requestedPlanID)
}

// ValidateCoupon checks coupon against plan and prices it. It has no side effects.
func ValidateCoupon(coupon *models.Coupon, plan *models.Plan, requestedPlanID uint, now time.Time) (*CouponQuote, error) {
	if err := CheckCouponUsable(coupon, now); err != nil {
		return nil, err
	}
	if !CouponAppliesToPlan(coupon, plan, requestedPlanID) {
		return nil, ErrCouponNotForPlan
	}

	discount, final := CalculateDiscount(plan.Fee, coupon)
	return &CouponQuote{
		Coupon:         coupon,
		OriginalAmount: plan.Fee,
		DiscountAmount: discount,
		FinalAmount:    final,
	}, nil
}

// FindCouponByCode loads a coupon by its public code, ignoring case
func FindCouponByCode(db *gorm.DB, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := db.Where("code = ?", NormalizeCouponCode(code)).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// QuoteCoupon loads the plan and the coupon named by code and validates them together
func QuoteCoupon(db *gorm.DB, code string, planID uint, now time.Time) (*CouponQuote, error) {
	var plan models.Plan
	if err := db.First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponPlanMissing
		}
		return nil, WrapError(err, "failed to load plan")
	}

	coupon, err := FindCouponByCode(db, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponInvalid
		}
		return nil, WrapError(err, "failed to load coupon")
	}

	return ValidateCoupon(coupon, &plan, planID, now)
}

// RedeemCoupon increments the redemption counter unless the limit is already reached
func RedeemCoupon(db *gorm.DB, couponID uint) error {
	res := db.Model(&models.Coupon{}).
		Where("id = ? AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)", couponID).
		UpdateColumn("current_redemptions", gorm.Expr("current_redemptions + ?", 1))
	if res.Error != nil {
		return WrapError(res.Error, "failed to redeem coupon")
	}
	if res.RowsAffected == 0 {
		return ErrCouponExhausted
	}
	return nil
}
