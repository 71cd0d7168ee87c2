package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Where the expected application amount came from
const (
	AmountSourcePlanCoupon        = "plan_coupon"
	AmountSourceApplicationCoupon = "application_coupon"
	AmountSourceStoredSnapshot    = "stored_snapshot"
	AmountSourcePlanFee           = "plan_fee"
)

var (
	ErrPaymentAlreadyRecorded = NewAppError(http.StatusBadRequest, "Payment has already been recorded for this application", nil)
	ErrInvalidPaymentAmount   = NewAppError(http.StatusBadRequest, "Invalid payment amount", nil)
	ErrApplicationPlanChanged = NewAppError(http.StatusBadRequest, "Application does not belong to the selected plan", nil)
)

// ExpectedAmount is the server's view of what an application should cost
type ExpectedAmount struct {
	Amount decimal.Decimal
	Source string
	Coupon *models.Coupon
}

// ReconcileResult describes an accepted application payment
type ReconcileResult struct {
	Expected       ExpectedAmount
	AcceptedAmount decimal.Decimal
	// LowerAmountAccepted is set when the amount was taken on trust from the client
	LowerAmountAccepted bool
}

// ExpectedApplicationAmount resolves the amount the applicant should pay. The plan's associated
// coupon wins, then the coupon recorded on the application, then the discounted amount frozen at
// submission when the coupon can no longer be loaded, then the plan fee.
func ExpectedApplicationAmount(db *gorm.DB, app *models.Application, plan *models.Plan, now time.Time) ExpectedAmount {
	expected := ExpectedAmount{Amount: plan.Fee, Source: AmountSourcePlanFee}

	if plan.CouponID != nil {
		var planCoupon models.Coupon
		if err := db.First(&planCoupon, *plan.CouponID).Error; err != nil {
			LogWarn("Plan %d coupon %d could not be loaded: %v", plan.ID, *plan.CouponID, err)
		} else {
			if !codeMatches(app, &planCoupon) {
				// a plan with its own coupon ignores every other code
				LogDebug("Application %d coupon does not match plan %d coupon, charging full fee", app.ID, plan.ID)
				return expected
			}
			if err := CheckCouponUsable(&planCoupon, now); err != nil {
				LogInfo("Plan %d coupon %s is no longer usable: %v", plan.ID, planCoupon.Code, err)
			} else {
				_, final := CalculateDiscount(plan.Fee, &planCoupon)
				return ExpectedAmount{Amount: final, Source: AmountSourcePlanCoupon, Coupon: &planCoupon}
			}
		}
	}

	if !app.HasCouponReference() {
		return expected
	}

	coupon, err := applicationCoupon(db, app)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			LogError("Failed to load coupon for application %d: %v", app.ID, err)
		}
		// the coupon is gone; trust the amount frozen when the application was submitted
		if app.FinalAmount.Sub(plan.Fee).Abs().GreaterThan(AmountTolerance) && !app.FinalAmount.IsNegative() {
			return ExpectedAmount{Amount: app.FinalAmount, Source: AmountSourceStoredSnapshot}
		}
		return expected
	}

	if err := CheckCouponUsable(coupon, now); err != nil {
		LogInfo("Application %d coupon %s is no longer usable: %v", app.ID, coupon.Code, err)
		return expected
	}
	if !CouponAppliesToPlan(coupon, plan, plan.ID) {
		LogInfo("Application %d coupon %s does not apply to plan %d", app.ID, coupon.Code, plan.ID)
		return expected
	}
	_, final := CalculateDiscount(plan.Fee, coupon)
	return ExpectedAmount{Amount: final, Source: AmountSourceApplicationCoupon, Coupon: coupon}
}

func codeMatches(app *models.Application, coupon *models.Coupon) bool {
	if app.CouponID != nil && *app.CouponID == coupon.ID {
		return true
	}
	return app.CouponCode != nil && NormalizeCouponCode(*app.CouponCode) == coupon.Code
}

func applicationCoupon(db *gorm.DB, app *models.Application) (*models.Coupon, error) {
	if app.CouponID != nil {
		var coupon models.Coupon
		err := db.First(&coupon, *app.CouponID).Error
		if err == nil {
			return &coupon, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) || app.CouponCode == nil {
			return nil, err
		}
	}
	return FindCouponByCode(db, *app.CouponCode)
}

// AcceptLowerClientAmount decides whether a client amount below the expected amount may be
// trusted. It requires a coupon reference on the application and a non-negative amount whose
// implied discount does not exceed 100%.
func AcceptLowerClientAmount(expected, client decimal.Decimal, hasCouponReference bool) bool {
	if !hasCouponReference {
		return false
	}
	if client.IsNegative() || !client.LessThan(expected) || !expected.IsPositive() {
		return false
	}
	percent := expected.Sub(client).Div(expected).Mul(decimal.NewFromInt(100))
	return percent.LessThanOrEqual(decimal.NewFromInt(100))
}

// DecideApplicationAmount applies the tolerance check and the lower-amount policy
func DecideApplicationAmount(expected ExpectedAmount, client decimal.Decimal, hasCouponReference bool) (*ReconcileResult, error) {
	if client.IsNegative() {
		return nil, ErrInvalidPaymentAmount
	}
	if AmountsMatch(expected.Amount, client) {
		return &ReconcileResult{Expected: expected, AcceptedAmount: client}, nil
	}
	if AcceptLowerClientAmount(expected.Amount, client, hasCouponReference) {
		return &ReconcileResult{Expected: expected, AcceptedAmount: client, LowerAmountAccepted: true}, nil
	}
	return nil, BadRequestError(fmt.Sprintf("Payment amount mismatch: expected %s, received %s",
		FormatAmount(expected.Amount), FormatAmount(client)), nil)
}

// ApplicationPaymentRequest is what the applicant reports after paying
type ApplicationPaymentRequest struct {
	PlanID         uint
	Amount         decimal.Decimal
	PaymentMethod  string
	TransactionID  string
	PaymentDetails map[string]interface{}
}

// ReconcileApplicationPayment checks the reported amount against the expected one and, when
// accepted, records the payment on the application and moves it to pending review.
func ReconcileApplicationPayment(db *gorm.DB, app *models.Application, plan *models.Plan, req ApplicationPaymentRequest, now time.Time) (*ReconcileResult, error) {
	if app.Status != models.ApplicationStatusIncomplete {
		return nil, ErrPaymentAlreadyRecorded
	}
	if req.PlanID != 0 && req.PlanID != app.PlanID {
		return nil, ErrApplicationPlanChanged
	}

	expected := ExpectedApplicationAmount(db, app, plan, now)
	result, err := DecideApplicationAmount(expected, req.Amount, app.HasCouponReference())
	if err != nil {
		PaymentReconciliationsTotal.WithLabelValues("rejected", expected.Source).Inc()
		LogWarn("Application %d payment rejected: expected %s (%s), received %s",
			app.ID, FormatAmount(expected.Amount), expected.Source, FormatAmount(req.Amount))
		return nil, err
	}

	outcome := "accepted"
	if result.LowerAmountAccepted {
		outcome = "accepted_lower"
		LogWarn("Application %d accepted lower client amount %s (expected %s from %s)",
			app.ID, FormatAmount(req.Amount), FormatAmount(expected.Amount), expected.Source)
	}

	info := models.ApplicationPaymentInfo{
		TransactionID:  req.TransactionID,
		PaymentMethod:  req.PaymentMethod,
		Amount:         FormatAmount(result.AcceptedAmount),
		ExpectedAmount: FormatAmount(expected.Amount),
		AmountSource:   expected.Source,
		Details:        req.PaymentDetails,
		RecordedAt:     now,
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, WrapError(err, "failed to encode payment info")
	}

	res := db.Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, models.ApplicationStatusIncomplete).
		Updates(map[string]interface{}{
			"final_amount": result.AcceptedAmount,
			"status":       models.ApplicationStatusPending,
			"payment_info": datatypes.JSON(infoJSON),
		})
	if res.Error != nil {
		return nil, WrapError(res.Error, "failed to record application payment")
	}
	if res.RowsAffected == 0 {
		return nil, ErrPaymentAlreadyRecorded
	}

	app.FinalAmount = result.AcceptedAmount
	app.Status = models.ApplicationStatusPending
	app.PaymentInfo = datatypes.JSON(infoJSON)
	PaymentReconciliationsTotal.WithLabelValues(outcome, expected.Source).Inc()
	LogInfo("Application %d payment recorded: %s via %s", app.ID, FormatAmount(result.AcceptedAmount), req.PaymentMethod)
	return result, nil
}
