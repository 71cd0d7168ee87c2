package controllers

import (
	"encoding/json"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func planResponse(plan *models.Plan) gin.H {
	return gin.H{
		"id":              plan.ID,
		"name":            plan.Name,
		"description":     plan.Description,
		"fee":             utils.FormatAmount(plan.Fee),
		"renewalInterval": plan.RenewalInterval,
		"couponId":        plan.CouponID,
		"hasCoupon":       plan.CouponID != nil,
		"isActive":        plan.IsActive,
		"createdBy":       plan.CreatedBy,
		"createdAt":       plan.CreatedAt.Format(time.RFC3339),
	}
}

func couponResponse(coupon *models.Coupon, now time.Time) gin.H {
	plans := []uint(coupon.ApplicablePlans)
	if plans == nil {
		plans = []uint{}
	}
	return gin.H{
		"id":                 coupon.ID,
		"code":               coupon.Code,
		"discount":           utils.FormatAmount(coupon.Discount),
		"discountType":       coupon.DiscountType,
		"expiryDate":         formatTime(coupon.ExpiryDate),
		"maxRedemptions":     coupon.MaxRedemptions,
		"currentRedemptions": coupon.CurrentRedemptions,
		"isActive":           coupon.IsActive,
		"isExpired":          coupon.IsExpired(now),
		"applicablePlans":    plans,
		"createdAt":          coupon.CreatedAt.Format(time.RFC3339),
	}
}

func applicationResponse(app *models.Application) gin.H {
	var formData interface{}
	if len(app.FormData) > 0 {
		_ = json.Unmarshal(app.FormData, &formData)
	}
	var paymentInfo interface{}
	if len(app.PaymentInfo) > 0 {
		_ = json.Unmarshal(app.PaymentInfo, &paymentInfo)
	}
	return gin.H{
		"id":              app.ID,
		"email":           app.Email,
		"firstName":       app.FirstName,
		"lastName":        app.LastName,
		"planId":          app.PlanID,
		"formData":        formData,
		"status":          app.Status,
		"couponId":        app.CouponID,
		"couponCode":      app.CouponCode,
		"originalAmount":  utils.FormatAmount(app.OriginalAmount),
		"discountAmount":  utils.FormatAmount(app.DiscountAmount),
		"finalAmount":     utils.FormatAmount(app.FinalAmount),
		"paymentInfo":     paymentInfo,
		"subscriptionId":  app.SubscriptionID,
		"reviewedBy":      app.ReviewedBy,
		"reviewedAt":      formatTime(app.ReviewedAt),
		"rejectionReason": app.RejectionReason,
		"createdAt":       app.CreatedAt.Format(time.RFC3339),
	}
}

func subscriptionResponse(sub *models.Subscription) gin.H {
	return gin.H{
		"id":           sub.ID,
		"userId":       sub.UserID,
		"planId":       sub.PlanID,
		"planName":     sub.Plan.Name,
		"memberNumber": sub.MemberNumber,
		"status":       sub.Status,
		"startDate":    formatTime(sub.StartDate),
		"endDate":      formatTime(sub.EndDate),
		"renewalDate":  formatTime(sub.RenewalDate),
	}
}

func cardResponse(card *models.DigitalCard) gin.H {
	if card == nil {
		return nil
	}
	return gin.H{
		"id":             card.ID,
		"isTemplate":     card.IsTemplate,
		"planId":         card.PlanID,
		"subscriptionId": card.SubscriptionID,
		"memberNumber":   card.MemberNumber,
		"holderName":     card.HolderName,
		"planName":       card.PlanName,
		"title":          card.Title,
		"logoUrl":        card.LogoURL,
		"primaryColor":   card.PrimaryColor,
		"secondaryColor": card.SecondaryColor,
		"textColor":      card.TextColor,
		"showBarcode":    card.ShowBarcode,
		"barcodeType":    card.BarcodeType,
		"validUntil":     formatTime(card.ValidUntil),
	}
}

func paymentResponse(payment *models.Payment) gin.H {
	return gin.H{
		"id":             payment.ID,
		"userId":         payment.UserID,
		"planId":         payment.PlanID,
		"subscriptionId": payment.SubscriptionID,
		"applicationId":  payment.ApplicationID,
		"amount":         utils.FormatAmount(payment.Amount),
		"status":         payment.Status,
		"method":         payment.Method,
		"identifier":     payment.Identifier,
		"transactionId":  payment.TransactionID,
		"completedAt":    formatTime(payment.CompletedAt),
		"createdAt":      payment.CreatedAt.Format(time.RFC3339),
	}
}

// completionResponse reports the state after a payment completion cascade
func completionResponse(result *utils.CompletionResult) gin.H {
	data := gin.H{
		"payment":          paymentResponse(result.Payment),
		"alreadyCompleted": result.AlreadyCompleted,
	}
	if result.Activation != nil {
		data["subscription"] = subscriptionResponse(result.Activation.Subscription)
		data["activated"] = result.Activation.Activated
		data["card"] = cardResponse(result.Activation.Card)
	}
	return data
}
