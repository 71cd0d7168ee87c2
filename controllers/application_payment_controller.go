package controllers

import (
	"fmt"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateApplicationOrder opens a Razorpay order for an incomplete application
func CreateApplicationOrder(c *gin.Context) {
	utils.LogInfo("CreateApplicationOrder called")

	var req struct {
		ApplicationID uint `json:"applicationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid order request: %v", err)
		utils.BadRequest(c, "Invalid request. applicationId is required", err.Error())
		return
	}

	app, plan, ok := loadApplicationWithPlan(c, req.ApplicationID)
	if !ok {
		return
	}
	if app.Status != models.ApplicationStatusIncomplete {
		utils.LogError("Order requested for application %d in status %s", app.ID, app.Status)
		utils.BadRequest(c, "Payment has already been recorded for this application", nil)
		return
	}
	if !app.FinalAmount.IsPositive() {
		utils.BadRequest(c, "No payment is required for this application", nil)
		return
	}
	if utils.Razorpay == nil {
		utils.LogError("Razorpay is not configured")
		utils.Error(c, 503, "Card payments are not available", nil)
		return
	}

	currency := config.AppConfig.Currency

	// a reopened checkout pays the order that is already open
	var open models.Payment
	err := config.DB.Where("application_id = ? AND method = ? AND status = ? AND identifier IS NOT NULL",
		app.ID, models.PaymentMethodRazorpay, models.PaymentStatusPending).
		Order("id DESC").First(&open).Error
	if err == nil && utils.AmountsMatch(open.Amount, app.FinalAmount) {
		utils.LogInfo("Reusing Razorpay order %s for application %d", *open.Identifier, app.ID)
		utils.Success(c, "Razorpay order retrieved successfully", orderResponse(&open, currency))
		return
	}

	receipt := fmt.Sprintf("app_rcpt_%d_%d", app.ID, time.Now().Unix())
	var orderID string
	orderID, err = utils.Razorpay.CreateOrder(app.FinalAmount, currency, receipt)
	if err != nil {
		utils.LogError("Failed to create Razorpay order for application %d: %v", app.ID, err)
		utils.InternalServerError(c, "Failed to create Razorpay order", err.Error())
		return
	}

	payment := models.Payment{
		PlanID:        plan.ID,
		ApplicationID: &app.ID,
		Amount:        app.FinalAmount,
		Status:        models.PaymentStatusPending,
		Method:        models.PaymentMethodRazorpay,
		Identifier:    &orderID,
	}
	if err := config.DB.Create(&payment).Error; err != nil {
		utils.LogError("Failed to record order %s for application %d: %v", orderID, app.ID, err)
		utils.InternalServerError(c, "Failed to record payment", err.Error())
		return
	}

	utils.LogInfo("Razorpay order %s created for application %d (%s)", orderID, app.ID, utils.FormatAmount(app.FinalAmount))
	utils.Success(c, "Razorpay order created successfully", orderResponse(&payment, currency))
}

func orderResponse(payment *models.Payment, currency string) gin.H {
	return gin.H{
		"orderId":       *payment.Identifier,
		"paymentId":     payment.ID,
		"amount":        utils.FormatAmount(payment.Amount),
		"amountInPaise": utils.ToMinorUnits(payment.Amount),
		"currency":      currency,
		"key":           config.AppConfig.RazorpayKey,
	}
}

// ApplicationPaymentRequest is the body of POST /public/application-payment
type ApplicationPaymentRequest struct {
	ApplicationID  uint                   `json:"applicationId" binding:"required"`
	PlanID         uint                   `json:"planId" binding:"required"`
	Amount         *decimal.Decimal       `json:"amount" binding:"required"`
	PaymentMethod  string                 `json:"paymentMethod" binding:"required"`
	PaymentDetails map[string]interface{} `json:"paymentDetails"`
}

func detailString(details map[string]interface{}, key string) string {
	if v, ok := details[key].(string); ok {
		return v
	}
	return ""
}

// SubmitApplicationPayment reconciles the amount the applicant paid and moves the application to
// pending review
func SubmitApplicationPayment(c *gin.Context) {
	utils.LogInfo("SubmitApplicationPayment called")

	var req ApplicationPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid application payment request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	app, plan, ok := loadApplicationWithPlan(c, req.ApplicationID)
	if !ok {
		return
	}
	utils.LogInfo("Recording %s payment of %s for application %d", req.PaymentMethod, utils.FormatAmount(*req.Amount), app.ID)

	transactionID := uuid.New().String()
	var gatewayPayment *models.Payment
	if req.PaymentMethod == models.PaymentMethodRazorpay {
		orderID := detailString(req.PaymentDetails, "razorpay_order_id")
		paymentID := detailString(req.PaymentDetails, "razorpay_payment_id")
		signature := detailString(req.PaymentDetails, "razorpay_signature")
		if orderID == "" || paymentID == "" || signature == "" {
			utils.BadRequest(c, "Razorpay payment details are incomplete", nil)
			return
		}
		if utils.Razorpay == nil {
			utils.LogError("Razorpay is not configured")
			utils.Error(c, 503, "Card payments are not available", nil)
			return
		}
		if !utils.Razorpay.VerifyPaymentSignature(orderID, paymentID, signature) {
			utils.LogError("Invalid Razorpay signature for application %d, order %s", app.ID, orderID)
			utils.BadRequest(c, "Invalid payment signature", nil)
			return
		}

		payment, err := utils.FindPaymentByIdentifier(config.DB, orderID)
		if err != nil {
			utils.RespondWithError(c, "Failed to load payment", err)
			return
		}
		if payment.ApplicationID == nil || *payment.ApplicationID != app.ID {
			utils.LogError("Order %s does not belong to application %d", orderID, app.ID)
			utils.BadRequest(c, "Payment does not belong to this application", nil)
			return
		}
		if !utils.AmountsMatch(payment.Amount, *req.Amount) {
			utils.LogError("Application %d claims %s but order %s captured %s",
				app.ID, utils.FormatAmount(*req.Amount), orderID, utils.FormatAmount(payment.Amount))
			utils.BadRequest(c, fmt.Sprintf("Payment amount mismatch: order %s was for %s, received %s",
				orderID, utils.FormatAmount(payment.Amount), utils.FormatAmount(*req.Amount)), nil)
			return
		}
		gatewayPayment = payment
		transactionID = paymentID
	}

	result, err := utils.ReconcileApplicationPayment(config.DB, app, plan, utils.ApplicationPaymentRequest{
		PlanID:         req.PlanID,
		Amount:         *req.Amount,
		PaymentMethod:  req.PaymentMethod,
		TransactionID:  transactionID,
		PaymentDetails: req.PaymentDetails,
	}, time.Now())
	if err != nil {
		utils.RespondWithError(c, "Failed to record payment", err)
		return
	}

	if gatewayPayment != nil {
		if err := config.DB.Model(gatewayPayment).Update("transaction_id", transactionID).Error; err != nil {
			utils.LogError("Failed to store transaction id on payment %d: %v", gatewayPayment.ID, err)
		}
		// the checkout signature proves capture; no member exists yet, so nothing activates
		if _, err := utils.CompletePayment(config.DB, gatewayPayment.ID, utils.CompletionSourceCheckout, time.Now()); err != nil {
			utils.LogError("Failed to complete payment %d for application %d: %v", gatewayPayment.ID, app.ID, err)
		}
	}

	utils.ClearDraftApplication(c)
	utils.SendApplicationReceivedEmail(app, plan.Name)

	utils.LogInfo("Application %d is pending review (accepted %s, expected %s from %s)",
		app.ID, utils.FormatAmount(result.AcceptedAmount), utils.FormatAmount(result.Expected.Amount), result.Expected.Source)
	utils.Success(c, "Payment recorded successfully", gin.H{
		"applicationId": app.ID,
		"transactionId": transactionID,
		"status":        app.Status,
		"amount":        utils.FormatAmount(result.AcceptedAmount),
	})
}
