package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListPayments lists the caller's own payments plus the payments for plans they manage
func ListPayments(c *gin.Context) {
	utils.LogInfo("ListPayments called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Payment{}).Order("created_at DESC")
	if !user.IsAdmin {
		query = query.Where("user_id = ? OR plan_id IN (?)", user.ID, ownedPlanIDs(user))
	}
	if status := c.Query("status"); status != "" {
		if !models.IsValidPaymentStatus(status) {
			utils.BadRequest(c, "Invalid payment status filter", nil)
			return
		}
		query = query.Where("status = ?", status)
	}

	pagination := utils.NewPagination(c)
	var payments []models.Payment
	if err := pagination.Paginate(query, &payments); err != nil {
		utils.LogError("Failed to list payments for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch payments", err.Error())
		return
	}

	list := make([]gin.H, 0, len(payments))
	for i := range payments {
		list = append(list, paymentResponse(&payments[i]))
	}
	utils.SuccessWithPagination(c, "Payments retrieved successfully", gin.H{"payments": list}, pagination)
}

// UpdatePaymentStatus lets a plan owner confirm or fail a payment by hand. Completing a payment
// runs the activation cascade.
func UpdatePaymentStatus(c *gin.Context) {
	utils.LogInfo("UpdatePaymentStatus called")

	user, ok := requireUser(c)
	if !ok {
		return
	}
	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid payment status request: %v", err)
		utils.BadRequest(c, "Invalid request. status is required", err.Error())
		return
	}

	var payment models.Payment
	if err := config.DB.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, utils.ErrPaymentNotFound)
			return
		}
		utils.InternalServerError(c, "Failed to load payment", err.Error())
		return
	}

	var plan models.Plan
	if err := config.DB.Unscoped().First(&plan, payment.PlanID).Error; err != nil {
		utils.LogError("Plan %d of payment %d not found: %v", payment.PlanID, payment.ID, err)
		utils.NotFound(c, utils.ErrPlanNotFound)
		return
	}
	if !canManagePlan(user, &plan) {
		utils.LogError("User %d attempted to update payment %d", user.ID, payment.ID)
		utils.Forbidden(c, "You do not manage this plan")
		return
	}

	switch req.Status {
	case models.PaymentStatusCompleted:
		result, err := utils.CompletePayment(config.DB, payment.ID, utils.CompletionSourceManual, time.Now())
		if err != nil {
			utils.LogError("Failed to complete payment %d: %v", payment.ID, err)
			utils.RespondWithError(c, "Failed to update payment", err)
			return
		}
		utils.LogInfo("Payment %d marked completed by user %d", payment.ID, user.ID)
		utils.Success(c, "Payment status updated successfully", completionResponse(result))
	case models.PaymentStatusFailed:
		failed, err := utils.FailPayment(config.DB, payment.ID)
		if err != nil {
			utils.RespondWithError(c, "Failed to update payment", err)
			return
		}
		utils.LogInfo("Payment %d marked failed by user %d", payment.ID, user.ID)
		utils.Success(c, "Payment status updated successfully", gin.H{"payment": paymentResponse(failed)})
	default:
		utils.BadRequest(c, "Status must be completed or failed", nil)
	}
}

// CreateCryptoInvoice opens a crypto invoice for joining or renewing a plan
func CreateCryptoInvoice(c *gin.Context) {
	utils.LogInfo("CreateCryptoInvoice called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req struct {
		PlanID         uint  `json:"planId" binding:"required"`
		SubscriptionID *uint `json:"subscriptionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid crypto invoice request: %v", err)
		utils.BadRequest(c, "Invalid request. planId is required", err.Error())
		return
	}

	var plan models.Plan
	if err := config.DB.Where("id = ? AND is_active = ?", req.PlanID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, utils.ErrPlanNotFound)
			return
		}
		utils.InternalServerError(c, "Failed to load plan", err.Error())
		return
	}
	if !plan.Fee.IsPositive() {
		utils.BadRequest(c, "This plan has no fee to pay", nil)
		return
	}

	if req.SubscriptionID != nil {
		var sub models.Subscription
		if err := config.DB.Where("id = ? AND user_id = ? AND plan_id = ?", *req.SubscriptionID, user.ID, plan.ID).
			First(&sub).Error; err != nil {
			utils.LogError("Subscription %d not renewable by user %d: %v", *req.SubscriptionID, user.ID, err)
			utils.NotFound(c, utils.ErrSubscriptionMissing)
			return
		}
		if sub.Status == models.SubscriptionStatusCancelled {
			utils.BadRequest(c, "Cancelled subscriptions cannot be renewed", nil)
			return
		}
	}

	if utils.Crypto == nil {
		utils.LogError("Crypto gateway is not configured")
		utils.Error(c, http.StatusServiceUnavailable, "Crypto payments are not available", nil)
		return
	}

	transactionID := uuid.New().String()
	invoice, err := utils.Crypto.CreateInvoice(c.Request.Context(), plan.Fee, config.AppConfig.Currency, transactionID,
		fmt.Sprintf("%s membership", plan.Name))
	if err != nil {
		utils.LogError("Failed to create crypto invoice for user %d: %v", user.ID, err)
		utils.Error(c, http.StatusBadGateway, "Failed to create crypto invoice", err.Error())
		return
	}

	payment := models.Payment{
		UserID:         user.ID,
		PlanID:         plan.ID,
		SubscriptionID: req.SubscriptionID,
		Amount:         plan.Fee,
		Status:         models.PaymentStatusPending,
		Method:         models.PaymentMethodCrypto,
		Identifier:     &invoice.ID,
		TransactionID:  transactionID,
	}
	if err := config.DB.Create(&payment).Error; err != nil {
		utils.LogError("Failed to record crypto invoice %s: %v", invoice.ID, err)
		utils.InternalServerError(c, "Failed to record payment", err.Error())
		return
	}

	utils.LogInfo("Crypto invoice %s created for user %d, plan %d", invoice.ID, user.ID, plan.ID)
	utils.Created(c, "Crypto invoice created successfully", gin.H{
		"payment":    paymentResponse(&payment),
		"invoiceId":  invoice.ID,
		"invoiceUrl": invoice.InvoiceURL,
	})
}

// GetCryptoPaymentStatus polls the gateway for a crypto invoice and applies the result
func GetCryptoPaymentStatus(c *gin.Context) {
	utils.LogInfo("GetCryptoPaymentStatus called")

	user, ok := requireUser(c)
	if !ok {
		return
	}
	identifier := c.Param("identifier")

	payment, err := utils.FindPaymentByIdentifier(config.DB, identifier)
	if err != nil {
		utils.RespondWithError(c, "Failed to load payment", err)
		return
	}
	if payment.Method != models.PaymentMethodCrypto {
		utils.NotFound(c, utils.ErrPaymentNotFound)
		return
	}
	if !user.IsAdmin && payment.UserID != user.ID {
		utils.LogError("User %d polled payment %d of user %d", user.ID, payment.ID, payment.UserID)
		utils.Forbidden(c, "You do not own this payment")
		return
	}

	if payment.Status != models.PaymentStatusPending {
		utils.Success(c, "Payment status retrieved", gin.H{"payment": paymentResponse(payment)})
		return
	}

	if utils.Crypto == nil {
		utils.Error(c, http.StatusServiceUnavailable, "Crypto payments are not available", nil)
		return
	}
	invoice, err := utils.Crypto.GetInvoice(c.Request.Context(), identifier)
	if err != nil {
		utils.LogError("Failed to poll crypto invoice %s: %v", identifier, err)
		utils.Error(c, http.StatusBadGateway, "Failed to reach crypto gateway", err.Error())
		return
	}

	status := utils.CryptoPaymentStatus(invoice.Status)
	utils.LogInfo("Crypto invoice %s is %s (%s)", identifier, invoice.Status, status)
	switch status {
	case models.PaymentStatusCompleted:
		result, err := utils.CompletePayment(config.DB, payment.ID, utils.CompletionSourceCryptoPoll, time.Now())
		if err != nil {
			utils.RespondWithError(c, "Failed to complete payment", err)
			return
		}
		data := completionResponse(result)
		data["gatewayStatus"] = invoice.Status
		utils.Success(c, "Payment completed", data)
	case models.PaymentStatusFailed:
		failed, err := utils.FailPayment(config.DB, payment.ID)
		if err != nil {
			utils.RespondWithError(c, "Failed to update payment", err)
			return
		}
		utils.Success(c, "Payment failed", gin.H{"payment": paymentResponse(failed), "gatewayStatus": invoice.Status})
	default:
		utils.Success(c, "Payment pending", gin.H{"payment": paymentResponse(payment), "gatewayStatus": invoice.Status})
	}
}
