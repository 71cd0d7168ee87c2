package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

type razorpayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type cryptoIPNEvent struct {
	InvoiceID     string `json:"invoice_id"`
	PaymentStatus string `json:"payment_status"`
	OrderID       string `json:"order_id"`
}

// applyGatewayStatus completes or fails the payment behind identifier. Unknown identifiers are
// acknowledged so the gateway stops retrying.
func applyGatewayStatus(c *gin.Context, identifier, status, source string) {
	payment, err := utils.FindPaymentByIdentifier(config.DB, identifier)
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogWarn("Webhook for unknown payment %s ignored", identifier)
			utils.Success(c, "Event ignored", nil)
			return
		}
		utils.RespondWithError(c, "Failed to load payment", err)
		return
	}

	switch status {
	case models.PaymentStatusCompleted:
		result, err := utils.CompletePayment(config.DB, payment.ID, source, time.Now())
		if err != nil {
			utils.LogError("Webhook failed to complete payment %d: %v", payment.ID, err)
			utils.RespondWithError(c, "Failed to complete payment", err)
			return
		}
		utils.Success(c, "Payment completed", completionResponse(result))
	case models.PaymentStatusFailed:
		if payment.Status == models.PaymentStatusCompleted {
			utils.LogWarn("Failure event for completed payment %d ignored", payment.ID)
			utils.Success(c, "Event ignored", nil)
			return
		}
		failed, err := utils.FailPayment(config.DB, payment.ID)
		if err != nil {
			utils.RespondWithError(c, "Failed to update payment", err)
			return
		}
		utils.Success(c, "Payment failed", gin.H{"payment": paymentResponse(failed)})
	default:
		utils.Success(c, "Event ignored", nil)
	}
}

// RazorpayWebhook handles payment events signed with the webhook secret
func RazorpayWebhook(c *gin.Context) {
	utils.LogInfo("RazorpayWebhook called")

	body, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, "Unreadable body", err.Error())
		return
	}
	if utils.Razorpay == nil {
		utils.Error(c, http.StatusServiceUnavailable, "Card payments are not available", nil)
		return
	}
	if !utils.Razorpay.VerifyWebhookSignature(body, c.GetHeader("X-Razorpay-Signature")) {
		utils.LogError("Razorpay webhook with invalid signature rejected")
		utils.BadRequest(c, "Invalid webhook signature", nil)
		return
	}

	var event razorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		utils.BadRequest(c, "Invalid webhook payload", err.Error())
		return
	}
	entity := event.Payload.Payment.Entity
	utils.LogInfo("Razorpay event %s for order %s (payment %s)", event.Event, entity.OrderID, entity.ID)

	status := ""
	switch event.Event {
	case "payment.captured", "order.paid":
		status = models.PaymentStatusCompleted
	case "payment.failed":
		status = models.PaymentStatusFailed
	}
	if entity.OrderID == "" {
		utils.Success(c, "Event ignored", nil)
		return
	}
	applyGatewayStatus(c, entity.OrderID, status, utils.CompletionSourceWebhook)
}

// CryptoWebhook handles instant payment notifications from the crypto gateway
func CryptoWebhook(c *gin.Context) {
	utils.LogInfo("CryptoWebhook called")

	body, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, "Unreadable body", err.Error())
		return
	}
	if utils.Crypto == nil {
		utils.Error(c, http.StatusServiceUnavailable, "Crypto payments are not available", nil)
		return
	}
	if !utils.Crypto.VerifyIPNSignature(body, c.GetHeader("X-Crypto-Signature")) {
		utils.LogError("Crypto webhook with invalid signature rejected")
		utils.BadRequest(c, "Invalid webhook signature", nil)
		return
	}

	var event cryptoIPNEvent
	if err := json.Unmarshal(body, &event); err != nil || event.InvoiceID == "" {
		utils.BadRequest(c, "Invalid webhook payload", nil)
		return
	}
	utils.LogInfo("Crypto IPN for invoice %s: %s", event.InvoiceID, event.PaymentStatus)

	applyGatewayStatus(c, event.InvoiceID, utils.CryptoPaymentStatus(event.PaymentStatus), utils.CompletionSourceCryptoIPN)
}
