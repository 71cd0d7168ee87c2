package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	rzputils "github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

// OrderGateway creates card-gateway orders and checks the signatures it returns
type OrderGateway interface {
	CreateOrder(amount decimal.Decimal, currency, receipt string) (string, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Razorpay is the order gateway used by the handlers; main installs it at boot
var Razorpay OrderGateway

// RazorpayGateway talks to Razorpay through the official client
type RazorpayGateway struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
}

// NewRazorpayGateway creates a gateway for the given key pair
func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// CreateOrder opens an auto-captured order and returns its id
func (g *RazorpayGateway) CreateOrder(amount decimal.Decimal, currency, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":          ToMinorUnits(amount),
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create razorpay order: %v", err)
	}
	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order response has no id")
	}
	return id, nil
}

// VerifyPaymentSignature checks the checkout signature over "order_id|payment_id"
func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if g.keySecret == "" || signature == "" {
		return false
	}
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return rzputils.VerifyPaymentSignature(params, signature, g.keySecret)
}

// VerifyWebhookSignature checks X-Razorpay-Signature over the raw webhook body
func (g *RazorpayGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	if g.webhookSecret == "" || signature == "" {
		return false
	}
	return rzputils.VerifyWebhookSignature(string(body), signature, g.webhookSecret)
}

// SignHMACSHA256 returns the hex HMAC-SHA256 of data, the scheme Razorpay signs with
func SignHMACSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// SignHMACSHA512 returns the hex HMAC-SHA512 of data
func SignHMACSHA512(secret string, data []byte) string {
	h := hmac.New(sha512.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
