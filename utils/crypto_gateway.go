package utils

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// CryptoInvoice is a hosted invoice on the crypto payment gateway
type CryptoInvoice struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
	Status     string `json:"status"`
}

// CryptoGateway creates crypto invoices and reports their status
type CryptoGateway interface {
	CreateInvoice(ctx context.Context, amount decimal.Decimal, currency, orderID, description string) (*CryptoInvoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*CryptoInvoice, error)
	VerifyIPNSignature(body []byte, signature string) bool
}

// Crypto is the crypto gateway used by the handlers; nil when not configured
var Crypto CryptoGateway

// Gateway invoice statuses mapped onto payment statuses
var (
	cryptoCompletedStatuses = map[string]bool{"finished": true, "confirmed": true, "paid": true}
	cryptoFailedStatuses    = map[string]bool{"failed": true, "expired": true, "refunded": true}
)

// CryptoPaymentStatus maps a gateway invoice status onto a payment status
func CryptoPaymentStatus(gatewayStatus string) string {
	s := strings.ToLower(gatewayStatus)
	switch {
	case cryptoCompletedStatuses[s]:
		return models.PaymentStatusCompleted
	case cryptoFailedStatuses[s]:
		return models.PaymentStatusFailed
	}
	return models.PaymentStatusPending
}

// CryptoGatewayClient is a JSON-over-HTTP client guarded by a circuit breaker
type CryptoGatewayClient struct {
	baseURL    string
	apiKey     string
	ipnSecret  string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[[]byte]
}

// NewCryptoGatewayClient creates a client for the gateway at baseURL
func NewCryptoGatewayClient(baseURL, apiKey, ipnSecret string) *CryptoGatewayClient {
	settings := gobreaker.Settings{
		Name:        "crypto-gateway",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			LogWarn("Circuit breaker '%s' changed from %s to %s", name, from, to)
		},
	}
	return &CryptoGatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		ipnSecret:  ipnSecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

func (c *CryptoGatewayClient) do(ctx context.Context, endpoint, method, path string, payload interface{}) ([]byte, error) {
	body, err := c.cb.Execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("crypto gateway %s %s returned %d: %s", method, path, resp.StatusCode, string(data))
		}
		return data, nil
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	CryptoGatewayRequestsTotal.WithLabelValues(endpoint, status).Inc()
	return body, err
}

// CreateInvoice opens a hosted invoice for amount
func (c *CryptoGatewayClient) CreateInvoice(ctx context.Context, amount decimal.Decimal, currency, orderID, description string) (*CryptoInvoice, error) {
	payload := map[string]interface{}{
		"price_amount":      amount.StringFixed(2),
		"price_currency":    strings.ToLower(currency),
		"order_id":          orderID,
		"order_description": description,
	}
	data, err := c.do(ctx, "create_invoice", http.MethodPost, "/invoice", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create crypto invoice: %w", err)
	}

	var invoice CryptoInvoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return nil, fmt.Errorf("failed to decode crypto invoice: %w", err)
	}
	if invoice.ID == "" {
		return nil, fmt.Errorf("crypto invoice response has no id")
	}
	return &invoice, nil
}

// GetInvoice fetches the current state of an invoice
func (c *CryptoGatewayClient) GetInvoice(ctx context.Context, invoiceID string) (*CryptoInvoice, error) {
	data, err := c.do(ctx, "get_invoice", http.MethodGet, "/invoice/"+url.PathEscape(invoiceID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch crypto invoice %s: %w", invoiceID, err)
	}

	var invoice CryptoInvoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return nil, fmt.Errorf("failed to decode crypto invoice: %w", err)
	}
	return &invoice, nil
}

// VerifyIPNSignature checks X-Crypto-Signature, the hex HMAC-SHA512 of the raw body
func (c *CryptoGatewayClient) VerifyIPNSignature(body []byte, signature string) bool {
	if c.ipnSecret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(SignHMACSHA512(c.ipnSecret, body)), []byte(strings.ToLower(signature)))
}
