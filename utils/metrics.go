package utils

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)

	// Membership metrics
	CouponValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_coupon_validations_total",
			Help: "Coupon validations by outcome",
		},
		[]string{"result"},
	)
	PaymentReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_payment_reconciliations_total",
			Help: "Application payment reconciliations by outcome",
		},
		[]string{"result", "source"},
	)
	PaymentsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_payments_completed_total",
			Help: "Payments marked completed, by the path that completed them",
		},
		[]string{"source"},
	)
	SubscriptionsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "membership_subscriptions_activated_total",
			Help: "Subscriptions moved to active",
		},
	)
	DigitalCardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_digital_cards_total",
			Help: "Digital card provisioning attempts by outcome",
		},
		[]string{"result"},
	)
	RemindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_reminders_sent_total",
			Help: "Renewal reminders sent by kind",
		},
		[]string{"kind"},
	)
	CryptoGatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypto_gateway_requests_total",
			Help: "Total number of crypto gateway API requests",
		},
		[]string{"endpoint", "status"},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			CouponValidationsTotal,
			PaymentReconciliationsTotal,
			PaymentsCompletedTotal,
			SubscriptionsActivatedTotal,
			DigitalCardsTotal,
			RemindersSentTotal,
			CryptoGatewayRequestsTotal,
		)
	})
}
