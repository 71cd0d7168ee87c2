package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

// fakeOrderGateway mints order ids locally and checks signatures like the real gateway
type fakeOrderGateway struct {
	verifier *utils.RazorpayGateway
	orders   int
}

func (g *fakeOrderGateway) CreateOrder(amount decimal.Decimal, currency, receipt string) (string, error) {
	g.orders++
	return fmt.Sprintf("order_test_%d", g.orders), nil
}

func (g *fakeOrderGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return g.verifier.VerifyPaymentSignature(orderID, paymentID, signature)
}

func (g *fakeOrderGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return g.verifier.VerifyWebhookSignature(body, signature)
}

// fakeCryptoGateway serves invoices from memory
type fakeCryptoGateway struct {
	ipnSecret string
	statuses  map[string]string
}

func (g *fakeCryptoGateway) CreateInvoice(ctx context.Context, amount decimal.Decimal, currency, orderID, description string) (*utils.CryptoInvoice, error) {
	id := fmt.Sprintf("inv_%d", len(g.statuses)+1)
	g.statuses[id] = "waiting"
	return &utils.CryptoInvoice{ID: id, InvoiceURL: "https://pay.example.com/" + id, Status: "waiting"}, nil
}

func (g *fakeCryptoGateway) GetInvoice(ctx context.Context, invoiceID string) (*utils.CryptoInvoice, error) {
	return &utils.CryptoInvoice{ID: invoiceID, Status: g.statuses[invoiceID]}, nil
}

func (g *fakeCryptoGateway) VerifyIPNSignature(body []byte, signature string) bool {
	return signature != "" && utils.SignHMACSHA512(g.ipnSecret, body) == signature
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := utils.SetupTestDB(t)
	return SetupRouter(config.AppConfig), db
}

func installFakeGateway(t *testing.T) *fakeOrderGateway {
	t.Helper()
	gateway := &fakeOrderGateway{
		verifier: utils.NewRazorpayGateway("rzp_test_key", "key-secret", "hook-secret"),
	}
	previous := utils.Razorpay
	utils.Razorpay = gateway
	t.Cleanup(func() { utils.Razorpay = previous })
	return gateway
}

func data(t *testing.T, resp utils.TestResponse) map[string]interface{} {
	t.Helper()
	d, ok := resp.Body["data"].(map[string]interface{})
	require.True(t, ok, string(resp.Raw))
	return d
}

func sessionCookie(resp utils.TestResponse) string {
	for _, c := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(c, "membersphere=") {
			return strings.SplitN(c, ";", 2)[0]
		}
	}
	return ""
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)
	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/health"})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestValidateCouponEndpoint(t *testing.T) {
	router, db := setupRouter(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "50", models.RenewalMonthly)
	utils.CreateTestCoupon(t, db, owner, "SAVE20", models.DiscountTypePercentage, "20")

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/validate-coupon",
		Body:   map[string]interface{}{"couponCode": "save20", "planId": plan.ID},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	coupon := data(t, resp)["coupon"].(map[string]interface{})
	assert.Equal(t, "50.00", coupon["originalAmount"])
	assert.Equal(t, "10.00", coupon["discountAmount"])
	assert.Equal(t, "40.00", coupon["finalAmount"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/validate-coupon",
		Body:   map[string]interface{}{"couponCode": "NOPE", "planId": plan.ID},
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, false)
	assert.Equal(t, "Invalid or inactive coupon code", resp.Body["message"])
}

func TestApplicationToActiveMembership(t *testing.T) {
	router, db := setupRouter(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "30", models.RenewalYearly)
	utils.CreateTestCoupon(t, db, owner, "SAVE10", models.DiscountTypeFixed, "10")

	applyBody := map[string]interface{}{
		"email":      "Ada@Example.com",
		"firstName":  "Ada",
		"lastName":   "Lovelace",
		"planId":     plan.ID,
		"formData":   map[string]interface{}{"company": "Analytical Engines"},
		"couponCode": "SAVE10",
	}

	// Submit the application
	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodPost, Path: "/api/public/apply", Body: applyBody})
	utils.AssertResponse(t, resp, http.StatusCreated, true)
	application := data(t, resp)["application"].(map[string]interface{})
	assert.Equal(t, models.ApplicationStatusIncomplete, application["status"])
	assert.Equal(t, "20.00", application["finalAmount"])
	assert.Equal(t, "SAVE10", application["couponCode"])
	appID := uint(application["id"].(float64))

	cookie := sessionCookie(resp)
	require.NotEmpty(t, cookie)

	// Resume it from the session
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/api/public/application/current",
		Headers: map[string]string{"Cookie": cookie},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, float64(appID), data(t, resp)["application"].(map[string]interface{})["id"])

	// Applying again returns the same draft
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodPost, Path: "/api/public/apply", Body: applyBody})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, true, data(t, resp)["isIncomplete"])

	// Pay the discounted amount
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment",
		Body: map[string]interface{}{
			"applicationId": appID,
			"planId":        plan.ID,
			"amount":        "20.00",
			"paymentMethod": models.PaymentMethodManual,
		},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, models.ApplicationStatusPending, data(t, resp)["status"])
	assert.NotEmpty(t, data(t, resp)["transactionId"])

	// Approve it
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    fmt.Sprintf("/api/applications/%d/approve", appID),
		Headers: utils.AuthHeader(t, owner),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	payment := data(t, resp)["payment"].(map[string]interface{})
	assert.Equal(t, models.PaymentStatusPending, payment["status"])
	assert.Equal(t, "20.00", payment["amount"])
	subscription := data(t, resp)["subscription"].(map[string]interface{})
	assert.Equal(t, models.SubscriptionStatusPending, subscription["status"])

	var coupon models.Coupon
	require.NoError(t, db.Where("code = ?", "SAVE10").First(&coupon).Error)
	assert.Equal(t, 1, coupon.CurrentRedemptions)

	// Confirm the manual payment
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPut,
		Path:    fmt.Sprintf("/api/payments/%d/status", uint(payment["id"].(float64))),
		Body:    map[string]interface{}{"status": "completed"},
		Headers: utils.AuthHeader(t, owner),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, true, data(t, resp)["activated"])
	subscription = data(t, resp)["subscription"].(map[string]interface{})
	assert.Equal(t, models.SubscriptionStatusActive, subscription["status"])
	card := data(t, resp)["card"].(map[string]interface{})
	assert.Equal(t, "Ada Lovelace", card["holderName"])
	subID := uint(subscription["id"].(float64))

	var member models.User
	require.NoError(t, db.Where("email = ?", "ada@example.com").First(&member).Error)

	// The member sees the membership and downloads the card
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/api/subscriptions/me",
		Headers: utils.AuthHeader(t, &member),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	subs := data(t, resp)["subscriptions"].([]interface{})
	require.Len(t, subs, 1)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    fmt.Sprintf("/api/subscriptions/%d/card.pdf", subID),
		Headers: utils.AuthHeader(t, &member),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(resp.Raw), "%PDF"))

	// The owner exports the roster
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    fmt.Sprintf("/api/plans/%d/members.xlsx", plan.ID),
		Headers: utils.AuthHeader(t, owner),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	workbook, err := xlsx.OpenBinary(resp.Raw)
	require.NoError(t, err)
	require.Len(t, workbook.Sheets, 1)
	rows := workbook.Sheets[0].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "Member Number", rows[0].Cells[0].Value)
	assert.Equal(t, subscription["memberNumber"], rows[1].Cells[0].Value)
	assert.Equal(t, "ada@example.com", rows[1].Cells[2].Value)

	var cards int64
	db.Model(&models.DigitalCard{}).Where("is_template = ?", false).Count(&cards)
	assert.Equal(t, int64(1), cards)
}

func TestApplicationPaymentAmountMismatch(t *testing.T) {
	router, db := setupRouter(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "30", models.RenewalMonthly)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/apply",
		Body:   map[string]interface{}{"email": "bob@example.com", "firstName": "Bob", "lastName": "Jones", "planId": plan.ID},
	})
	utils.AssertResponse(t, resp, http.StatusCreated, true)
	appID := data(t, resp)["application"].(map[string]interface{})["id"]

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment",
		Body: map[string]interface{}{
			"applicationId": appID,
			"planId":        plan.ID,
			"amount":        25,
			"paymentMethod": models.PaymentMethodManual,
		},
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, false)
	assert.Equal(t, "Payment amount mismatch: expected 30.00, received 25.00", resp.Body["message"])

	var app models.Application
	require.NoError(t, db.First(&app, uint(appID.(float64))).Error)
	assert.Equal(t, models.ApplicationStatusIncomplete, app.Status)
}

func TestRazorpayCheckoutAndWebhook(t *testing.T) {
	router, db := setupRouter(t)
	gateway := installFakeGateway(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "30", models.RenewalMonthly)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/apply",
		Body:   map[string]interface{}{"email": "cara@example.com", "firstName": "Cara", "lastName": "Diaz", "planId": plan.ID},
	})
	utils.AssertResponse(t, resp, http.StatusCreated, true)
	appID := data(t, resp)["application"].(map[string]interface{})["id"]

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment/order",
		Body:   map[string]interface{}{"applicationId": appID},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	orderID := data(t, resp)["orderId"].(string)
	assert.Equal(t, float64(3000), data(t, resp)["amountInPaise"])
	assert.Equal(t, 1, gateway.orders)

	// A forged checkout signature is refused
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment",
		Body: map[string]interface{}{
			"applicationId": appID,
			"planId":        plan.ID,
			"amount":        "30.00",
			"paymentMethod": models.PaymentMethodRazorpay,
			"paymentDetails": map[string]interface{}{
				"razorpay_order_id":   orderID,
				"razorpay_payment_id": "pay_1",
				"razorpay_signature":  "forged",
			},
		},
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, false)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment",
		Body: map[string]interface{}{
			"applicationId": appID,
			"planId":        plan.ID,
			"amount":        "30.00",
			"paymentMethod": models.PaymentMethodRazorpay,
			"paymentDetails": map[string]interface{}{
				"razorpay_order_id":   orderID,
				"razorpay_payment_id": "pay_1",
				"razorpay_signature":  utils.SignHMACSHA256("key-secret", orderID+"|pay_1"),
			},
		},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, "pay_1", data(t, resp)["transactionId"])

	payment, err := utils.FindPaymentByIdentifier(db, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Nil(t, payment.SubscriptionID)

	// Approval activates straight away because the gateway already captured the money
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    fmt.Sprintf("/api/applications/%d/approve", uint(appID.(float64))),
		Headers: utils.AuthHeader(t, owner),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, true, data(t, resp)["activated"])
	assert.NotNil(t, data(t, resp)["card"])
}

func applyForPlan(t *testing.T, router *gin.Engine, plan *models.Plan, email, couponCode string) uint {
	t.Helper()
	body := map[string]interface{}{"email": email, "firstName": "Dev", "lastName": "Patel", "planId": plan.ID}
	if couponCode != "" {
		body["couponCode"] = couponCode
	}
	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodPost, Path: "/api/public/apply", Body: body})
	utils.AssertResponse(t, resp, http.StatusCreated, true)
	return uint(data(t, resp)["application"].(map[string]interface{})["id"].(float64))
}

func razorpaySubmission(appID, planID uint, amount, orderID, paymentID string) map[string]interface{} {
	return map[string]interface{}{
		"applicationId": appID,
		"planId":        planID,
		"amount":        amount,
		"paymentMethod": models.PaymentMethodRazorpay,
		"paymentDetails": map[string]interface{}{
			"razorpay_order_id":   orderID,
			"razorpay_payment_id": paymentID,
			"razorpay_signature":  utils.SignHMACSHA256("key-secret", orderID+"|"+paymentID),
		},
	}
}

func TestApprovalUsesCapturedPaymentOverAbandonedOrder(t *testing.T) {
	router, db := setupRouter(t)
	gateway := installFakeGateway(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "30", models.RenewalMonthly)
	appID := applyForPlan(t, router, plan, "dev@example.com", "")

	// Reopening checkout returns the order already open
	var orderIDs []string
	for i := 0; i < 2; i++ {
		resp := utils.MakeTestRequest(t, router, utils.TestRequest{
			Method: http.MethodPost,
			Path:   "/api/public/application-payment/order",
			Body:   map[string]interface{}{"applicationId": appID},
		})
		utils.AssertResponse(t, resp, http.StatusOK, true)
		orderIDs = append(orderIDs, data(t, resp)["orderId"].(string))
	}
	assert.Equal(t, orderIDs[0], orderIDs[1])
	assert.Equal(t, 1, gateway.orders)
	paidOrder := orderIDs[0]

	// A later checkout the applicant walked away from
	abandoned := "order_abandoned"
	require.NoError(t, db.Create(&models.Payment{PlanID: plan.ID, ApplicationID: &appID, Amount: plan.Fee,
		Status: models.PaymentStatusPending, Method: models.PaymentMethodRazorpay, Identifier: &abandoned}).Error)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment",
		Body:   razorpaySubmission(appID, plan.ID, "30.00", paidOrder, "pay_paid"),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    fmt.Sprintf("/api/applications/%d/approve", appID),
		Headers: utils.AuthHeader(t, owner),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, true, data(t, resp)["activated"])
	subscription := data(t, resp)["subscription"].(map[string]interface{})
	assert.Equal(t, models.SubscriptionStatusActive, subscription["status"])

	paid, err := utils.FindPaymentByIdentifier(db, paidOrder)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, paid.Status)
	require.NotNil(t, paid.SubscriptionID)
	assert.Equal(t, subscription["id"], float64(*paid.SubscriptionID))

	left, err := utils.FindPaymentByIdentifier(db, abandoned)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, left.Status)
	assert.Nil(t, left.SubscriptionID)
}

func TestRazorpaySubmissionMustMatchCapturedAmount(t *testing.T) {
	router, db := setupRouter(t)
	installFakeGateway(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "30", models.RenewalMonthly)
	utils.CreateTestCoupon(t, db, owner, "SAVE10", models.DiscountTypeFixed, "10")
	appID := applyForPlan(t, router, plan, "eve@example.com", "SAVE10")

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment/order",
		Body:   map[string]interface{}{"applicationId": appID},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	orderID := data(t, resp)["orderId"].(string)
	assert.Equal(t, "20.00", data(t, resp)["amount"])

	// Lower than the order even though a coupon is on the application
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment",
		Body:   razorpaySubmission(appID, plan.ID, "15.00", orderID, "pay_low"),
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, false)
	assert.Equal(t, "Payment amount mismatch: order "+orderID+" was for 20.00, received 15.00", resp.Body["message"])

	var app models.Application
	require.NoError(t, db.First(&app, appID).Error)
	assert.Equal(t, models.ApplicationStatusIncomplete, app.Status)
	assert.Equal(t, "20.00", utils.FormatAmount(app.FinalAmount))

	payment, err := utils.FindPaymentByIdentifier(db, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/application-payment",
		Body:   razorpaySubmission(appID, plan.ID, "20.00", orderID, "pay_ok"),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, "20.00", data(t, resp)["amount"])
}

func TestRazorpayWebhookSignature(t *testing.T) {
	router, db := setupRouter(t)
	installFakeGateway(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	member := utils.CreateTestUser(t, db, "member@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "15", models.RenewalMonthly)

	orderID := "order_hook_1"
	payment := models.Payment{UserID: member.ID, PlanID: plan.ID, Amount: plan.Fee, Status: models.PaymentStatusPending,
		Method: models.PaymentMethodRazorpay, Identifier: &orderID}
	require.NoError(t, db.Create(&payment).Error)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_hook_1","status":"captured"}}}}`)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/webhooks/razorpay",
		RawBody: body,
		Headers: map[string]string{"X-Razorpay-Signature": utils.SignHMACSHA256("wrong-secret", string(body))},
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, false)
	assert.Equal(t, "Invalid webhook signature", resp.Body["message"])

	var stored models.Payment
	require.NoError(t, db.First(&stored, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)

	signature := utils.SignHMACSHA256("hook-secret", string(body))
	for i := 0; i < 2; i++ {
		resp = utils.MakeTestRequest(t, router, utils.TestRequest{
			Method:  http.MethodPost,
			Path:    "/api/webhooks/razorpay",
			RawBody: body,
			Headers: map[string]string{"X-Razorpay-Signature": signature},
		})
		utils.AssertResponse(t, resp, http.StatusOK, true)
	}
	assert.Equal(t, true, data(t, resp)["alreadyCompleted"])

	require.NoError(t, db.First(&stored, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	require.NotNil(t, stored.SubscriptionID)

	var sub models.Subscription
	require.NoError(t, db.First(&sub, *stored.SubscriptionID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)

	var cards int64
	db.Model(&models.DigitalCard{}).Where("subscription_id = ?", sub.ID).Count(&cards)
	assert.Equal(t, int64(1), cards)

	unknown := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_unknown"}}}}`)
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/webhooks/razorpay",
		RawBody: unknown,
		Headers: map[string]string{"X-Razorpay-Signature": utils.SignHMACSHA256("hook-secret", string(unknown))},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, "Event ignored", resp.Body["message"])
}

func TestAuthAndOwnership(t *testing.T) {
	router, db := setupRouter(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	stranger := utils.CreateTestUser(t, db, "stranger@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "15", models.RenewalMonthly)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/plans"})
	utils.AssertResponse(t, resp, http.StatusUnauthorized, false)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/api/plans",
		Headers: map[string]string{"Authorization": "Bearer not-a-token"},
	})
	utils.AssertResponse(t, resp, http.StatusUnauthorized, false)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    fmt.Sprintf("/api/plans/%d/members.xlsx", plan.ID),
		Headers: utils.AuthHeader(t, stranger),
	})
	utils.AssertResponse(t, resp, http.StatusForbidden, false)

	payment := models.Payment{UserID: stranger.ID, PlanID: plan.ID, Amount: plan.Fee, Status: models.PaymentStatusPending}
	require.NoError(t, db.Create(&payment).Error)
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPut,
		Path:    fmt.Sprintf("/api/payments/%d/status", payment.ID),
		Body:    map[string]interface{}{"status": "completed"},
		Headers: utils.AuthHeader(t, stranger),
	})
	utils.AssertResponse(t, resp, http.StatusForbidden, false)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/admin/reminders/run",
		Headers: utils.AuthHeader(t, owner),
	})
	utils.AssertResponse(t, resp, http.StatusForbidden, false)

	require.NoError(t, db.Model(stranger).Update("is_blocked", true).Error)
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/api/subscriptions/me",
		Headers: utils.AuthHeader(t, stranger),
	})
	utils.AssertResponse(t, resp, http.StatusForbidden, false)
}

func TestPlanAndCouponManagement(t *testing.T) {
	router, db := setupRouter(t)
	owner := utils.CreateTestUser(t, db, "owner@example.com")
	headers := utils.AuthHeader(t, owner)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/coupons",
		Body:    map[string]interface{}{"code": "vip50", "discount": "50", "discountType": "percentage"},
		Headers: headers,
	})
	utils.AssertResponse(t, resp, http.StatusCreated, true)
	couponID := data(t, resp)["coupon"].(map[string]interface{})["id"]

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/plans",
		Body:    map[string]interface{}{"name": "VIP", "fee": "80", "renewalInterval": "quarterly", "couponId": couponID},
		Headers: headers,
	})
	utils.AssertResponse(t, resp, http.StatusCreated, true)
	plan := data(t, resp)["plan"].(map[string]interface{})
	assert.Equal(t, "80.00", plan["fee"])
	assert.Equal(t, true, plan["hasCoupon"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/public/plans/%v", plan["id"]),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	public := data(t, resp)["plan"].(map[string]interface{})
	assert.NotContains(t, public, "couponId")
	assert.Equal(t, true, public["hasCoupon"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/coupons",
		Body:    map[string]interface{}{"code": "bad", "discount": "5", "discountType": "bogus"},
		Headers: headers,
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, false)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/api/public/validate-coupon",
		Body:   map[string]interface{}{"couponCode": "VIP50", "planId": plan["id"]},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, "40.00", data(t, resp)["coupon"].(map[string]interface{})["finalAmount"])
}

func TestCryptoInvoicePollAndWebhook(t *testing.T) {
	router, db := setupRouter(t)
	gateway := &fakeCryptoGateway{ipnSecret: "ipn-secret", statuses: map[string]string{}}
	previous := utils.Crypto
	utils.Crypto = gateway
	t.Cleanup(func() { utils.Crypto = previous })

	owner := utils.CreateTestUser(t, db, "owner@example.com")
	member := utils.CreateTestUser(t, db, "member@example.com")
	plan := utils.CreateTestPlan(t, db, owner, "12", models.RenewalOneTime)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/payments/crypto/invoice",
		Body:    map[string]interface{}{"planId": plan.ID},
		Headers: utils.AuthHeader(t, member),
	})
	utils.AssertResponse(t, resp, http.StatusCreated, true)
	invoiceID := data(t, resp)["invoiceId"].(string)

	// Still waiting on the gateway
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/api/payments/crypto/" + invoiceID + "/status",
		Headers: utils.AuthHeader(t, member),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)

	// Someone else cannot poll it
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/api/payments/crypto/" + invoiceID + "/status",
		Headers: utils.AuthHeader(t, owner),
	})
	utils.AssertResponse(t, resp, http.StatusForbidden, false)

	// A forged notification is refused
	body := []byte(fmt.Sprintf(`{"invoice_id":%q,"payment_status":"finished"}`, invoiceID))
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/webhooks/crypto",
		RawBody: body,
		Headers: map[string]string{"X-Crypto-Signature": utils.SignHMACSHA512("nope", body)},
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, false)

	payment, err := utils.FindPaymentByIdentifier(db, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	// The poll completes the payment once the gateway reports it finished
	gateway.statuses[invoiceID] = "finished"
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/api/payments/crypto/" + invoiceID + "/status",
		Headers: utils.AuthHeader(t, member),
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, true, data(t, resp)["activated"])
	subscription := data(t, resp)["subscription"].(map[string]interface{})
	assert.Equal(t, models.SubscriptionStatusActive, subscription["status"])
	assert.Nil(t, subscription["endDate"])

	// A late notification for the same invoice changes nothing
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/webhooks/crypto",
		RawBody: body,
		Headers: map[string]string{"X-Crypto-Signature": utils.SignHMACSHA512("ipn-secret", body)},
	})
	utils.AssertResponse(t, resp, http.StatusOK, true)
	assert.Equal(t, true, data(t, resp)["alreadyCompleted"])
	assert.Equal(t, false, data(t, resp)["activated"])

	var cards int64
	db.Model(&models.DigitalCard{}).Where("is_template = ?", false).Count(&cards)
	assert.Equal(t, int64(1), cards)
}
