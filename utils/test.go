package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestJWTSecret signs tokens created by GetTestToken
const TestJWTSecret = "test-secret"

// SetupTestDB opens a private in-memory database for t, migrates it and installs it as config.DB
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", TestJWTSecret)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))

	previousDB, previousConfig := config.DB, config.AppConfig
	config.DB = db
	config.AppConfig = &config.Config{
		Env:                "test",
		Currency:           "INR",
		SessionSecret:      "test-session",
		ReminderDaysBefore: DefaultReminderDays,
	}
	t.Cleanup(func() {
		config.DB, config.AppConfig = previousDB, previousConfig
		sqlDB.Close()
	})
	return db
}

// CreateTestUser creates a user with the given email
func CreateTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Username:  strings.Split(email, "@")[0],
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
	}
	require.NoError(t, db.Create(user).Error, "failed to create test user")
	return user
}

// CreateTestPlan creates an active plan owned by owner
func CreateTestPlan(t *testing.T, db *gorm.DB, owner *models.User, fee string, interval string) *models.Plan {
	t.Helper()
	plan := &models.Plan{
		Name:            "Test Plan",
		Description:     "Test Plan Description",
		Fee:             decimal.RequireFromString(fee),
		RenewalInterval: interval,
		IsActive:        true,
		CreatedBy:       owner.ID,
	}
	require.NoError(t, db.Create(plan).Error, "failed to create test plan")
	return plan
}

// CreateTestCoupon creates an active coupon with no expiry or redemption limit
func CreateTestCoupon(t *testing.T, db *gorm.DB, owner *models.User, code, discountType, discount string) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		Code:         NormalizeCouponCode(code),
		Discount:     decimal.RequireFromString(discount),
		DiscountType: discountType,
		IsActive:     true,
		CreatedBy:    owner.ID,
	}
	require.NoError(t, db.Create(coupon).Error, "failed to create test coupon")
	return coupon
}

// TestRequest represents a test HTTP request
type TestRequest struct {
	Method  string
	Path    string
	Body    interface{}
	RawBody []byte
	Headers map[string]string
}

// TestResponse represents a test HTTP response
type TestResponse struct {
	StatusCode int
	Header     http.Header
	Raw        []byte
	Body       map[string]interface{}
}

// MakeTestRequest makes a test HTTP request
func MakeTestRequest(t *testing.T, router *gin.Engine, req TestRequest) TestResponse {
	t.Helper()
	body := req.RawBody
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		require.NoError(t, err, "failed to marshal request body")
	}

	httpReq, err := http.NewRequest(req.Method, req.Path, bytes.NewBuffer(body))
	require.NoError(t, err, "failed to create request")

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)

	resp := TestResponse{StatusCode: w.Code, Header: w.Header(), Raw: w.Body.Bytes()}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp.Body), "failed to unmarshal response body")
	}
	return resp
}

// AssertResponse asserts the status code and the envelope's success flag
func AssertResponse(t *testing.T, response TestResponse, expectedStatusCode int, expectedSuccess bool) {
	t.Helper()
	assert.Equal(t, expectedStatusCode, response.StatusCode, string(response.Raw))
	assert.Equal(t, expectedSuccess, response.Body["success"], string(response.Raw))
}

// GetTestToken signs a bearer token for user with TestJWTSecret
func GetTestToken(t *testing.T, user *models.User) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(TestJWTSecret))
	require.NoError(t, err, "failed to sign test token")
	return signed
}

// AuthHeader builds the Authorization header for user
func AuthHeader(t *testing.T, user *models.User) map[string]string {
	return map[string]string{"Authorization": "Bearer " + GetTestToken(t, user)}
}
