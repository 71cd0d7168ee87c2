package controllers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListApplications lists applications for the plans the user manages
func ListApplications(c *gin.Context) {
	utils.LogInfo("ListApplications called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Application{}).Order("created_at DESC")
	if !user.IsAdmin {
		query = query.Where("plan_id IN (?)", ownedPlanIDs(user))
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if planID := c.Query("planId"); planID != "" {
		query = query.Where("plan_id = ?", planID)
	}

	pagination := utils.NewPagination(c)
	var apps []models.Application
	if err := pagination.Paginate(query, &apps); err != nil {
		utils.LogError("Failed to list applications for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch applications", err.Error())
		return
	}

	list := make([]gin.H, 0, len(apps))
	for i := range apps {
		list = append(list, applicationResponse(&apps[i]))
	}
	utils.LogInfo("Retrieved %d applications for user %d", len(list), user.ID)
	utils.SuccessWithPagination(c, "Applications retrieved successfully", gin.H{"applications": list}, pagination)
}

func loadReviewableApplication(c *gin.Context, user models.User) (*models.Application, *models.Plan, bool) {
	applicationID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, nil, false
	}
	app, plan, ok := loadApplicationWithPlan(c, applicationID)
	if !ok {
		return nil, nil, false
	}
	if !canManagePlan(user, plan) {
		utils.LogError("User %d attempted to review application %d", user.ID, app.ID)
		utils.Forbidden(c, "You do not manage this plan")
		return nil, nil, false
	}
	if app.Status != models.ApplicationStatusPending {
		utils.LogError("Application %d is %s, not pending", app.ID, app.Status)
		utils.BadRequest(c, "Only pending applications can be reviewed", nil)
		return nil, nil, false
	}
	return app, plan, true
}

// findOrCreateMember returns the user with the applicant's email, creating it if needed
func findOrCreateMember(tx *gorm.DB, app *models.Application) (*models.User, error) {
	var user models.User
	err := tx.Where("email = ?", app.Email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	user = models.User{
		Username:  app.Email,
		Email:     app.Email,
		FirstName: app.FirstName,
		LastName:  app.LastName,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	utils.LogInfo("Created member account %d for %s", user.ID, app.Email)
	return &user, nil
}

func applicationPaymentMethod(app *models.Application) (string, string) {
	var info models.ApplicationPaymentInfo
	if len(app.PaymentInfo) > 0 {
		if err := json.Unmarshal(app.PaymentInfo, &info); err != nil {
			utils.LogWarn("Unreadable payment info on application %d: %v", app.ID, err)
		}
	}
	switch strings.ToLower(info.PaymentMethod) {
	case models.PaymentMethodRazorpay:
		return models.PaymentMethodRazorpay, info.TransactionID
	case models.PaymentMethodCrypto:
		return models.PaymentMethodCrypto, info.TransactionID
	}
	return models.PaymentMethodManual, info.TransactionID
}

// ApproveApplication turns a pending application into a membership
func ApproveApplication(c *gin.Context) {
	utils.LogInfo("ApproveApplication called")

	reviewer, ok := requireUser(c)
	if !ok {
		return
	}
	app, plan, ok := loadReviewableApplication(c, reviewer)
	if !ok {
		return
	}
	now := time.Now()

	tx := config.DB.Begin()
	if tx.Error != nil {
		utils.LogError("Failed to start transaction: %v", tx.Error)
		utils.InternalServerError(c, "Failed to start transaction", nil)
		return
	}

	member, err := findOrCreateMember(tx, app)
	if err != nil {
		tx.Rollback()
		utils.LogError("Failed to find or create member for %s: %v", app.Email, err)
		utils.InternalServerError(c, "Failed to create member account", err.Error())
		return
	}

	if app.CouponID != nil {
		if err := utils.RedeemCoupon(tx, *app.CouponID); err != nil {
			// the applicant already paid the discounted amount
			utils.LogWarn("Coupon %d not redeemed for application %d: %v", *app.CouponID, app.ID, err)
		}
	}

	// a captured payment wins over checkouts the applicant abandoned
	var payment models.Payment
	err = tx.Where("application_id = ? AND status = ?", app.ID, models.PaymentStatusCompleted).
		Order("id DESC").First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = tx.Where("application_id = ?", app.ID).Order("id DESC").First(&payment).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		method, transactionID := applicationPaymentMethod(app)
		if transactionID == "" {
			transactionID = uuid.New().String()
		}
		payment = models.Payment{
			PlanID:        plan.ID,
			ApplicationID: &app.ID,
			Amount:        app.FinalAmount,
			Status:        models.PaymentStatusPending,
			Method:        method,
			TransactionID: transactionID,
		}
		err = tx.Create(&payment).Error
	}
	if err != nil {
		tx.Rollback()
		utils.LogError("Failed to prepare payment for application %d: %v", app.ID, err)
		utils.InternalServerError(c, "Failed to record payment", err.Error())
		return
	}

	sub, err := utils.CreateSubscription(tx, member.ID, plan.ID)
	if err != nil {
		tx.Rollback()
		utils.LogError("Failed to create subscription for application %d: %v", app.ID, err)
		utils.InternalServerError(c, "Failed to create subscription", err.Error())
		return
	}

	if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(map[string]interface{}{
		"user_id":         member.ID,
		"subscription_id": sub.ID,
	}).Error; err != nil {
		tx.Rollback()
		utils.LogError("Failed to link payment %d: %v", payment.ID, err)
		utils.InternalServerError(c, "Failed to record payment", err.Error())
		return
	}

	res := tx.Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, models.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"status":          models.ApplicationStatusApproved,
			"subscription_id": sub.ID,
			"reviewed_by":     reviewer.ID,
			"reviewed_at":     now,
		})
	if res.Error != nil || res.RowsAffected == 0 {
		tx.Rollback()
		if res.Error != nil {
			utils.LogError("Failed to approve application %d: %v", app.ID, res.Error)
			utils.InternalServerError(c, "Failed to approve application", res.Error.Error())
			return
		}
		utils.LogError("Application %d was reviewed concurrently", app.ID)
		utils.BadRequest(c, "Only pending applications can be reviewed", nil)
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.LogError("Failed to commit approval of application %d: %v", app.ID, err)
		utils.InternalServerError(c, "Failed to commit transaction", nil)
		return
	}

	app.Status = models.ApplicationStatusApproved
	app.SubscriptionID = &sub.ID
	app.ReviewedBy = &reviewer.ID
	app.ReviewedAt = &now
	utils.LogInfo("Application %d approved by %d; subscription %d (%s)", app.ID, reviewer.ID, sub.ID, sub.MemberNumber)

	data := gin.H{"application": applicationResponse(app)}
	sub.Plan = *plan
	data["subscription"] = subscriptionResponse(sub)

	// gateway payments were captured already and free memberships have nothing to collect
	if payment.Status == models.PaymentStatusCompleted || !app.FinalAmount.IsPositive() {
		result, err := utils.CompletePayment(config.DB, payment.ID, utils.CompletionSourceApproval, now)
		if err != nil {
			utils.LogError("Activation failed for application %d: %v", app.ID, err)
		} else {
			for k, v := range completionResponse(result) {
				data[k] = v
			}
		}
	} else {
		utils.LogInfo("Payment %d for application %d awaits manual confirmation", payment.ID, app.ID)
		payment.UserID = member.ID
		payment.SubscriptionID = &sub.ID
		data["payment"] = paymentResponse(&payment)
	}

	utils.SendApplicationApprovedEmail(app, sub, plan.Name)
	utils.Success(c, "Application approved successfully", data)
}

// RejectApplication closes a pending application with a reason
func RejectApplication(c *gin.Context) {
	utils.LogInfo("RejectApplication called")

	reviewer, ok := requireUser(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid rejection request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	app, plan, ok := loadReviewableApplication(c, reviewer)
	if !ok {
		return
	}

	now := time.Now()
	reason := utils.SanitizeString(strings.TrimSpace(req.Reason))
	res := config.DB.Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, models.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"status":           models.ApplicationStatusRejected,
			"rejection_reason": reason,
			"reviewed_by":      reviewer.ID,
			"reviewed_at":      now,
		})
	if res.Error != nil {
		utils.LogError("Failed to reject application %d: %v", app.ID, res.Error)
		utils.InternalServerError(c, "Failed to reject application", res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		utils.BadRequest(c, "Only pending applications can be reviewed", nil)
		return
	}

	app.Status = models.ApplicationStatusRejected
	app.RejectionReason = reason
	app.ReviewedBy = &reviewer.ID
	app.ReviewedAt = &now
	utils.LogInfo("Application %d rejected by %d", app.ID, reviewer.ID)

	utils.SendApplicationRejectedEmail(app, plan.Name)
	utils.Success(c, "Application rejected", gin.H{"application": applicationResponse(app)})
}
