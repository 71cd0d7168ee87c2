package controllers

import (
	"errors"
	"strings"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreatePlanRequest is the body of POST /plans
type CreatePlanRequest struct {
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	Fee             decimal.Decimal `json:"fee"`
	RenewalInterval string          `json:"renewalInterval" binding:"required"`
	CouponID        *uint           `json:"couponId"`
}

// UpdatePlanRequest is the body of PUT /plans/:id; absent fields are left unchanged
type UpdatePlanRequest struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Fee             *decimal.Decimal `json:"fee"`
	RenewalInterval *string          `json:"renewalInterval"`
	IsActive        *bool            `json:"isActive"`
}

// checkOwnedCoupon verifies the coupon exists and belongs to user
func checkOwnedCoupon(user models.User, couponID uint) error {
	var coupon models.Coupon
	if err := config.DB.First(&coupon, couponID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.BadRequestError(utils.ErrCouponNotFound, nil)
		}
		return err
	}
	if !user.IsAdmin && coupon.CreatedBy != user.ID {
		return utils.ForbiddenError("You do not manage this coupon", nil)
	}
	return nil
}

// CreatePlan creates a membership plan owned by the caller
func CreatePlan(c *gin.Context) {
	utils.LogInfo("CreatePlan called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid plan request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	req.Name = utils.SanitizeString(strings.TrimSpace(req.Name))
	if req.Name == "" {
		utils.BadRequest(c, "Plan name is required", nil)
		return
	}
	if req.Fee.IsNegative() {
		utils.BadRequest(c, "Fee cannot be negative", nil)
		return
	}
	if !models.IsValidRenewalInterval(req.RenewalInterval) {
		utils.BadRequest(c, "Renewal interval must be monthly, quarterly, yearly or one-time", nil)
		return
	}
	if req.CouponID != nil {
		if err := checkOwnedCoupon(user, *req.CouponID); err != nil {
			utils.LogError("Plan coupon %d rejected for user %d: %v", *req.CouponID, user.ID, err)
			utils.RespondWithError(c, "Failed to create plan", err)
			return
		}
	}

	plan := models.Plan{
		Name:            req.Name,
		Description:     utils.SanitizeString(req.Description),
		Fee:             utils.RoundCents(req.Fee),
		RenewalInterval: req.RenewalInterval,
		CouponID:        req.CouponID,
		IsActive:        true,
		CreatedBy:       user.ID,
	}
	if err := config.DB.Create(&plan).Error; err != nil {
		utils.LogError("Failed to create plan for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to create plan", err.Error())
		return
	}

	utils.LogInfo("Plan %d (%s) created by user %d", plan.ID, plan.Name, user.ID)
	utils.Created(c, "Plan created successfully", gin.H{"plan": planResponse(&plan)})
}

// ListPlans lists the plans the caller manages
func ListPlans(c *gin.Context) {
	utils.LogInfo("ListPlans called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Plan{}).Order("created_at DESC")
	if !user.IsAdmin {
		query = query.Where("created_by = ?", user.ID)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	pagination := utils.NewPagination(c)
	var plans []models.Plan
	if err := pagination.Paginate(query, &plans); err != nil {
		utils.LogError("Failed to list plans for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch plans", err.Error())
		return
	}

	list := make([]gin.H, 0, len(plans))
	for i := range plans {
		list = append(list, planResponse(&plans[i]))
	}
	utils.SuccessWithPagination(c, "Plans retrieved successfully", gin.H{"plans": list}, pagination)
}

// GetPlan returns one managed plan
func GetPlan(c *gin.Context) {
	utils.LogInfo("GetPlan called")

	user, ok := requireUser(c)
	if !ok {
		return
	}
	planID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	plan, ok := loadManagedPlan(c, user, planID)
	if !ok {
		return
	}

	var members int64
	config.DB.Model(&models.Subscription{}).
		Where("plan_id = ? AND status = ?", plan.ID, models.SubscriptionStatusActive).
		Count(&members)

	data := planResponse(plan)
	data["activeMembers"] = members
	utils.Success(c, "Plan retrieved successfully", gin.H{"plan": data})
}

// UpdatePlan edits a managed plan
func UpdatePlan(c *gin.Context) {
	utils.LogInfo("UpdatePlan called")

	user, ok := requireUser(c)
	if !ok {
		return
	}
	planID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid plan update request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	plan, ok := loadManagedPlan(c, user, planID)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := utils.SanitizeString(strings.TrimSpace(*req.Name))
		if name == "" {
			utils.BadRequest(c, "Plan name is required", nil)
			return
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = utils.SanitizeString(*req.Description)
	}
	if req.Fee != nil {
		if req.Fee.IsNegative() {
			utils.BadRequest(c, "Fee cannot be negative", nil)
			return
		}
		updates["fee"] = utils.RoundCents(*req.Fee)
	}
	if req.RenewalInterval != nil {
		if !models.IsValidRenewalInterval(*req.RenewalInterval) {
			utils.BadRequest(c, "Renewal interval must be monthly, quarterly, yearly or one-time", nil)
			return
		}
		updates["renewal_interval"] = *req.RenewalInterval
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		utils.BadRequest(c, "No changes provided", nil)
		return
	}

	if err := config.DB.Model(plan).Updates(updates).Error; err != nil {
		utils.LogError("Failed to update plan %d: %v", plan.ID, err)
		utils.InternalServerError(c, "Failed to update plan", err.Error())
		return
	}
	if err := config.DB.First(plan, plan.ID).Error; err != nil {
		utils.InternalServerError(c, "Failed to reload plan", err.Error())
		return
	}

	utils.LogInfo("Plan %d updated by user %d", plan.ID, user.ID)
	utils.Success(c, utils.MsgUpdateSuccess, gin.H{"plan": planResponse(plan)})
}

// SetPlanCoupon associates a coupon with a plan, or clears it when couponId is null
func SetPlanCoupon(c *gin.Context) {
	utils.LogInfo("SetPlanCoupon called")

	user, ok := requireUser(c)
	if !ok {
		return
	}
	planID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CouponID *uint `json:"couponId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	plan, ok := loadManagedPlan(c, user, planID)
	if !ok {
		return
	}
	if req.CouponID != nil {
		if err := checkOwnedCoupon(user, *req.CouponID); err != nil {
			utils.LogError("Coupon %d cannot be attached to plan %d: %v", *req.CouponID, plan.ID, err)
			utils.RespondWithError(c, "Failed to update plan coupon", err)
			return
		}
	}

	if err := config.DB.Model(plan).Update("coupon_id", req.CouponID).Error; err != nil {
		utils.LogError("Failed to set coupon on plan %d: %v", plan.ID, err)
		utils.InternalServerError(c, "Failed to update plan coupon", err.Error())
		return
	}
	plan.CouponID = req.CouponID

	utils.LogInfo("Plan %d coupon set to %v by user %d", plan.ID, req.CouponID, user.ID)
	utils.Success(c, "Plan coupon updated successfully", gin.H{"plan": planResponse(plan)})
}
