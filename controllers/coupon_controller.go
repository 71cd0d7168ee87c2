package controllers

import (
	"errors"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateCouponRequest is the body of POST /coupons
type CreateCouponRequest struct {
	Code            string          `json:"code" binding:"required"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountType    string          `json:"discountType" binding:"required,oneof=percentage fixed"`
	ExpiryDate      *time.Time      `json:"expiryDate"`
	MaxRedemptions  *int            `json:"maxRedemptions"`
	ApplicablePlans []uint          `json:"applicablePlans"`
}

// UpdateCouponRequest is the body of PUT /coupons/:id; absent fields are left unchanged
type UpdateCouponRequest struct {
	Discount        *decimal.Decimal `json:"discount"`
	DiscountType    *string          `json:"discountType"`
	ExpiryDate      *time.Time       `json:"expiryDate"`
	MaxRedemptions  *int             `json:"maxRedemptions"`
	IsActive        *bool            `json:"isActive"`
	ApplicablePlans []uint           `json:"applicablePlans"`
}

func loadManagedCoupon(c *gin.Context, user models.User) (*models.Coupon, bool) {
	couponID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	var coupon models.Coupon
	if err := config.DB.First(&coupon, couponID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError("Coupon not found: %d", couponID)
			utils.NotFound(c, utils.ErrCouponNotFound)
			return nil, false
		}
		utils.LogError("Failed to load coupon %d: %v", couponID, err)
		utils.InternalServerError(c, "Failed to load coupon", err.Error())
		return nil, false
	}
	if !user.IsAdmin && coupon.CreatedBy != user.ID {
		utils.LogError("User %d attempted to manage coupon %d", user.ID, coupon.ID)
		utils.Forbidden(c, "You do not manage this coupon")
		return nil, false
	}
	return &coupon, true
}

// CreateCoupon creates a coupon owned by the caller
func CreateCoupon(c *gin.Context) {
	utils.LogInfo("CreateCoupon called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid request format: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	req.Code = utils.NormalizeCouponCode(req.Code)
	utils.LogInfo("Processing coupon creation with code: %s", req.Code)

	if valid, msg := utils.ValidateCouponCode(req.Code); !valid {
		utils.BadRequest(c, msg, nil)
		return
	}
	if err := utils.ValidateCouponValue(req.DiscountType, req.Discount); err != nil {
		utils.LogError("Invalid coupon value for code %s: %v", req.Code, err)
		utils.BadRequest(c, err.Error(), nil)
		return
	}
	if req.ExpiryDate != nil && !req.ExpiryDate.After(time.Now()) {
		utils.LogError("Invalid expiry date for coupon code %s: date is in the past", req.Code)
		utils.BadRequest(c, "Expiry date must be in the future", nil)
		return
	}
	if req.MaxRedemptions != nil && *req.MaxRedemptions <= 0 {
		utils.BadRequest(c, "Max redemptions must be greater than zero", nil)
		return
	}

	var existing models.Coupon
	if err := config.DB.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		utils.LogError("Coupon code already exists: %s", req.Code)
		utils.BadRequest(c, "Coupon code already exists", nil)
		return
	}

	coupon := models.Coupon{
		Code:            req.Code,
		Discount:        utils.RoundCents(req.Discount),
		DiscountType:    req.DiscountType,
		ExpiryDate:      req.ExpiryDate,
		MaxRedemptions:  req.MaxRedemptions,
		IsActive:        true,
		ApplicablePlans: datatypes.NewJSONSlice(req.ApplicablePlans),
		CreatedBy:       user.ID,
	}
	if err := config.DB.Create(&coupon).Error; err != nil {
		utils.LogError("Failed to create coupon: %v", err)
		utils.InternalServerError(c, "Failed to create coupon", err.Error())
		return
	}

	utils.LogInfo("Successfully created coupon with code: %s, ID: %d", coupon.Code, coupon.ID)
	utils.Created(c, "Coupon created successfully", gin.H{"coupon": couponResponse(&coupon, time.Now())})
}

// ListCoupons lists the caller's coupons
func ListCoupons(c *gin.Context) {
	utils.LogInfo("ListCoupons called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Coupon{}).Order("created_at DESC")
	if !user.IsAdmin {
		query = query.Where("created_by = ?", user.ID)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	pagination := utils.NewPagination(c)
	var coupons []models.Coupon
	if err := pagination.Paginate(query, &coupons); err != nil {
		utils.LogError("Failed to list coupons for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch coupons", err.Error())
		return
	}

	now := time.Now()
	list := make([]gin.H, 0, len(coupons))
	for i := range coupons {
		list = append(list, couponResponse(&coupons[i], now))
	}
	utils.SuccessWithPagination(c, "Coupons retrieved successfully", gin.H{"coupons": list}, pagination)
}

// UpdateCoupon edits a coupon
func UpdateCoupon(c *gin.Context) {
	utils.LogInfo("UpdateCoupon called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid coupon update request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	coupon, ok := loadManagedCoupon(c, user)
	if !ok {
		return
	}

	discountType := coupon.DiscountType
	if req.DiscountType != nil {
		discountType = *req.DiscountType
	}
	discount := coupon.Discount
	if req.Discount != nil {
		discount = *req.Discount
	}
	if err := utils.ValidateCouponValue(discountType, discount); err != nil {
		utils.BadRequest(c, err.Error(), nil)
		return
	}

	updates := map[string]interface{}{
		"discount_type": discountType,
		"discount":      utils.RoundCents(discount),
	}
	if req.ExpiryDate != nil {
		if !req.ExpiryDate.After(time.Now()) {
			utils.BadRequest(c, "Expiry date must be in the future", nil)
			return
		}
		updates["expiry_date"] = *req.ExpiryDate
	}
	if req.MaxRedemptions != nil {
		if *req.MaxRedemptions < coupon.CurrentRedemptions || *req.MaxRedemptions <= 0 {
			utils.BadRequest(c, "Max redemptions cannot be below the redemptions already made", nil)
			return
		}
		updates["max_redemptions"] = *req.MaxRedemptions
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.ApplicablePlans != nil {
		updates["applicable_plans"] = datatypes.NewJSONSlice(req.ApplicablePlans)
	}

	if err := config.DB.Model(coupon).Updates(updates).Error; err != nil {
		utils.LogError("Failed to update coupon %d: %v", coupon.ID, err)
		utils.InternalServerError(c, "Failed to update coupon", err.Error())
		return
	}
	if err := config.DB.First(coupon, coupon.ID).Error; err != nil {
		utils.InternalServerError(c, "Failed to reload coupon", err.Error())
		return
	}

	utils.LogInfo("Coupon %d (%s) updated by user %d", coupon.ID, coupon.Code, user.ID)
	utils.Success(c, "Coupon updated successfully", gin.H{"coupon": couponResponse(coupon, time.Now())})
}

// DeactivateCoupon switches a coupon off; it stays on record for past applications
func DeactivateCoupon(c *gin.Context) {
	utils.LogInfo("DeactivateCoupon called")

	user, ok := requireUser(c)
	if !ok {
		return
	}
	coupon, ok := loadManagedCoupon(c, user)
	if !ok {
		return
	}

	if err := config.DB.Model(coupon).Update("is_active", false).Error; err != nil {
		utils.LogError("Failed to deactivate coupon %d: %v", coupon.ID, err)
		utils.InternalServerError(c, "Failed to deactivate coupon", err.Error())
		return
	}
	coupon.IsActive = false

	utils.LogInfo("Coupon %d (%s) deactivated by user %d", coupon.ID, coupon.Code, user.ID)
	utils.Success(c, "Coupon deactivated successfully", gin.H{"coupon": couponResponse(coupon, time.Now())})
}

// DeleteCoupon soft-deletes a coupon. Applications that used it keep their stored amounts.
func DeleteCoupon(c *gin.Context) {
	utils.LogInfo("DeleteCoupon called")

	user, ok := requireUser(c)
	if !ok {
		return
	}
	coupon, ok := loadManagedCoupon(c, user)
	if !ok {
		return
	}

	if err := config.DB.Delete(coupon).Error; err != nil {
		utils.LogError("Failed to delete coupon %d: %v", coupon.ID, err)
		utils.InternalServerError(c, "Failed to delete coupon", err.Error())
		return
	}

	utils.LogInfo("Coupon %d (%s) deleted by user %d", coupon.ID, coupon.Code, user.ID)
	utils.Success(c, "Coupon deleted successfully", nil)
}
