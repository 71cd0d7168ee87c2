package controllers

import (
	"errors"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetPublicPlan returns an active plan for the application form
func GetPublicPlan(c *gin.Context) {
	utils.LogInfo("GetPublicPlan called")

	planID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var plan models.Plan
	if err := config.DB.Where("id = ? AND is_active = ?", planID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError("Active plan not found: %d", planID)
			utils.NotFound(c, utils.ErrPlanNotFound)
			return
		}
		utils.LogError("Failed to load plan %d: %v", planID, err)
		utils.InternalServerError(c, "Failed to load plan", err.Error())
		return
	}

	data := planResponse(&plan)
	// the associated coupon id is not public; the form only needs to know one exists
	delete(data, "couponId")
	delete(data, "createdBy")
	utils.Success(c, "Plan retrieved successfully", gin.H{"plan": data})
}

// ValidateCouponRequest is the body of POST /public/validate-coupon
type ValidateCouponRequest struct {
	CouponCode string `json:"couponCode" binding:"required"`
	PlanID     uint   `json:"planId" binding:"required"`
}

// ValidateCoupon prices a coupon against a plan without redeeming it
func ValidateCoupon(c *gin.Context) {
	utils.LogInfo("ValidateCoupon called")

	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid coupon validation request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	utils.LogInfo("Validating coupon %s for plan %d", utils.NormalizeCouponCode(req.CouponCode), req.PlanID)

	quote, err := utils.QuoteCoupon(config.DB, req.CouponCode, req.PlanID, time.Now())
	if err != nil {
		utils.CouponValidationsTotal.WithLabelValues("rejected").Inc()
		utils.LogInfo("Coupon %s rejected for plan %d: %v", req.CouponCode, req.PlanID, err)
		utils.RespondWithError(c, "Failed to validate coupon", err)
		return
	}
	utils.CouponValidationsTotal.WithLabelValues("accepted").Inc()

	utils.Success(c, "Coupon applied successfully", gin.H{
		"coupon": gin.H{
			"id":             quote.Coupon.ID,
			"code":           quote.Coupon.Code,
			"discountType":   quote.Coupon.DiscountType,
			"discount":       utils.FormatAmount(quote.Coupon.Discount),
			"originalAmount": utils.FormatAmount(quote.OriginalAmount),
			"discountAmount": utils.FormatAmount(quote.DiscountAmount),
			"finalAmount":    utils.FormatAmount(quote.FinalAmount),
		},
	})
}
