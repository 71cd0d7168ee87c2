package controllers

import (
	"errors"
	"strconv"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/middleware"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// requireUser returns the authenticated user or writes a 401
func requireUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.LogError("User not found in context")
		utils.Unauthorized(c, "User not found")
		return models.User{}, false
	}
	return user, true
}

// parseIDParam reads a positive numeric path parameter or writes a 400
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.LogError("Invalid %s parameter: %s", name, c.Param(name))
		utils.BadRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

func canManagePlan(user models.User, plan *models.Plan) bool {
	return user.IsAdmin || plan.CreatedBy == user.ID
}

// loadManagedPlan loads a plan the user owns, writing 404 or 403 otherwise
func loadManagedPlan(c *gin.Context, user models.User, planID uint) (*models.Plan, bool) {
	var plan models.Plan
	if err := config.DB.First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError("Plan not found: %d", planID)
			utils.NotFound(c, utils.ErrPlanNotFound)
			return nil, false
		}
		utils.LogError("Failed to load plan %d: %v", planID, err)
		utils.InternalServerError(c, "Failed to load plan", err.Error())
		return nil, false
	}
	if !canManagePlan(user, &plan) {
		utils.LogError("User %d attempted to manage plan %d owned by %d", user.ID, plan.ID, plan.CreatedBy)
		utils.Forbidden(c, "You do not manage this plan")
		return nil, false
	}
	return &plan, true
}

// ownedPlanIDs is a subquery of the plan ids created by user
func ownedPlanIDs(user models.User) *gorm.DB {
	return config.DB.Model(&models.Plan{}).Unscoped().Select("id").Where("created_by = ?", user.ID)
}
