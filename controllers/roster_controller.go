package controllers

import (
	"fmt"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

// ExportPlanMembers downloads the member roster of a plan as an Excel workbook
func ExportPlanMembers(c *gin.Context) {
	utils.LogInfo("ExportPlanMembers called")

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

	query := config.DB.Preload("User").Where("plan_id = ?", plan.ID).Order("created_at ASC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var subs []models.Subscription
	if err := query.Find(&subs).Error; err != nil {
		utils.LogError("Failed to load members of plan %d: %v", plan.ID, err)
		utils.InternalServerError(c, "Failed to fetch members", err.Error())
		return
	}

	file, err := utils.BuildMemberRoster(plan, subs)
	if err != nil {
		utils.LogError("Failed to build roster for plan %d: %v", plan.ID, err)
		utils.InternalServerError(c, "Failed to create Excel sheet", err.Error())
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=plan_%d_members.xlsx", plan.ID))
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		utils.InternalServerError(c, "Failed to write Excel file", err.Error())
		return
	}
	utils.LogInfo("Exported %d members of plan %d", len(subs), plan.ID)
}
