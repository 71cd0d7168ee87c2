package controllers

import (
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

// RunReminders runs the renewal reminder jobs immediately
func RunReminders(c *gin.Context) {
	utils.LogInfo("RunReminders called")

	days := utils.DefaultReminderDays
	if config.AppConfig != nil && config.AppConfig.ReminderDaysBefore > 0 {
		days = config.AppConfig.ReminderDaysBefore
	}

	run, err := utils.RunReminderJobs(config.DB, time.Now().UTC(), days)
	if err != nil {
		utils.LogError("Manual reminder run failed: %v", err)
		utils.InternalServerError(c, "Failed to run reminders", err.Error())
		return
	}

	utils.Success(c, "Reminders processed", gin.H{
		"markedPastDue": run.MarkedPastDue,
		"expiredSent":   run.ExpiredSent,
		"upcomingSent":  run.UpcomingSent,
	})
}
