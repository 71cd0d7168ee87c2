package routes

import (
	"github.com/Govind-619/MemberSphere/controllers"
	"github.com/Govind-619/MemberSphere/middleware"
	"github.com/gin-gonic/gin"
)

// initMemberRoutes registers everything that needs a bearer token
func initMemberRoutes(router *gin.RouterGroup) {
	auth := router.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		// Plans
		auth.POST("/plans", controllers.CreatePlan)
		auth.GET("/plans", controllers.ListPlans)
		auth.GET("/plans/:id", controllers.GetPlan)
		auth.PUT("/plans/:id", controllers.UpdatePlan)
		auth.PUT("/plans/:id/coupon", controllers.SetPlanCoupon)
		auth.GET("/plans/:id/members.xlsx", controllers.ExportPlanMembers)

		// Coupons
		auth.POST("/coupons", controllers.CreateCoupon)
		auth.GET("/coupons", controllers.ListCoupons)
		auth.PUT("/coupons/:id", controllers.UpdateCoupon)
		auth.PUT("/coupons/:id/deactivate", controllers.DeactivateCoupon)
		auth.DELETE("/coupons/:id", controllers.DeleteCoupon)

		// Card templates
		auth.POST("/card-templates", controllers.CreateCardTemplate)
		auth.GET("/card-templates", controllers.ListCardTemplates)
		auth.PUT("/card-templates/:id", controllers.UpdateCardTemplate)

		// Application review
		auth.GET("/applications", controllers.ListApplications)
		auth.POST("/applications/:id/approve", controllers.ApproveApplication)
		auth.POST("/applications/:id/reject", controllers.RejectApplication)

		// Payments
		auth.GET("/payments", controllers.ListPayments)
		auth.PUT("/payments/:id/status", controllers.UpdatePaymentStatus)
		auth.POST("/payments/crypto/invoice", controllers.CreateCryptoInvoice)
		auth.GET("/payments/crypto/:identifier/status", controllers.GetCryptoPaymentStatus)

		// Subscriptions
		auth.GET("/subscriptions/me", controllers.GetMySubscriptions)
		auth.GET("/subscriptions/:id/card", controllers.GetSubscriptionCard)
		auth.GET("/subscriptions/:id/card.pdf", controllers.DownloadSubscriptionCardPDF)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("/reminders/run", controllers.RunReminders)
	}
}
