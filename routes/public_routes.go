package routes

import (
	"github.com/Govind-619/MemberSphere/controllers"
	"github.com/gin-gonic/gin"
)

// initPublicRoutes registers the application flow, which needs no account
func initPublicRoutes(router *gin.RouterGroup) {
	public := router.Group("/public")
	{
		public.GET("/plans/:id", controllers.GetPublicPlan)
		public.POST("/validate-coupon", controllers.ValidateCoupon)
		public.POST("/apply", controllers.ApplyForMembership)
		public.GET("/application/current", controllers.GetCurrentApplication)
		public.POST("/application-payment/order", controllers.CreateApplicationOrder)
		public.POST("/application-payment", controllers.SubmitApplicationPayment)
	}
}

// initWebhookRoutes registers gateway callbacks; they authenticate by signature
func initWebhookRoutes(router *gin.RouterGroup) {
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/razorpay", controllers.RazorpayWebhook)
		webhooks.POST("/crypto", controllers.CryptoWebhook)
	}
}
