package routes

import (
	"net/http"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.MetricsMiddleware())
	router.Use(utils.CORSMiddleware(cfg.FrontendURL))
	router.Use(utils.SecurityHeadersMiddleware())

	// draft applications are resumed from this cookie
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		MaxAge:   60 * 60 * 24 * 7,
		Path:     "/",
		Secure:   cfg.Env == "production",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("membersphere", store))

	router.GET("/health", func(c *gin.Context) {
		if sqlDB, err := config.DB.DB(); err != nil || sqlDB.Ping() != nil {
			utils.Error(c, http.StatusServiceUnavailable, "Database unavailable", nil)
			return
		}
		utils.Success(c, "OK", gin.H{"service": utils.AppName})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group(utils.APIPrefix)
	{
		initPublicRoutes(api)
		initWebhookRoutes(api)
		initMemberRoutes(api)
	}

	return router
}
