package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/routes"
	"github.com/Govind-619/MemberSphere/utils"
)

func main() {
	// Initialize logger
	if err := utils.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("Error loading config: %v", err)
		log.Fatal("Error loading config:", err)
	}

	// Initialize database
	if err := config.InitDB(cfg); err != nil {
		utils.LogError("Error initializing database: %v", err)
		log.Fatal("Error initializing database:", err)
	}

	if cfg.JWTSecret == "" {
		utils.LogWarn("JWT_SECRET is not set; every bearer token will be rejected")
	}

	utils.InitMetrics()

	// Payment gateways are optional; their endpoints answer 503 when unset
	if cfg.RazorpayKey != "" && cfg.RazorpaySecret != "" {
		utils.Razorpay = utils.NewRazorpayGateway(cfg.RazorpayKey, cfg.RazorpaySecret, cfg.RazorpayWebhookSecret)
	} else {
		utils.LogWarn("Razorpay credentials missing, card payments disabled")
	}
	if cfg.CryptoGatewayAPIKey != "" {
		utils.Crypto = utils.NewCryptoGatewayClient(cfg.CryptoGatewayURL, cfg.CryptoGatewayAPIKey, cfg.CryptoIPNSecret)
	} else {
		utils.LogWarn("Crypto gateway API key missing, crypto payments disabled")
	}

	scheduler, err := utils.StartReminderScheduler(config.DB, cfg.ReminderSchedule, cfg.ReminderDaysBefore)
	if err != nil {
		utils.LogError("Failed to start reminder scheduler: %v", err)
		log.Fatal("Failed to start reminder scheduler:", err)
	}

	// Set up router
	router := routes.SetupRouter(cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		utils.LogInfo("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError("Error starting server: %v", err)
			log.Fatal("Error starting server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.LogInfo("Shutting down server")

	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.LogError("Server forced to shutdown: %v", err)
	}
	utils.LogInfo("Server exited")
}
