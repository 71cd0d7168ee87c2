package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Govind-619/MemberSphere/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// AppConfig holds the configuration loaded at startup
var AppConfig *Config

// Config holds all configuration for the application
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string
	Port       string
	Env        string

	SessionSecret string
	FrontendURL   string

	RazorpayKey           string
	RazorpaySecret        string
	RazorpayWebhookSecret string
	Currency              string

	CryptoGatewayURL    string
	CryptoGatewayAPIKey string
	CryptoIPNSecret     string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	ReminderSchedule   string
	ReminderDaysBefore int
}

// LoadConfig loads configuration from the environment, reading .env when present
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %v", err)
	}
	reminderDays, err := strconv.Atoi(getEnv("REMINDER_DAYS_BEFORE", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_DAYS_BEFORE: %v", err)
	}

	config := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "membersphere"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),

		SessionSecret: getEnv("SESSION_SECRET", "membersphere-session"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),

		RazorpayKey:           os.Getenv("RAZORPAY_KEY"),
		RazorpaySecret:        os.Getenv("RAZORPAY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		Currency:              getEnv("CURRENCY", "INR"),

		CryptoGatewayURL:    getEnv("CRYPTO_GATEWAY_URL", "https://api.nowpayments.io/v1"),
		CryptoGatewayAPIKey: os.Getenv("CRYPTO_GATEWAY_API_KEY"),
		CryptoIPNSecret:     os.Getenv("CRYPTO_IPN_SECRET"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@membersphere.local"),

		ReminderSchedule:   getEnv("REMINDER_SCHEDULE", "0 0 9 * * *"),
		ReminderDaysBefore: reminderDays,
	}

	AppConfig = config
	return config, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// InitDB initializes the database connection and migrates the schema
func InitDB(config *Config) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	return nil
}

// Migrate auto-migrates every membership table
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Coupon{},
		&models.Plan{},
		&models.Application{},
		&models.Subscription{},
		&models.Payment{},
		&models.DigitalCard{},
		&models.Reminder{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
