package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Loan     LoanConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds auth cookie settings
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// LoanConfig holds the loan policy knobs. The period and renewal caps
// are fixed in the domain package; these cover the operational side.
type LoanConfig struct {
	MaxActiveLoans  int
	DefaultDays     int
	FineDailyRate   float64
	SweepSchedule   string
	ConflictRetries int
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		Loan:     loadLoanConfig(),
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "librohub"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadCookieConfig loads auth cookie settings based on mode
func loadCookieConfig(mode string) CookieConfig {
	if mode == "prod" {
		return CookieConfig{
			Secure:   true,
			SameSite: getEnv("COOKIE_SAMESITE", "Strict"),
			Domain:   getEnv("COOKIE_DOMAIN", ""),
		}
	}
	return CookieConfig{
		Secure:   false,
		SameSite: getEnv("COOKIE_SAMESITE", "Lax"),
		Domain:   "",
	}
}

// loadLoanConfig loads the loan policy. Defaults match the library's
// standing rules: 3 active loans per borrower, 2 renewals, 90-day cap,
// 15-day default period, 5 per late day.
func loadLoanConfig() LoanConfig {
	maxActive, _ := strconv.Atoi(getEnv("LOAN_MAX_ACTIVE", "3"))
	defaultDays, _ := strconv.Atoi(getEnv("LOAN_DEFAULT_DAYS", "15"))
	dailyRate, _ := strconv.ParseFloat(getEnv("FINE_DAILY_RATE", "5"), 64)
	retries, _ := strconv.Atoi(getEnv("LOAN_CONFLICT_RETRIES", "3"))

	return LoanConfig{
		MaxActiveLoans:  maxActive,
		DefaultDays:     defaultDays,
		FineDailyRate:   dailyRate,
		SweepSchedule:   getEnv("OVERDUE_SWEEP_SCHEDULE", "30 8 * * *"),
		ConflictRetries: retries,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://librohub.example.org"
	}
	return origins
}
