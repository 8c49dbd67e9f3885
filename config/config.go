package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port        string
	GinMode     string
	DBDriver    string
	DBDSN       string
	JWTSecret   string
	JWTExpiry   time.Duration
	VATRate     decimal.Decimal
	DeliveryFee decimal.Decimal
	OrderPrefix string
	// Whether cancelling an order (or removing its discount) gives the
	// discount usage slot back.
	RefundDiscountOnCancel bool
	RateLimitRPS           float64
	RateLimitBurst         int
	CORSOrigin             string
	RestaurantName         string
	// Seeded on start when no employee exists yet.
	AdminEmail    string
	AdminPassword string
}

func Load() Config {
	return Config{
		Port:                   getEnv("PORT", "8080"),
		GinMode:                getEnv("GIN_MODE", "debug"),
		DBDriver:               strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:                  getEnv("DB_DSN", "restaurant.db"),
		JWTSecret:              getEnv("JWT_SECRET", "dev-insecure-jwt-secret"),
		JWTExpiry:              getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		VATRate:                getEnvDecimal("VAT_RATE", decimal.RequireFromString("0.10")),
		DeliveryFee:            getEnvDecimal("DELIVERY_FEE", decimal.NewFromInt(20000)),
		OrderPrefix:            getEnv("ORDER_NUMBER_PREFIX", "ORD"),
		RefundDiscountOnCancel: getEnvBool("REFUND_DISCOUNT_ON_CANCEL", false),
		RateLimitRPS:           getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:         getEnvInt("RATE_LIMIT_BURST", 40),
		CORSOrigin:             getEnv("CORS_ALLOWED_ORIGIN", "*"),
		RestaurantName:         getEnv("RESTAURANT_NAME", "Restaurant POS"),
		AdminEmail:             getEnv("ADMIN_EMAIL", ""),
		AdminPassword:          getEnv("ADMIN_PASSWORD", ""),
	}
}

// InitDB opens the configured database. MySQL is the production target;
// SQLite is used for local runs and tests.
func InitDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(getEnv(key, ""))
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}
