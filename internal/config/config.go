package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvProduction is the ENV value that enables production hardening.
const EnvProduction = "production"

// ErrMissingSecret is returned by Load in production when SECRET_KEY is unset.
var ErrMissingSecret = errors.New("SECRET_KEY must be set in production")

// Config holds application configuration
type Config struct {
	// Server
	Env            string
	Port           string
	TrustedProxies []string
	AllowedOrigins []string
	ShutdownGrace  time.Duration

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// Auth
	SecretKey       string
	TokenTTL        time.Duration
	BcryptCost      int
	AdminAllowedIPs []string

	// Request pipeline
	RateLimitMax    int
	RateLimitWindow time.Duration
	BillingFailOpen bool

	// Billing
	TrialDays         int
	BillingWebhookKey string

	// Notifications
	AMQPURL       string
	AMQPExchange  string
	AlertSMSTo    string
	AlertWhatsApp string
	AlertEmailTo  string

	// Logging
	LogLevel string
	LogFile  string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		TrustedProxies: getList("TRUSTED_PROXIES", nil),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{
			"http://localhost:8080",
			"http://127.0.0.1:8080",
			"http://localhost:8000",
			"http://127.0.0.1:8000",
		}),
		ShutdownGrace: getDuration("SHUTDOWN_GRACE", 10*time.Second),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "finora"),
		DBPassword: getEnv("DB_PASSWORD", "finora"),
		DBName:     getEnv("DB_NAME", "finora"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "finora.db"),

		SecretKey:       os.Getenv("SECRET_KEY"),
		TokenTTL:        getDuration("TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:      getInt("BCRYPT_COST", 12),
		AdminAllowedIPs: getList("ADMIN_ALLOWED_IPS", nil),

		RateLimitMax:    getInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		BillingFailOpen: getBool("BILLING_FAIL_OPEN", false),

		TrialDays:         getInt("TRIAL_DAYS", 14),
		BillingWebhookKey: os.Getenv("BILLING_WEBHOOK_KEY"),

		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "finora.alerts"),
		AlertSMSTo:    os.Getenv("ALERT_SMS_TO"),
		AlertWhatsApp: os.Getenv("ALERT_WHATSAPP_TO"),
		AlertEmailTo:  os.Getenv("ALERT_EMAIL_TO"),

		LogLevel: getEnv("LOG_LEVEL", ""),
		LogFile:  os.Getenv("LOG_FILE"),
	}

	if config.IsProduction() && config.SecretKey == "" {
		return nil, ErrMissingSecret
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// IsProduction reports whether the service runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// PostgresURL returns the connection URL used by golang-migrate.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, raw, defaultValue)
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

// getList splits a comma-separated variable, dropping blanks.
func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
