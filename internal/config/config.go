package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Twilio                    TwilioConfig
	Billing                   BillingConfig
	Timezone                  string
	SweepCronSpec             string
	SweepBatchSize            int
	ClaimTTLMinutes           int
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds the connection details for the sweep leader lock.
// An empty Addr disables distributed locking (single-instance deployment).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TwilioConfig holds the WhatsApp messaging channel credentials and the
// external content template identifiers, one per reminder kind.
type TwilioConfig struct {
	AccountSID    string
	AuthToken     string
	From          string
	ContentSID24h string
	ContentSID2h  string
}

// BillingConfig holds billing-provider webhook settings.
type BillingConfig struct {
	WebhookSecret string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clinic"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisConfig := RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	twilioConfig := TwilioConfig{
		AccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		AuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		From:          getEnv("TWILIO_WHATSAPP_FROM", ""),
		ContentSID24h: getEnv("TWILIO_CONTENT_SID_24H", ""),
		ContentSID2h:  getEnv("TWILIO_CONTENT_SID_2H", ""),
	}

	billingConfig := BillingConfig{
		WebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
	}

	sweepBatchSize, err := strconv.Atoi(getEnv("SWEEP_BATCH_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_BATCH_SIZE: %w", err)
	}

	claimTTLMinutes, err := strconv.Atoi(getEnv("SWEEP_CLAIM_TTL_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_CLAIM_TTL_MINUTES: %w", err)
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "1440"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:                      getEnv("PORT", "3000"),
		Origin:                    getEnv("ORIGIN", "http://localhost:5173"),
		Environment:               getEnv("APP_ENV", "development"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:                  dbConfig,
		Redis:                     redisConfig,
		Twilio:                    twilioConfig,
		Billing:                   billingConfig,
		Timezone:                  getEnv("CLINIC_TIMEZONE", "America/Sao_Paulo"),
		SweepCronSpec:             getEnv("SWEEP_CRON_SPEC", "*/10 * * * *"),
		SweepBatchSize:            sweepBatchSize,
		ClaimTTLMinutes:           claimTTLMinutes,
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
