package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMySQL = "mysql"
	DriverMongo = "mongo"
)

// Config holds all configuration for our application
type Config struct {
	Port                 string
	Origin               string
	Environment          string
	LogLevel             string
	JWTSecret            string
	JWTExpirationMinutes int
	StoreDriver          string
	Database             DatabaseConfig
	Mongo                MongoConfig
	Redis                RedisConfig
	Booking              BookingConfig
	RatingReconcileSpec  string
	MetricsEnabled       bool
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

// MongoConfig holds the document store connection details
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig configures the doctor directory cache. An empty URL disables it.
type RedisConfig struct {
	URL       string
	DoctorTTL time.Duration
}

// BookingConfig holds the appointment policy knobs.
type BookingConfig struct {
	CancellationCutoff time.Duration
	Location           *time.Location
	// UpdateCancelEnforcesCutoff applies the cutoff to cancellations sent
	// through the generic update endpoint.
	UpdateCancelEnforcesCutoff bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "booking"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	driver := strings.ToLower(getEnv("STORE_DRIVER", DriverMySQL))
	if driver != DriverMySQL && driver != DriverMongo {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", driver, DriverMySQL, DriverMongo)
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("DOCTOR_CACHE_TTL_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOCTOR_CACHE_TTL_SECONDS: %w", err)
	}

	cutoffHours, err := strconv.Atoi(getEnv("CANCELLATION_CUTOFF_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid CANCELLATION_CUTOFF_HOURS: %w", err)
	}
	if cutoffHours < 0 {
		return nil, fmt.Errorf("invalid CANCELLATION_CUTOFF_HOURS: must not be negative")
	}

	loc, err := time.LoadLocation(getEnv("CLINIC_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}

	updateCancelCutoff, err := strconv.ParseBool(getEnv("UPDATE_CANCEL_ENFORCES_CUTOFF", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPDATE_CANCEL_ENFORCES_CUTOFF: %w", err)
	}

	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:                 getEnv("PORT", "3001"),
		Origin:               getEnv("ORIGIN", "http://localhost:4200"),
		Environment:          getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		JWTSecret:            getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTExpirationMinutes: jwtExpMinutes,
		StoreDriver:          driver,
		Database:             dbConfig,
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "booking"),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			DoctorTTL: time.Duration(cacheTTL) * time.Second,
		},
		Booking: BookingConfig{
			CancellationCutoff:         time.Duration(cutoffHours) * time.Hour,
			Location:                   loc,
			UpdateCancelEnforcesCutoff: updateCancelCutoff,
		},
		RatingReconcileSpec: getEnv("RATING_RECONCILE_SCHEDULE", "30 2 * * *"),
		MetricsEnabled:      metricsEnabled,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
