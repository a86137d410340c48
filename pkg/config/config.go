// Copyright 2025 Certen Protocol
//
// Service Configuration
// Environment-variable-driven configuration for the audit core daemon.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the audit core service.
type Config struct {
	// Server Configuration
	ListenAddr  string
	MetricsAddr string
	HealthAddr  string

	// Ledger Configuration
	BatchSize         int
	InterceptorQueue  int // bounded channel capacity for the event interceptor

	// EVM Anchor Configuration
	AnchorEnabled       bool
	EthereumURL         string
	EthChainID          int64
	EthPrivateKey       string
	AnchorTargetAddress string

	// Notary Anchor Configuration
	NotaryEnabled bool
	NotarySigningKey string
	NotaryIssuer     string

	// Archive Database Configuration
	DatabaseURL         string
	DatabaseMaxConns    int
	DatabaseMinConns    int
	DatabaseMaxIdleTime time.Duration
	DatabaseMaxLifetime time.Duration
	DatabaseRequired    bool

	// Firestore Sink Configuration (optional mirror of audit records)
	FirestoreEnabled        bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Security Configuration
	JWTSecret   string
	CORSOrigins []string
	TLSEnabled  bool

	// Rate Limiting
	RateLimitRequests int
	RateLimitWindow   int

	// AAP Configuration
	AAPConfigPath string // path to YAML overlay for fidelity configuration

	// Service Configuration
	LogLevel string
}

// Load reads configuration from environment variables. Values with no
// sensible default (anchoring keys, database credentials) are left empty
// and must be checked by Validate before starting the service.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),
		HealthAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("HEALTH_CHECK_PORT", "8081"),

		BatchSize:        getEnvInt("LEDGER_BATCH_SIZE", 100),
		InterceptorQueue: getEnvInt("INTERCEPTOR_QUEUE_SIZE", 1024),

		AnchorEnabled:       getEnvBool("ANCHOR_EVM_ENABLED", false),
		EthereumURL:         getEnv("ETHEREUM_URL", ""),
		EthChainID:          getEnvInt64("ETH_CHAIN_ID", 11155111),
		EthPrivateKey:       getEnv("ETH_PRIVATE_KEY", ""),
		AnchorTargetAddress: getEnv("ANCHOR_TARGET_ADDRESS", ""),

		NotaryEnabled:    getEnvBool("ANCHOR_NOTARY_ENABLED", false),
		NotarySigningKey: getEnv("NOTARY_SIGNING_KEY", ""),
		NotaryIssuer:     getEnv("NOTARY_ISSUER", "audit-core"),

		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 25),
		DatabaseMinConns:    getEnvInt("DATABASE_MIN_CONNS", 5),
		DatabaseMaxIdleTime: getEnvDuration("DATABASE_MAX_IDLE_TIME", 5*time.Minute),
		DatabaseMaxLifetime: getEnvDuration("DATABASE_MAX_LIFETIME", time.Hour),
		DatabaseRequired:    getEnvBool("DATABASE_REQUIRED", false),

		FirestoreEnabled:        getEnvBool("FIRESTORE_ENABLED", false),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		TLSEnabled:  getEnvBool("TLS_ENABLED", true),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvInt("RATE_LIMIT_WINDOW", 60),

		AAPConfigPath: getEnv("AAP_CONFIG_PATH", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and secure.
// This must be called after Load() before starting the service in
// production.
func (c *Config) Validate() error {
	var errors []string

	if c.AnchorEnabled {
		if c.EthereumURL == "" {
			errors = append(errors, "ETHEREUM_URL is required when ANCHOR_EVM_ENABLED is true")
		}
		if c.EthPrivateKey == "" {
			errors = append(errors, "ETH_PRIVATE_KEY is required when ANCHOR_EVM_ENABLED is true")
		}
		if c.AnchorTargetAddress == "" {
			errors = append(errors, "ANCHOR_TARGET_ADDRESS is required when ANCHOR_EVM_ENABLED is true")
		}
	}

	if c.NotaryEnabled && c.NotarySigningKey == "" {
		errors = append(errors, "NOTARY_SIGNING_KEY is required when ANCHOR_NOTARY_ENABLED is true")
	}

	if c.DatabaseRequired && c.DatabaseURL == "" {
		errors = append(errors, "DATABASE_URL is required when DATABASE_REQUIRED is true")
	}

	if c.JWTSecret != "" {
		weakSecrets := []string{"development", "secret", "password", "change-me", "changeme", "default", "test"}
		lowerSecret := strings.ToLower(c.JWTSecret)
		for _, weak := range weakSecrets {
			if strings.Contains(lowerSecret, weak) {
				errors = append(errors, "JWT_SECRET contains weak/default value - generate a secure random secret")
				break
			}
		}
		if len(c.JWTSecret) < 32 {
			errors = append(errors, "JWT_SECRET must be at least 32 characters for security")
		}
	}

	if !c.TLSEnabled {
		fmt.Println("WARNING: TLS_ENABLED is false - enable TLS for production security")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// ValidateForDevelopment performs relaxed validation suitable for local
// development. Do not use this in production - use Validate() instead.
func (c *Config) ValidateForDevelopment() error {
	if c.AnchorEnabled && c.EthereumURL == "" {
		return fmt.Errorf("development configuration validation failed:\n  - ETHEREUM_URL is required when ANCHOR_EVM_ENABLED is true")
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
