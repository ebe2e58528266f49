/*
Package config - SRI invoicing backend application configuration

==============================================================================
FILE: internal/config/app_config.go
==============================================================================

DESCRIPTION:
    Central application configuration. Loads settings from environment
    variables, .env files, and optionally from HashiCorp Vault for
    production secrets management.

CONFIGURATION SOURCES (priority order):
    1. HashiCorp Vault (if VAULT_ADDR is set)
    2. Environment variables
    3. .env file
    4. Default values in DefaultAppConfig()

==============================================================================
*/
package config

import (
	"context"
	"fmt"

	"os"
	"strconv"

	"github.com/hashicorp/vault/api"
	"github.com/joho/godotenv"
)

// AppConfig contains all application configuration
type AppConfig struct {
	// Server configuration
	ServerPort int    `mapstructure:"SERVER_PORT"`
	Env        string `mapstructure:"ENVIRONMENT"`

	// Database configuration
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBDriver    string `mapstructure:"DB_DRIVER"`

	// JWT configuration
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	JWTRefreshHours    int    `mapstructure:"JWT_REFRESH_HOURS"`

	// Security
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// CORS
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Rate limiting
	RateLimitRequestsPerMinute int `mapstructure:"RATE_LIMIT_REQUESTS_PER_MINUTE"`

	// Invoicing defaults
	DefaultCurrency string `mapstructure:"DEFAULT_CURRENCY"`
	SRIEnvironment  string `mapstructure:"SRI_ENVIRONMENT"` // "1" test, "2" production

	// SRI web service endpoints (reception + authorization SOAP services)
	SRIReceptionURL     string `mapstructure:"SRI_RECEPTION_URL"`
	SRIAuthorizationURL string `mapstructure:"SRI_AUTHORIZATION_URL"`

	// Master key used to encrypt SigningCredential.EncryptedP12 at rest (AES-256-CBC, 32 bytes hex)
	CredentialEncryptionKey string `mapstructure:"CREDENTIAL_ENCRYPTION_KEY"`

	// Object storage (MinIO) for signed XML / RIDE artifacts
	MinIOEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket    string `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	// Shared secret n8n (and other internal automations) present on requests to
	// internal-only endpoints (e.g. manual settlement retry trigger)
	N8nSharedKey string `mapstructure:"N8N_SHARED_KEY"`

	// Email (optional) - used by the notifier for failure/authorization emails
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	EmailFrom    string `mapstructure:"EMAIL_FROM"`

	// Vault client
	VaultClient *api.Client
}

// DefaultAppConfig returns configuration with default values
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		ServerPort:                 8080,
		Env:                        "development",
		DatabaseURL:                "./sri_facturacion.db",
		DBDriver:                   "sqlite",
		JWTSecret:                  "your-secret-key-change-in-production",
		JWTExpirationHours:         24,
		JWTRefreshHours:            168,
		BcryptCost:                 12,
		LogLevel:                   "info",
		CORSAllowedOrigins:         "*",
		RateLimitRequestsPerMinute: 60,
		DefaultCurrency:            "USD",
		SRIEnvironment:             "1",
		SRIReceptionURL:            "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline?wsdl",
		SRIAuthorizationURL:        "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline?wsdl",
		CredentialEncryptionKey:    "",
		MinIOEndpoint:              "localhost:9000",
		MinIOAccessKey:             "",
		MinIOSecretKey:             "",
		MinIOBucket:                "invoice-artifacts",
		MinIOUseSSL:                false,
		N8nSharedKey:               "",
		SMTPHost:                   "",
		SMTPPort:                   587,
		SMTPUsername:               "",
		SMTPPassword:               "",
		EmailFrom:                  "noreply@facturacion.example.com",
	}
}

// LoadAppConfig loads all application configuration. configDir is accepted
// to keep the signature stable for callers that pass one but is currently
// unused: this domain has no per-deployment JSON config tree to load.
func LoadAppConfig(configDir string) (*AppConfig, error) {
	// Load environment variables
	_ = godotenv.Load()

	config := DefaultAppConfig()

	if portStr := os.Getenv("SERVER_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			config.ServerPort = port
		}
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Env = env
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.DatabaseURL = dbURL
	}
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.DBDriver = dbDriver
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		config.JWTSecret = jwtSecret
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.CORSAllowedOrigins = corsOrigins
	}
	if currency := os.Getenv("DEFAULT_CURRENCY"); currency != "" {
		config.DefaultCurrency = currency
	}
	if sriEnv := os.Getenv("SRI_ENVIRONMENT"); sriEnv != "" {
		config.SRIEnvironment = sriEnv
	}
	if receptionURL := os.Getenv("SRI_RECEPTION_URL"); receptionURL != "" {
		config.SRIReceptionURL = receptionURL
	}
	if authURL := os.Getenv("SRI_AUTHORIZATION_URL"); authURL != "" {
		config.SRIAuthorizationURL = authURL
	}
	if key := os.Getenv("CREDENTIAL_ENCRYPTION_KEY"); key != "" {
		config.CredentialEncryptionKey = key
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		config.MinIOEndpoint = endpoint
	}
	if accessKey := os.Getenv("MINIO_ACCESS_KEY"); accessKey != "" {
		config.MinIOAccessKey = accessKey
	}
	if secretKey := os.Getenv("MINIO_SECRET_KEY"); secretKey != "" {
		config.MinIOSecretKey = secretKey
	}
	if bucket := os.Getenv("MINIO_BUCKET"); bucket != "" {
		config.MinIOBucket = bucket
	}
	if useSSL := os.Getenv("MINIO_USE_SSL"); useSSL != "" {
		config.MinIOUseSSL = useSSL == "true"
	}
	if n8nKey := os.Getenv("N8N_SHARED_KEY"); n8nKey != "" {
		config.N8nSharedKey = n8nKey
	}
	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		config.SMTPHost = smtpHost
	}
	if smtpUsername := os.Getenv("SMTP_USERNAME"); smtpUsername != "" {
		config.SMTPUsername = smtpUsername
	}
	if smtpPassword := os.Getenv("SMTP_PASSWORD"); smtpPassword != "" {
		config.SMTPPassword = smtpPassword
	}
	if emailFrom := os.Getenv("EMAIL_FROM"); emailFrom != "" {
		config.EmailFrom = emailFrom
	}

	// Load secrets from Vault if configured
	if os.Getenv("VAULT_ADDR") != "" {
		if err := loadFromVault(config); err != nil {
			// Log the error but continue, allowing fallback to env vars
			fmt.Printf("Warning: Could not load secrets from Vault: %v\n", err)
		}
	}

	return config, nil
}

// loadFromVault connects to Vault and loads secrets.
func loadFromVault(c *AppConfig) error {
	vaultConfig := api.DefaultConfig() // VAULT_ADDR and VAULT_TOKEN are read from env vars

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return fmt.Errorf("failed to create vault client: %w", err)
	}
	c.VaultClient = client

	secretPath := os.Getenv("VAULT_SECRET_PATH")
	if secretPath == "" {
		secretPath = "secret/data/sri-facturacion" // Default path
	}

	secret, err := client.KVv2(secretPath).Get(context.Background(), "")
	if err != nil {
		return fmt.Errorf("failed to read secrets from vault path %s: %w", secretPath, err)
	}

	if dbURL, ok := secret.Data["DATABASE_URL"].(string); ok {
		c.DatabaseURL = dbURL
	}
	if jwtSecret, ok := secret.Data["JWT_SECRET"].(string); ok {
		c.JWTSecret = jwtSecret
	}
	if smtpPassword, ok := secret.Data["SMTP_PASSWORD"].(string); ok {
		c.SMTPPassword = smtpPassword
	}
	if encKey, ok := secret.Data["CREDENTIAL_ENCRYPTION_KEY"].(string); ok {
		c.CredentialEncryptionKey = encKey
	}
	if minioSecret, ok := secret.Data["MINIO_SECRET_KEY"].(string); ok {
		c.MinIOSecretKey = minioSecret
	}
	if n8nKey, ok := secret.Data["N8N_SHARED_KEY"].(string); ok {
		c.N8nSharedKey = n8nKey
	}

	fmt.Println("Successfully loaded secrets from Vault")
	return nil
}

// IsProduction returns true if environment is production
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if environment is development
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsTesting returns true if environment is testing
func (c *AppConfig) IsTesting() bool {
	return c.Env == "testing"
}
