package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	S3       S3Config
	Oracle   OracleConfig
	Pipeline PipelineConfig
	CORS     CORSConfig
	Email    EmailConfig
	Admin    AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer             string        `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings for uploaded invoice documents.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// OracleProviderConfig holds settings for a single oracle provider.
type OracleProviderConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	TimeoutSecs int     `mapstructure:"timeout_secs"`
}

// OracleConfig holds oracle provider settings. Primary is required; a
// configured Secondary joins the fallback chain behind it.
type OracleConfig struct {
	Primary   OracleProviderConfig `mapstructure:"primary"`
	Secondary OracleProviderConfig `mapstructure:"secondary"`
}

// SecondaryConfig returns the secondary provider config, or nil if not set.
func (o *OracleConfig) SecondaryConfig() *OracleProviderConfig {
	if o.Secondary.Provider != "" {
		return &o.Secondary
	}
	return nil
}

// PipelineConfig holds extraction pipeline settings.
type PipelineConfig struct {
	StageMaxAttempts int           `mapstructure:"stage_max_attempts"`
	StageBackoff     time.Duration `mapstructure:"stage_backoff"`
	RunTimeout       time.Duration `mapstructure:"run_timeout"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
	ReaperInterval   time.Duration `mapstructure:"reaper_interval"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EmailConfig holds extraction-completed notification settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	FrontendURL string `mapstructure:"frontend_url"`
}

// AdminConfig holds the bootstrap admin user credentials.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"full_name"`
}

// Load reads configuration from environment variables with the INVOX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INVOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "invox")
	v.SetDefault("db.password", "invox_secret")
	v.SetDefault("db.name", "invox_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "invox")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "invox-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.max_file_size_mb", 25)
	v.SetDefault("s3.presign_expiry", 3600)

	// Oracle defaults (groq primary per the original deployment)
	v.SetDefault("oracle.primary.provider", "groq")
	v.SetDefault("oracle.primary.api_key", "")
	v.SetDefault("oracle.primary.base_url", "")
	v.SetDefault("oracle.primary.model", "")
	v.SetDefault("oracle.primary.temperature", 0.0)
	v.SetDefault("oracle.primary.timeout_secs", 60)
	v.SetDefault("oracle.secondary.provider", "")
	v.SetDefault("oracle.secondary.api_key", "")
	v.SetDefault("oracle.secondary.base_url", "")
	v.SetDefault("oracle.secondary.model", "")
	v.SetDefault("oracle.secondary.temperature", 0.0)
	v.SetDefault("oracle.secondary.timeout_secs", 60)

	// Pipeline defaults
	v.SetDefault("pipeline.stage_max_attempts", 3)
	v.SetDefault("pipeline.stage_backoff", "1s")
	v.SetDefault("pipeline.run_timeout", "5m")
	v.SetDefault("pipeline.stale_after", "15m")
	v.SetDefault("pipeline.reaper_interval", "1m")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@invox.local")
	v.SetDefault("email.from_name", "Invox")
	v.SetDefault("email.frontend_url", "http://localhost:3000")

	// Bootstrap admin defaults
	v.SetDefault("admin.email", "admin@invox.local")
	v.SetDefault("admin.password", "change-me-now")
	v.SetDefault("admin.full_name", "Invox Admin")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "INVOX_SERVER_PORT",
		"server.read_timeout":          "INVOX_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "INVOX_SERVER_WRITE_TIMEOUT",
		"server.environment":           "INVOX_SERVER_ENVIRONMENT",
		"db.host":                      "INVOX_DB_HOST",
		"db.port":                      "INVOX_DB_PORT",
		"db.user":                      "INVOX_DB_USER",
		"db.password":                  "INVOX_DB_PASSWORD",
		"db.name":                      "INVOX_DB_NAME",
		"db.sslmode":                   "INVOX_DB_SSLMODE",
		"db.max_open":                  "INVOX_DB_MAX_OPEN",
		"db.max_idle":                  "INVOX_DB_MAX_IDLE",
		"jwt.secret":                   "INVOX_JWT_SECRET",
		"jwt.access_expiry":            "INVOX_JWT_ACCESS_EXPIRY",
		"jwt.refresh_expiry":           "INVOX_JWT_REFRESH_EXPIRY",
		"jwt.issuer":                   "INVOX_JWT_ISSUER",
		"s3.region":                    "INVOX_S3_REGION",
		"s3.bucket":                    "INVOX_S3_BUCKET",
		"s3.endpoint":                  "INVOX_S3_ENDPOINT",
		"s3.access_key":                "INVOX_S3_ACCESS_KEY",
		"s3.secret_key":                "INVOX_S3_SECRET_KEY",
		"s3.max_file_size_mb":          "INVOX_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":            "INVOX_S3_PRESIGN_EXPIRY",
		"oracle.primary.provider":      "INVOX_ORACLE_PRIMARY_PROVIDER",
		"oracle.primary.api_key":       "INVOX_ORACLE_PRIMARY_API_KEY",
		"oracle.primary.base_url":      "INVOX_ORACLE_PRIMARY_BASE_URL",
		"oracle.primary.model":         "INVOX_ORACLE_PRIMARY_MODEL",
		"oracle.primary.temperature":   "INVOX_ORACLE_PRIMARY_TEMPERATURE",
		"oracle.primary.timeout_secs":  "INVOX_ORACLE_PRIMARY_TIMEOUT_SECS",
		"oracle.secondary.provider":    "INVOX_ORACLE_SECONDARY_PROVIDER",
		"oracle.secondary.api_key":     "INVOX_ORACLE_SECONDARY_API_KEY",
		"oracle.secondary.base_url":    "INVOX_ORACLE_SECONDARY_BASE_URL",
		"oracle.secondary.model":       "INVOX_ORACLE_SECONDARY_MODEL",
		"oracle.secondary.temperature": "INVOX_ORACLE_SECONDARY_TEMPERATURE",
		"oracle.secondary.timeout_secs": "INVOX_ORACLE_SECONDARY_TIMEOUT_SECS",
		"pipeline.stage_max_attempts":  "INVOX_PIPELINE_STAGE_MAX_ATTEMPTS",
		"pipeline.stage_backoff":       "INVOX_PIPELINE_STAGE_BACKOFF",
		"pipeline.run_timeout":         "INVOX_PIPELINE_RUN_TIMEOUT",
		"pipeline.stale_after":         "INVOX_PIPELINE_STALE_AFTER",
		"pipeline.reaper_interval":     "INVOX_PIPELINE_REAPER_INTERVAL",
		"cors.allowed_origins":         "INVOX_CORS_ALLOWED_ORIGINS",
		"email.provider":               "INVOX_EMAIL_PROVIDER",
		"email.region":                 "INVOX_EMAIL_REGION",
		"email.from_address":           "INVOX_EMAIL_FROM_ADDRESS",
		"email.from_name":              "INVOX_EMAIL_FROM_NAME",
		"email.frontend_url":           "INVOX_EMAIL_FRONTEND_URL",
		"admin.email":                  "INVOX_ADMIN_EMAIL",
		"admin.password":               "INVOX_ADMIN_PASSWORD",
		"admin.full_name":              "INVOX_ADMIN_FULL_NAME",
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Comma-separated origins arrive as a single string from the environment.
	if len(cfg.CORS.AllowedOrigins) == 1 && strings.Contains(cfg.CORS.AllowedOrigins[0], ",") {
		cfg.CORS.AllowedOrigins = strings.Split(cfg.CORS.AllowedOrigins[0], ",")
	}
	for i := range cfg.CORS.AllowedOrigins {
		cfg.CORS.AllowedOrigins[i] = strings.TrimSpace(cfg.CORS.AllowedOrigins[i])
	}

	return &cfg, nil
}
