package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"SERVER_PORT"`
		Mode        string `yaml:"mode" env:"SERVER_MODE"`
		BaseURL     string `yaml:"base_url" env:"SERVER_BASE_URL"`
		StoragePath string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		BackupPath  string `yaml:"backup_path" env:"SERVER_BACKUP_PATH"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		PgDumpPath      string `yaml:"pg_dump_path" env:"DB_PG_DUMP_PATH"`
		PsqlPath        string `yaml:"psql_path" env:"DB_PSQL_PATH"`
		BackupTimeout   string `yaml:"backup_timeout" env:"DB_BACKUP_TIMEOUT"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Security struct {
		CookieSecure bool   `yaml:"cookie_secure" env:"SECURITY_COOKIE_SECURE"`
		CookieDomain string `yaml:"cookie_domain" env:"SECURITY_COOKIE_DOMAIN"`
		CSRFSecret   string `yaml:"csrf_secret" env:"SECURITY_CSRF_SECRET"`
		CSRFTokenTTL string `yaml:"csrf_token_ttl" env:"SECURITY_CSRF_TOKEN_TTL"`
	} `yaml:"security"`

	OTP struct {
		Length        int    `yaml:"length" env:"OTP_LENGTH"`
		TTL           string `yaml:"ttl" env:"OTP_TTL"`
		MaxAttempts   int    `yaml:"max_attempts" env:"OTP_MAX_ATTEMPTS"`
		MaxRequests   int    `yaml:"max_requests" env:"OTP_MAX_REQUESTS"`
		RequestWindow string `yaml:"request_window" env:"OTP_REQUEST_WINDOW"`
	} `yaml:"otp"`

	Grading struct {
		PassingGrade float64 `yaml:"passing_grade" env:"GRADING_PASSING_GRADE"`
	} `yaml:"grading"`

	Email struct {
		Provider       string `yaml:"provider" env:"EMAIL_PROVIDER"`
		AppName        string `yaml:"app_name" env:"EMAIL_APP_NAME"`
		FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
		FromEmail      string `yaml:"from_email" env:"EMAIL_FROM_EMAIL"`
		SMTPHost       string `yaml:"smtp_host" env:"EMAIL_SMTP_HOST"`
		SMTPPort       int    `yaml:"smtp_port" env:"EMAIL_SMTP_PORT"`
		SMTPUsername   string `yaml:"smtp_username" env:"EMAIL_SMTP_USERNAME"`
		SMTPPassword   string `yaml:"smtp_password" env:"EMAIL_SMTP_PASSWORD"`
		SMTPUseTLS     bool   `yaml:"smtp_use_tls" env:"EMAIL_SMTP_USE_TLS"`
		SendGridAPIKey string `yaml:"sendgrid_api_key" env:"EMAIL_SENDGRID_API_KEY"`
	} `yaml:"email"`

	Logging struct {
		Level        string `yaml:"level" env:"LOG_LEVEL"`
		Format       string `yaml:"format" env:"LOG_FORMAT"`
		RollbarToken string `yaml:"rollbar_token" env:"ROLLBAR_TOKEN"`
		Environment  string `yaml:"environment" env:"APP_ENV"`
		CodeVersion  string `yaml:"code_version" env:"APP_VERSION"`
	} `yaml:"logging"`
}

// Email providers
const (
	EmailProviderLog      = "log"
	EmailProviderSMTP     = "smtp"
	EmailProviderSendGrid = "sendgrid"
)

// LoadConfig loads configuration from a .env file, a YAML file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"
	config.Server.StoragePath = "./uploads"
	config.Server.BackupPath = "./backups"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "schoolportal"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.PgDumpPath = "pg_dump"
	config.Database.PsqlPath = "psql"
	config.Database.BackupTimeout = "10m"

	config.JWT.AccessTokenExpiration = "15m"
	config.JWT.RefreshTokenExpiration = "168h"
	config.JWT.Issuer = "schoolportal"

	config.Security.CSRFTokenTTL = "2h"

	config.OTP.Length = 6
	config.OTP.TTL = "10m"
	config.OTP.MaxAttempts = 5
	config.OTP.MaxRequests = 3
	config.OTP.RequestWindow = "15m"

	config.Grading.PassingGrade = 75

	config.Email.Provider = EmailProviderLog
	config.Email.AppName = "School Portal"
	config.Email.FromName = "School Portal"
	config.Email.FromEmail = "no-reply@schoolportal.local"
	config.Email.SMTPPort = 587

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Environment = "development"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration":  config.JWT.AccessTokenExpiration,
		"JWT refresh token expiration": config.JWT.RefreshTokenExpiration,
		"OTP ttl":                      config.OTP.TTL,
		"OTP request window":           config.OTP.RequestWindow,
		"CSRF token ttl":               config.Security.CSRFTokenTTL,
		"backup timeout":               config.Database.BackupTimeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	if config.OTP.Length < 4 || config.OTP.Length > 10 {
		return fmt.Errorf("otp length must be between 4 and 10")
	}
	if config.OTP.MaxAttempts <= 0 || config.OTP.MaxRequests <= 0 {
		return fmt.Errorf("otp max_attempts and max_requests must be positive")
	}

	if config.Grading.PassingGrade <= 0 || config.Grading.PassingGrade > 100 {
		return fmt.Errorf("passing grade must be in (0, 100]")
	}

	switch config.Email.Provider {
	case EmailProviderLog:
	case EmailProviderSMTP:
		if config.Email.SMTPHost == "" {
			return fmt.Errorf("smtp host is required for the smtp email provider")
		}
	case EmailProviderSendGrid:
		if config.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required for the sendgrid email provider")
		}
	default:
		return fmt.Errorf("unknown email provider %q", config.Email.Provider)
	}

	return nil
}

// CSRFSecret returns the CSRF signing key, falling back to the JWT secret
func (c *Config) CSRFSecret() string {
	if c.Security.CSRFSecret != "" {
		return c.Security.CSRFSecret
	}
	return c.JWT.Secret
}

// IsProduction reports whether the server runs in release mode
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production" || c.Server.Mode == "release"
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets an environment variable as an integer or returns a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvAsBool gets an environment variable as a boolean or returns a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(GetEnv(key, "")) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
