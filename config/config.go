package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yourusername/invoice-desk/logger"
	"github.com/yourusername/invoice-desk/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const envPrefix = "INVOICE"

type Config struct {
	Port           string
	Env            string
	DatabaseDriver string
	DatabaseURL    string
	LogLevel       string
	LogFormat      string

	InvoicePrefix string
	InvoiceFloor  int64
	HistoryLimit  int
	BulkMaxLines  int

	DefaultPassword string
	SessionSecret   string
	SessionHeader   string
	AuthRateLimit   int // attempts per minute

	LogoPublicRead bool
	LogoSeedPath   string

	AIProvider   string
	AIAPIKey     string
	AIBaseURL    string
	AIModel      string
	AITimeout    time.Duration
	AIMaxRetries int

	ChromeRemoteURL string
	ChromeNoSandbox bool
	RenderTimeout   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("invoice_prefix", "BLH")
	v.SetDefault("invoice_floor", 2799)
	v.SetDefault("history_limit", 100)
	v.SetDefault("bulk_max_lines", 20)
	v.SetDefault("default_password", "bu2025")
	v.SetDefault("session_header", "X-App-Session")
	v.SetDefault("auth_rate_limit", 10)
	v.SetDefault("logo_public_read", true)
	v.SetDefault("ai_provider", "openai")
	v.SetDefault("ai_base_url", "https://api.openai.com/v1")
	v.SetDefault("ai_model", "gpt-4o-mini")
	v.SetDefault("ai_timeout", 60*time.Second)
	v.SetDefault("ai_max_retries", 3)
	v.SetDefault("render_timeout", 30*time.Second)
}

// LoadConfig reads .env (if present) and INVOICE_* environment variables on top of built-in defaults.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Port:            v.GetString("port"),
		Env:             v.GetString("env"),
		DatabaseDriver:  strings.ToLower(v.GetString("database_driver")),
		DatabaseURL:     v.GetString("database_url"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		InvoicePrefix:   v.GetString("invoice_prefix"),
		InvoiceFloor:    v.GetInt64("invoice_floor"),
		HistoryLimit:    v.GetInt("history_limit"),
		BulkMaxLines:    v.GetInt("bulk_max_lines"),
		DefaultPassword: v.GetString("default_password"),
		SessionSecret:   v.GetString("session_secret"),
		SessionHeader:   v.GetString("session_header"),
		AuthRateLimit:   v.GetInt("auth_rate_limit"),
		LogoPublicRead:  v.GetBool("logo_public_read"),
		LogoSeedPath:    v.GetString("logo_seed_path"),
		AIProvider:      strings.ToLower(v.GetString("ai_provider")),
		AIAPIKey:        v.GetString("ai_api_key"),
		AIBaseURL:       strings.TrimRight(v.GetString("ai_base_url"), "/"),
		AIModel:         v.GetString("ai_model"),
		AITimeout:       v.GetDuration("ai_timeout"),
		AIMaxRetries:    v.GetInt("ai_max_retries"),
		ChromeRemoteURL: v.GetString("chrome_remote_url"),
		ChromeNoSandbox: v.GetBool("chrome_no_sandbox"),
		RenderTimeout:   v.GetDuration("render_timeout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	switch c.AIProvider {
	case "openai", "rules":
	default:
		return fmt.Errorf("unsupported AI provider %q", c.AIProvider)
	}
	if c.InvoiceFloor < 0 {
		return fmt.Errorf("invoice floor must not be negative, got %d", c.InvoiceFloor)
	}
	if c.BulkMaxLines < 1 || c.BulkMaxLines > 20 {
		return fmt.Errorf("bulk max lines must be between 1 and 20, got %d", c.BulkMaxLines)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history limit must be positive, got %d", c.HistoryLimit)
	}
	if strings.TrimSpace(c.InvoicePrefix) == "" {
		return fmt.Errorf("invoice prefix is required")
	}
	// Sessions never expire, so the signing key must outlive the process.
	if c.Env == "production" && c.SessionSecret == "" {
		return fmt.Errorf("INVOICE_SESSION_SECRET is required in production")
	}
	return nil
}

func InitDB(cfg *Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Setting{}, &models.Invoice{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
