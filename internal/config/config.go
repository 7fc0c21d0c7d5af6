package config

import (
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port           int    `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"` // development | production
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`

	// Upstream POS ledger API
	UpstreamBaseURL string `mapstructure:"UPSTREAM_BASE_URL"`
	UpstreamToken   string `mapstructure:"UPSTREAM_TOKEN"`

	// Auth (tokens issued to dashboard consumers)
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Redis (async job queues)
	RedisURL string `mapstructure:"REDIS_URL"`

	// Refresh cadence
	RegisterRefreshSeconds int `mapstructure:"REGISTER_REFRESH_SECONDS"`
	DatasetRefreshSeconds  int `mapstructure:"DATASET_REFRESH_SECONDS"`

	// Sale submission: when true, refetch the catalog before the stock check
	// instead of accepting the cached-catalog staleness window.
	StrictStockCheck bool `mapstructure:"STRICT_STOCK_CHECK"`

	// SMTP (closing summary emails)
	SMTPHost       string `mapstructure:"SMTP_HOST"`
	SMTPPort       int    `mapstructure:"SMTP_PORT"`
	SMTPUser       string `mapstructure:"SMTP_USER"`
	SMTPPassword   string `mapstructure:"SMTP_PASSWORD"`
	SummaryEmailTo string `mapstructure:"SUMMARY_EMAIL_TO"`

	// Reports
	PDFStoragePath string `mapstructure:"PDF_STORAGE_PATH"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for development
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("WORKER_POOL_SIZE", 3)
	viper.SetDefault("UPSTREAM_BASE_URL", "http://localhost:9000")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("REGISTER_REFRESH_SECONDS", 30)
	viper.SetDefault("DATASET_REFRESH_SECONDS", 300)
	viper.SetDefault("STRICT_STOCK_CHECK", false)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("PDF_STORAGE_PATH", "/tmp/gestionar/reports")

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
