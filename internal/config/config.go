package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Scorer    ScorerConfig    `yaml:"scorer" mapstructure:"scorer"`
	Followup  FollowupConfig  `yaml:"followup" mapstructure:"followup"`
	Mailer    MailerConfig    `yaml:"mailer" mapstructure:"mailer"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings. An empty key disables
// AI-assisted extraction and activates the heuristic fallback.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OCRConfig configures PDF/image text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// IngestConfig configures upload validation ceilings (bytes).
type IngestConfig struct {
	MaxDocumentBytes    int64  `yaml:"max_document_bytes" mapstructure:"max_document_bytes"`
	MaxCertificateBytes int64  `yaml:"max_certificate_bytes" mapstructure:"max_certificate_bytes"`
	MaxImageBytes       int64  `yaml:"max_image_bytes" mapstructure:"max_image_bytes"`
	TempDir             string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// ExtractConfig configures structured extraction.
type ExtractConfig struct {
	MaxExcerptChars      int `yaml:"max_excerpt_chars" mapstructure:"max_excerpt_chars"`
	MaxHeuristicProducts int `yaml:"max_heuristic_products" mapstructure:"max_heuristic_products"`
}

// ScorerConfig configures completeness scoring. WeightOverrides lets
// operations retune the compiled-in field weights without a rebuild.
type ScorerConfig struct {
	WeightOverrides map[string]int `yaml:"weight_overrides" mapstructure:"weight_overrides"`
}

// FollowupConfig configures the follow-up planner and sweep.
type FollowupConfig struct {
	HighIntervalDays    int    `yaml:"high_interval_days" mapstructure:"high_interval_days"`
	MediumIntervalDays  int    `yaml:"medium_interval_days" mapstructure:"medium_interval_days"`
	LowIntervalDays     int    `yaml:"low_interval_days" mapstructure:"low_interval_days"`
	MaxRequests         int    `yaml:"max_requests" mapstructure:"max_requests"`
	ResponseTimeoutDays int    `yaml:"response_timeout_days" mapstructure:"response_timeout_days"`
	DefaultLocale       string `yaml:"default_locale" mapstructure:"default_locale"`
}

// Interval returns the scheduling delay for a tier name.
func (c FollowupConfig) Interval(tier string) time.Duration {
	days := c.MediumIntervalDays
	switch tier {
	case "high":
		days = c.HighIntervalDays
	case "low":
		days = c.LowIntervalDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ResponseTimeout returns how long a sent request waits before a
// no-response follow-up is generated.
func (c FollowupConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutDays) * 24 * time.Hour
}

// MailerConfig configures the outbound messaging collaborator.
type MailerConfig struct {
	Host       string  `yaml:"host" mapstructure:"host"`
	Port       int     `yaml:"port" mapstructure:"port"`
	Username   string  `yaml:"username" mapstructure:"username"`
	Password   string  `yaml:"password" mapstructure:"password"`
	From       string  `yaml:"from" mapstructure:"from"`
	SenderName string  `yaml:"sender_name" mapstructure:"sender_name"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// BatchConfig configures concurrent supplier processing.
type BatchConfig struct {
	MaxConcurrentSuppliers int `yaml:"max_concurrent_suppliers" mapstructure:"max_concurrent_suppliers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SOURCING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "sourcing.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("ingest.max_document_bytes", 50*1024*1024)
	v.SetDefault("ingest.max_certificate_bytes", 10*1024*1024)
	v.SetDefault("ingest.max_image_bytes", 5*1024*1024)
	v.SetDefault("ingest.temp_dir", "")
	v.SetDefault("extract.max_excerpt_chars", 8000)
	v.SetDefault("extract.max_heuristic_products", 20)
	v.SetDefault("followup.high_interval_days", 3)
	v.SetDefault("followup.medium_interval_days", 7)
	v.SetDefault("followup.low_interval_days", 14)
	v.SetDefault("followup.max_requests", 3)
	v.SetDefault("followup.response_timeout_days", 5)
	v.SetDefault("followup.default_locale", "en")
	v.SetDefault("mailer.port", 587)
	v.SetDefault("mailer.sender_name", "WeDealize Sourcing Team")
	v.SetDefault("mailer.rate_per_sec", 1.0)
	v.SetDefault("batch.max_concurrent_suppliers", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
