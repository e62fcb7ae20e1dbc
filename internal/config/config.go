// Package config loads application configuration from config.yaml and
// SUPPLIER-prefixed environment variables, with viper defaults as the
// baseline.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/supplier-import/internal/catalog"
)

// Config holds the full application configuration.
type Config struct {
	Catalog     catalog.Config    `yaml:"catalog" mapstructure:"catalog"`
	SupplierAPI SupplierAPIConfig `yaml:"supplier_api" mapstructure:"supplier_api"`
	Perplexity  PerplexityConfig  `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Import      ImportConfig      `yaml:"import" mapstructure:"import"`
	RateLimits  RateLimitConfig   `yaml:"rate_limits" mapstructure:"rate_limits"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Feed        FeedConfig        `yaml:"feed" mapstructure:"feed"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Suppliers   []SupplierConfig  `yaml:"suppliers" mapstructure:"suppliers"`
}

// SupplierAPIConfig holds official supplier API credentials.
type SupplierAPIConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// PerplexityConfig holds the remote-fetch AI service settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds the extraction model settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ImportConfig configures single-import behavior.
type ImportConfig struct {
	Mode             string `yaml:"mode" mapstructure:"mode"`
	HTMLBudget       int    `yaml:"html_budget" mapstructure:"html_budget"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
}

// RateLimitConfig holds per-service request budgets.
type RateLimitConfig struct {
	OfficialAPIRPS     float64 `yaml:"official_api_rps" mapstructure:"official_api_rps"`
	RemoteFetchRPS     float64 `yaml:"remote_fetch_rps" mapstructure:"remote_fetch_rps"`
	ExtractionModelRPS float64 `yaml:"extraction_model_rps" mapstructure:"extraction_model_rps"`
	Burst              int     `yaml:"burst" mapstructure:"burst"`
}

// BatchConfig configures batch import concurrency.
type BatchConfig struct {
	MaxConcurrentImports int `yaml:"max_concurrent_imports" mapstructure:"max_concurrent_imports"`
}

// FeedConfig configures the bulk price feed sync.
type FeedConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SupplierConfig declares one supported supplier. Patterns are compiled into
// a supplier profile at startup.
type SupplierConfig struct {
	Name               string   `yaml:"name" mapstructure:"name"`
	Domain             string   `yaml:"domain" mapstructure:"domain"`
	APIConfigured      bool     `yaml:"api_configured" mapstructure:"api_configured"`
	StyleIDPattern     string   `yaml:"style_id_pattern" mapstructure:"style_id_pattern"`
	AssetPattern       string   `yaml:"asset_pattern" mapstructure:"asset_pattern"`
	PrefixTokens       []string `yaml:"prefix_tokens" mapstructure:"prefix_tokens"`
	ExcludeDescriptors []string `yaml:"exclude_descriptors" mapstructure:"exclude_descriptors"`
	MaxImageSize       string   `yaml:"max_image_size" mapstructure:"max_image_size"`
	ImageBaseURL       string   `yaml:"image_base_url" mapstructure:"image_base_url"`
	DefaultBrand       string   `yaml:"default_brand" mapstructure:"default_brand"`
	ExpectedColors     int      `yaml:"expected_colors" mapstructure:"expected_colors"`
	FastPathMinColors  int      `yaml:"fast_path_min_colors" mapstructure:"fast_path_min_colors"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SUPPLIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.driver", "sqlite")
	v.SetDefault("catalog.path", "catalog.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("supplier_api.base_url", "https://api.ssactivewear.com")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("import.mode", "auto")
	v.SetDefault("import.html_budget", 200_000)
	v.SetDefault("import.fetch_timeout_secs", 20)
	v.SetDefault("import.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	v.SetDefault("rate_limits.official_api_rps", 2.0)
	v.SetDefault("rate_limits.remote_fetch_rps", 0.5)
	v.SetDefault("rate_limits.extraction_model_rps", 1.0)
	v.SetDefault("rate_limits.burst", 2)
	v.SetDefault("batch.max_concurrent_imports", 4)

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
