package utils

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the contractdiff service.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
		Level      string `yaml:"level"`
	} `yaml:"logger"`

	Cache struct {
		RedisHost          string `yaml:"redis_host"`
		ReportCacheDB      int    `yaml:"report_cache_db"`
		RateLimitDB        int    `yaml:"rate_limit_db"`
		ReportCacheEnabled bool   `yaml:"report_cache_enabled"`
		// ReportCacheTTLStr holds the YAML value ("24h"); ReportCacheTTL is
		// the parsed form.
		ReportCacheTTLStr string        `yaml:"report_cache_ttl"`
		ReportCacheTTL    time.Duration `yaml:"-"`
	} `yaml:"cache"`

	RateLimiter struct {
		IntervalStr       string        `yaml:"interval"`
		Interval          time.Duration `yaml:"-"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
		UserLimit         int           `yaml:"user_limit"`
	} `yaml:"rate_limiter"`

	Limits struct {
		MaxPDFBytes    int `yaml:"max_pdf_bytes"`
		MaxDocxBytes   int `yaml:"max_docx_bytes"`
		MaxReportBytes int `yaml:"max_report_bytes"`
	} `yaml:"limits"`

	Compare struct {
		TimeoutSecs    int `yaml:"timeout_secs"`
		WorkerPoolSize int `yaml:"worker_pool_size"`
		TopTerms       int `yaml:"top_terms"`
	} `yaml:"compare"`

	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`

	Auth struct {
		Postgres PostgresConfig `yaml:"postgres"`
	} `yaml:"auth"`
}

// PostgresConfig describes the connection to the API token store. Host may
// alternatively hold a full postgres:// DSN.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// AppConfig is the process-wide configuration, populated by LoadConfig.
var AppConfig Config

// GetConfig returns the current process-wide configuration.
func GetConfig() Config {
	return AppConfig
}

func defaultConfig() Config {
	var cfg Config
	cfg.Server.Host = ""
	cfg.Server.Port = ":8080"
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 50
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 14
	cfg.Cache.RedisHost = "localhost:6379"
	cfg.Cache.ReportCacheDB = 0
	cfg.Cache.RateLimitDB = 1
	cfg.Cache.ReportCacheEnabled = true
	cfg.Cache.ReportCacheTTL = 24 * time.Hour
	cfg.RateLimiter.Interval = time.Minute
	cfg.Limits.MaxPDFBytes = 20 * 1024 * 1024
	cfg.Limits.MaxDocxBytes = 10 * 1024 * 1024
	cfg.Limits.MaxReportBytes = 20 * 1024 * 1024
	cfg.Compare.TimeoutSecs = 30
	cfg.Compare.WorkerPoolSize = 4
	cfg.Compare.TopTerms = 15
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 400
	cfg.LLM.Temperature = 0.2
	return cfg
}

// LoadConfig reads the YAML configuration from CONFIG_PATH (or ./config.yaml)
// and stores it in AppConfig. A missing file yields the defaults; an invalid
// file or invalid values panic, since the service cannot run without a sane
// configuration.
func LoadConfig() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadConfigFrom(path)
}

// LoadConfigFrom loads the configuration from an explicit path.
func LoadConfigFrom(path string) Config {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: cannot parse %s: %v", path, err))
		}
	} else if !os.IsNotExist(err) {
		panic(fmt.Sprintf("config: cannot read %s: %v", path, err))
	}

	validateConfig(&cfg)

	AppConfig = cfg
	return cfg
}

func parseDuration(raw string, fallback time.Duration, field string) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		panic(fmt.Sprintf("config: invalid %s: %v", field, err))
	}
	return d
}

func validateConfig(cfg *Config) {
	cfg.RateLimiter.Interval = parseDuration(cfg.RateLimiter.IntervalStr, time.Minute, "rate_limiter.interval")
	cfg.Cache.ReportCacheTTL = parseDuration(cfg.Cache.ReportCacheTTLStr, 24*time.Hour, "cache.report_cache_ttl")

	if cfg.RateLimiter.Interval <= 0 {
		panic("config: rate_limiter.interval must be positive")
	}
	if cfg.RateLimiter.UserLimit < 0 {
		panic("config: rate_limiter.user_limit must not be negative")
	}
	if cfg.Limits.MaxPDFBytes <= 0 || cfg.Limits.MaxDocxBytes <= 0 || cfg.Limits.MaxReportBytes <= 0 {
		panic("config: limits must be positive")
	}
	if cfg.Compare.TimeoutSecs <= 0 {
		panic("config: compare.timeout_secs must be positive")
	}
	if cfg.Compare.TopTerms <= 0 {
		cfg.Compare.TopTerms = 15
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = 400
	}
}
