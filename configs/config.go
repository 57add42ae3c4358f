package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

// EnvPrefix prefixes every environment variable read by Load (FFBB_LOG_LEVEL, ...).
const EnvPrefix = "ffbb"

// UpstreamFile is the "upstream" section of the YAML configuration file.
type UpstreamFile struct {
	APIBaseURL    *string        `yaml:"api_base_url"`
	SearchBaseURL *string        `yaml:"search_base_url"`
	UserAgent     *string        `yaml:"user_agent"`
	SearchLimit   *int           `yaml:"search_limit"`
	Timeout       *time.Duration `yaml:"timeout"`
}

// CacheFile is the "cache" section of the YAML configuration file.
type CacheFile struct {
	Enabled       *bool          `yaml:"enabled"`
	Backend       *string        `yaml:"backend"`
	Path          *string        `yaml:"path"`
	TokenCacheTTL *time.Duration `yaml:"token_ttl"`
}

// FileConfig defines the structure loaded from the YAML configuration file.
// Unset fields leave the environment/default value untouched.
type FileConfig struct {
	ListenAddr      *string      `yaml:"listen_addr"`
	AdminListenAddr *string      `yaml:"admin_listen_addr"`
	LogLevel        *string      `yaml:"log_level"`
	Upstream        UpstreamFile `yaml:"upstream"`
	Cache           CacheFile    `yaml:"cache"`
}

// Config holds the final application configuration, merged from file and environment variables.
// Fields are loaded from environment variables with the prefix "FFBB_"; a variable
// that is set always wins over the file.
type Config struct {
	// Config File Path (Loaded first from env)
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080"`
	AdminListenAddr          string        `envconfig:"ADMIN_LISTEN_ADDR" default:":8081"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFile                  string        `envconfig:"LOG_FILE" default:"/tmp/ffbb-mcp.log"`

	// Upstream FFBB APIs.
	APIBaseURL        string        `envconfig:"API_BASE_URL" default:"https://api.ffbb.app"`
	SearchBaseURL     string        `envconfig:"SEARCH_BASE_URL" default:"https://meilisearch-prod.ffbb.app"`
	UserAgent         string        `envconfig:"USER_AGENT" default:"okhttp/4.12.0"`
	SearchLimit       int           `envconfig:"SEARCH_LIMIT" default:"20"`
	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`

	// Response cache and token lifetimes.
	HTTPCacheEnabled bool          `envconfig:"HTTP_CACHE_ENABLED" default:"true"`
	CacheBackend     string        `envconfig:"CACHE_BACKEND" default:"bolt"`
	CachePath        string        `envconfig:"CACHE_PATH"`
	TokenCacheTTL    time.Duration `envconfig:"TOKEN_CACHE_TTL" default:"20m"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// ResolvedCachePath returns CachePath, or http_cache.db under the user cache
// directory when it is empty.
func (c *Config) ResolvedCachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ffbb-mcp", "http_cache.db")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.CacheBackend) {
	case "memory", "bolt":
	default:
		errs = append(errs, fmt.Errorf("unsupported cache backend %q (want memory or bolt)", c.CacheBackend))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if c.HTTPClientTimeout <= 0 {
		errs = append(errs, errors.New("HTTP client timeout must be positive"))
	}
	if c.TokenCacheTTL <= 0 {
		errs = append(errs, errors.New("token cache TTL must be positive"))
	}
	// Tokens must not outlive the client generation that uses them.
	if c.TokenCacheTTL >= usecase.TokenTTL {
		errs = append(errs, fmt.Errorf("token cache TTL %s must be below the client TTL %s", c.TokenCacheTTL, usecase.TokenTTL))
	}
	if c.SearchLimit <= 0 {
		errs = append(errs, errors.New("search limit must be positive"))
	}
	return errors.Join(errs...)
}

// Load loads configuration first from environment variables (to get file path),
// then from the specified YAML file, and finally lets explicitly set
// environment variables override the file.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(cfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", cfg.ConfigFilePath, err)
		}
		var fileCfg FileConfig
		if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", cfg.ConfigFilePath, err)
		}
		cfg.merge(fileCfg)
		slog.Info("Loaded configuration from file.", "path", cfg.ConfigFilePath)
	} else {
		slog.Debug("No config file path specified (FFBB_CONFIG_FILE), using defaults/env vars only.")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// merge copies file values into c, except for keys set in the environment.
func (c *Config) merge(f FileConfig) {
	apply(f.ListenAddr, "LISTEN_ADDR", &c.ListenAddr)
	apply(f.AdminListenAddr, "ADMIN_LISTEN_ADDR", &c.AdminListenAddr)
	apply(f.LogLevel, "LOG_LEVEL", &c.LogLevel)

	apply(f.Upstream.APIBaseURL, "API_BASE_URL", &c.APIBaseURL)
	apply(f.Upstream.SearchBaseURL, "SEARCH_BASE_URL", &c.SearchBaseURL)
	apply(f.Upstream.UserAgent, "USER_AGENT", &c.UserAgent)
	apply(f.Upstream.SearchLimit, "SEARCH_LIMIT", &c.SearchLimit)
	apply(f.Upstream.Timeout, "HTTP_CLIENT_TIMEOUT", &c.HTTPClientTimeout)

	apply(f.Cache.Enabled, "HTTP_CACHE_ENABLED", &c.HTTPCacheEnabled)
	apply(f.Cache.Backend, "CACHE_BACKEND", &c.CacheBackend)
	apply(f.Cache.Path, "CACHE_PATH", &c.CachePath)
	apply(f.Cache.TokenCacheTTL, "TOKEN_CACHE_TTL", &c.TokenCacheTTL)
}

func apply[T any](fileValue *T, envKey string, dst *T) {
	if fileValue == nil {
		return
	}
	if _, set := os.LookupEnv(strings.ToUpper(EnvPrefix) + "_" + envKey); set {
		return
	}
	*dst = *fileValue
}
