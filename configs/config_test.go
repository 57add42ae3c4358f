package configs_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickdesi/FFBB-MCP-Server/configs"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffbb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := configs.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":8081", cfg.AdminListenAddr)
	assert.Equal(t, "https://api.ffbb.app", cfg.APIBaseURL)
	assert.Equal(t, "https://meilisearch-prod.ffbb.app", cfg.SearchBaseURL)
	assert.Equal(t, "okhttp/4.12.0", cfg.UserAgent)
	assert.Equal(t, "bolt", cfg.CacheBackend)
	assert.True(t, cfg.HTTPCacheEnabled)
	assert.Equal(t, 20*time.Minute, cfg.TokenCacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.ParsedLogLevel())
	assert.Equal(t, "http_cache.db", filepath.Base(cfg.ResolvedCachePath()))
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeFile(t, `
log_level: debug
upstream:
  api_base_url: http://localhost:9000
  search_limit: 5
  timeout: 3s
cache:
  backend: memory
  path: /tmp/other.db
`)
	t.Setenv("FFBB_CONFIG_FILE", path)
	t.Setenv("FFBB_SEARCH_LIMIT", "50")

	cfg, err := configs.Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.ParsedLogLevel())
	assert.Equal(t, "http://localhost:9000", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, "/tmp/other.db", cfg.ResolvedCachePath())
	// The environment wins over the file.
	assert.Equal(t, 50, cfg.SearchLimit)
	// Untouched values keep their defaults.
	assert.Equal(t, "https://meilisearch-prod.ffbb.app", cfg.SearchBaseURL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "missing file", env: map[string]string{"FFBB_CONFIG_FILE": "/nonexistent/ffbb.yaml"}},
		{name: "bad yaml", file: "upstream: [unclosed"},
		{name: "bad backend", env: map[string]string{"FFBB_CACHE_BACKEND": "sqlite"}},
		{name: "bad duration", env: map[string]string{"FFBB_TOKEN_CACHE_TTL": "soon"}},
		{name: "token TTL reaches client TTL", env: map[string]string{"FFBB_TOKEN_CACHE_TTL": "25m"}},
		{name: "token TTL above client TTL", env: map[string]string{"FFBB_TOKEN_CACHE_TTL": "40m"}},
		{name: "zero search limit", file: "upstream:\n  search_limit: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.file != "" {
				t.Setenv("FFBB_CONFIG_FILE", writeFile(t, tt.file))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := configs.Load()
			assert.Error(t, err)
		})
	}
}

func TestParsedLogLevel(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	} {
		cfg := configs.Config{LogLevel: level}
		assert.Equal(t, want, cfg.ParsedLogLevel(), level)
	}
}
