package config

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botcanvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "botcanvas:doc:", cfg.Redis.Prefix)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoad_File(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	path := writeConfig(t, `
http:
  addr: 0.0.0.0:9090
  shutdown_timeout: 10s
redis:
  addr: localhost:6379
  db: 2
  ttl: 1h
encryption:
  key: `+key+`
redaction:
  patterns: ['\d{3}-\d{4}']
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "botcanvas:doc:", cfg.Redis.Prefix, "unset fields keep their default")
	assert.Equal(t, []string{`\d{3}-\d{4}`}, cfg.Redaction.Patterns)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	k, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, k, 32)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "http:\n  addr: localhost:1000\n")
	t.Setenv("BOTCANVAS_HTTP_ADDR", "localhost:2000")
	t.Setenv("BOTCANVAS_REDIS_DB", "3")
	t.Setenv("BOTCANVAS_REDIS_TTL", "30m")
	t.Setenv("BOTCANVAS_LOG_LEVEL", "warn")
	t.Setenv("BOTCANVAS_REDACT_PATTERNS", "foo, bar ,")
	t.Setenv("BOTCANVAS_STORAGE_DIR", "/var/lib/botcanvas")
	t.Setenv("BOTCANVAS_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:2000", cfg.HTTP.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 30*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, []string{"foo", "bar"}, cfg.Redaction.Patterns)
	assert.Equal(t, "/var/lib/botcanvas", cfg.Storage.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		errLike string
	}{
		{name: "bad level", yaml: "log:\n  level: loud\n", errLike: "Level"},
		{name: "bad format", yaml: "log:\n  format: xml\n", errLike: "Format"},
		{name: "bad addr", yaml: "http:\n  addr: nowhere\n", errLike: "Addr"},
		{name: "bad db", yaml: "redis:\n  db: 99\n", errLike: "DB"},
		{name: "short key", yaml: "encryption:\n  key: " + base64.StdEncoding.EncodeToString([]byte("short")) + "\n", errLike: "32 bytes"},
		{name: "not base64", yaml: "encryption:\n  key: '***'\n", errLike: "Key"},
		{name: "bad pattern", yaml: "redaction:\n  patterns: ['(unclosed']\n", errLike: "redaction.patterns[0]"},
		{name: "bad yaml", yaml: "http: [", errLike: "failed to parse"},
		{name: "bad env duration", env: map[string]string{"BOTCANVAS_REDIS_TTL": "soon"}, errLike: "BOTCANVAS_REDIS_TTL"},
		{name: "bad env db", env: map[string]string{"BOTCANVAS_REDIS_DB": "two"}, errLike: "BOTCANVAS_REDIS_DB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errLike)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}
