package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 8501, cfg.Server.Port)
	assert.Equal(t, ";", cfg.Upload.Separator)
	assert.Equal(t, "netdash_session", cfg.Session.CookieName)
	assert.Equal(t, "0.0.0.0:8501", cfg.Server.Addr())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults from struct tags",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8501, cfg.Server.Port)
				assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
				assert.Equal(t, int64(200<<20), cfg.Upload.MaxFileBytes)
				assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"NETDASH_SERVER_PORT":          "9000",
				"NETDASH_LOGGING_LEVEL":        "debug",
				"NETDASH_UPLOAD_SEPARATOR":     ",",
				"NETDASH_SESSION_MAX_SESSIONS": "5",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, ",", cfg.Upload.Separator)
				assert.Equal(t, 5, cfg.Session.MaxSessions)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"NETDASH_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "multi character separator",
			env:     map[string]string{"NETDASH_UPLOAD_SEPARATOR": ";;"},
			wantErr: true,
		},
		{
			name:    "unsupported trace exporter",
			env:     map[string]string{"NETDASH_TELEMETRY_TRACE_EXPORTER": "otlp"},
			wantErr: true,
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"NETDASH_SESSION_IDLE_TTL": "forever"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NETDASH_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFileWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 7000
  host: 127.0.0.1
logging:
  level: warn
session:
  idle_ttl: 30m
upload:
  separator: ","
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("NETDASH_CONFIG_FILE", path)
	t.Setenv("NETDASH_LOGGING_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "error", cfg.Logging.Level, "explicit env value wins over file")
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, ",", cfg.Upload.Separator)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))
	t.Setenv("NETDASH_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Upload.MaxConcurrentParses = 0

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, int64(1), cfg.Upload.MaxConcurrentParses)

	cfg.Logging.Output = "syslog"
	assert.Error(t, cfg.validate())
}
