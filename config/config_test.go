package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "DocumentMCP", cfg.Server.Name)
	assert.Equal(t, TransportStdio, cfg.Transport.Kind)
	assert.Equal(t, 30*time.Second, cfg.Limits.RequestTimeout.Duration)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.OTel)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("DOCS_OTLP", "collector:4317")

	path := writeFile(t, "docs.yaml", `
server:
  name: "docs"
  version: "2.1.0"

transport:
  kind: "http"
  addr: "127.0.0.1:9090"
  read_timeout: "5s"
  shutdown_timeout: "1m"
  drain_delay: "250ms"

logging:
  level: "debug"
  format: "json"

limits:
  request_timeout: "2s"
  rate: 20
  burst: 40
  max_request_bytes: 65536

telemetry:
  otel: true
  service_name: "docs-prod"
  otlp_endpoint: "${DOCS_OTLP}"
  insecure: true
  prometheus_path: "/metrics"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ServerConfig{Name: "docs", Version: "2.1.0"}, cfg.Server)
	assert.Equal(t, TransportHTTP, cfg.Transport.Kind)
	assert.Equal(t, "127.0.0.1:9090", cfg.Transport.Addr)
	assert.Equal(t, 5*time.Second, cfg.Transport.ReadTimeout.Duration)
	assert.Equal(t, 30*time.Second, cfg.Transport.WriteTimeout.Duration, "unset values keep their default")
	assert.Equal(t, time.Minute, cfg.Transport.ShutdownTimeout.Duration)
	assert.Equal(t, 250*time.Millisecond, cfg.Transport.DrainDelay.Duration)
	assert.Equal(t, LoggingConfig{Level: "debug", Format: "json"}, cfg.Logging)
	assert.Equal(t, LimitsConfig{
		RequestTimeout:  Duration{2 * time.Second},
		Rate:            20,
		Burst:           40,
		MaxRequestBytes: 65536,
	}, cfg.Limits)
	assert.Equal(t, TelemetryConfig{
		OTel:           true,
		ServiceName:    "docs-prod",
		OTLPEndpoint:   "collector:4317",
		Insecure:       true,
		PrometheusPath: "/metrics",
	}, cfg.Telemetry)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "docs.toml", `
[server]
name = "docs"

[transport]
kind = "websocket"
addr = ":7070"
write_timeout = "10s"

[limits]
request_timeout = "750ms"
rate = 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "docs", cfg.Server.Name)
	assert.Equal(t, "1.0.0", cfg.Server.Version)
	assert.Equal(t, TransportWebSocket, cfg.Transport.Kind)
	assert.Equal(t, ":7070", cfg.Transport.Addr)
	assert.Equal(t, 10*time.Second, cfg.Transport.WriteTimeout.Duration)
	assert.Equal(t, 750*time.Millisecond, cfg.Limits.RequestTimeout.Duration)
	assert.Equal(t, 5, cfg.Limits.Rate)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "unknown extension",
			file:    "docs.json",
			content: `{}`,
			wantErr: "unsupported config file extension",
		},
		{
			name:    "bad yaml",
			file:    "docs.yaml",
			content: "server: [",
			wantErr: "parsing config",
		},
		{
			name:    "bad toml",
			file:    "docs.toml",
			content: "[server\nname=1",
			wantErr: "parsing config",
		},
		{
			name:    "bad duration",
			file:    "docs.yaml",
			content: "limits:\n  request_timeout: \"soon\"\n",
			wantErr: "invalid duration",
		},
		{
			name:    "bad toml duration",
			file:    "docs.toml",
			content: "[transport]\nread_timeout = \"10 parsecs\"\n",
			wantErr: "invalid duration",
		},
		{
			name:    "invalid transport",
			file:    "docs.yaml",
			content: "transport:\n  kind: \"carrier-pigeon\"\n",
			wantErr: "transport.kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing name", func(c *Config) { c.Server.Name = "" }, "server.name"},
		{"http without addr", func(c *Config) { c.Transport.Kind = TransportHTTP; c.Transport.Addr = "" }, "transport.addr"},
		{"negative timeout", func(c *Config) { c.Limits.RequestTimeout = Duration{-time.Second} }, "limits.request_timeout"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative rate", func(c *Config) { c.Limits.Rate = -1 }, "limits.rate"},
		{"burst without rate", func(c *Config) { c.Limits.Burst = 3 }, "limits.burst requires"},
		{"negative bytes", func(c *Config) { c.Limits.MaxRequestBytes = -1 }, "byte limits"},
		{"otel without service", func(c *Config) { c.Telemetry.OTel = true; c.Telemetry.ServiceName = "" }, "service_name"},
		{"relative metrics path", func(c *Config) {
			c.Transport.Kind = TransportHTTP
			c.Telemetry.PrometheusPath = "metrics"
		}, "must start with /"},
		{"metrics without http", func(c *Config) { c.Telemetry.PrometheusPath = "/metrics" }, "needs the http transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCS_NAME", "from-env")

	assert.Equal(t, "name: from-env", expandEnvVars("name: ${DOCS_NAME}"))
	assert.Equal(t, "name: ", expandEnvVars("name: ${DOCS_UNSET_VARIABLE}"))
	assert.Equal(t, "cost: $5", expandEnvVars("cost: $5"))
}

func TestSlogLevel(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := LoggingConfig{Level: level}.SlogLevel()
		require.NoError(t, err, level)
		assert.Equal(t, want, got, level)
	}
}

func TestDuration_MarshalText(t *testing.T) {
	text, err := Duration{90 * time.Second}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
