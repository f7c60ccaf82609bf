package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportStdio     = "stdio"
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Limits    LimitsConfig    `yaml:"limits" toml:"limits"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

// ServerConfig is what the server reports about itself on initialize.
type ServerConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Version string `yaml:"version" toml:"version"`
}

// TransportConfig selects and tunes the transport.
type TransportConfig struct {
	Kind            string   `yaml:"kind" toml:"kind"`
	Addr            string   `yaml:"addr" toml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	DrainDelay      Duration `yaml:"drain_delay" toml:"drain_delay"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// LimitsConfig bounds the work a single request may do.
type LimitsConfig struct {
	RequestTimeout  Duration `yaml:"request_timeout" toml:"request_timeout"`
	Rate            int      `yaml:"rate" toml:"rate"`
	Burst           int      `yaml:"burst" toml:"burst"`
	MaxRequestBytes int64    `yaml:"max_request_bytes" toml:"max_request_bytes"`
}

// TelemetryConfig holds tracing and metrics configuration.
type TelemetryConfig struct {
	OTel           bool   `yaml:"otel" toml:"otel"`
	ServiceName    string `yaml:"service_name" toml:"service_name"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" toml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure" toml:"insecure"`
	PrometheusPath string `yaml:"prometheus_path" toml:"prometheus_path"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string. TOML values decode through it.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalYAML parses a duration scalar.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	if err := d.UnmarshalText([]byte(value.Value)); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}

// Default returns the configuration used when no file is given: stdio,
// text logging at info, no limits beyond a 30s request timeout.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "DocumentMCP",
			Version: "1.0.0",
		},
		Transport: TransportConfig{
			Kind:            TransportStdio,
			Addr:            ":8080",
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{30 * time.Second},
			MaxBodyBytes:    10 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Limits: LimitsConfig{
			RequestTimeout: Duration{30 * time.Second},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "mcp-docs",
		},
	}
}

// Load reads a configuration file from the given path. Environment
// variables in the form ${VAR_NAME} are expanded before parsing. An empty
// path returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var format string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}

	return Parse(data, format)
}

// Parse decodes configuration data in the given format ("yaml" or "toml")
// over Default and validates the result.
func Parse(data []byte, format string) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch format {
	case "yaml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case "toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}

	switch c.Transport.Kind {
	case TransportStdio:
	case TransportHTTP, TransportWebSocket:
		if c.Transport.Addr == "" {
			return fmt.Errorf("transport.addr is required for the %s transport", c.Transport.Kind)
		}
	default:
		return fmt.Errorf("transport.kind must be one of stdio, http, websocket, got %q", c.Transport.Kind)
	}

	for name, d := range map[string]Duration{
		"transport.read_timeout":     c.Transport.ReadTimeout,
		"transport.write_timeout":    c.Transport.WriteTimeout,
		"transport.shutdown_timeout": c.Transport.ShutdownTimeout,
		"transport.drain_delay":      c.Transport.DrainDelay,
		"limits.request_timeout":     c.Limits.RequestTimeout,
	} {
		if d.Duration < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Limits.Rate < 0 || c.Limits.Burst < 0 {
		return fmt.Errorf("limits.rate and limits.burst must not be negative")
	}
	if c.Limits.Burst > 0 && c.Limits.Rate == 0 {
		return fmt.Errorf("limits.burst requires limits.rate")
	}
	if c.Limits.MaxRequestBytes < 0 || c.Transport.MaxBodyBytes < 0 {
		return fmt.Errorf("byte limits must not be negative")
	}

	if c.Telemetry.OTel && c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry.service_name is required when otel is enabled")
	}
	if p := c.Telemetry.PrometheusPath; p != "" {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("telemetry.prometheus_path must start with /, got %q", p)
		}
		if c.Transport.Kind != TransportHTTP {
			return fmt.Errorf("telemetry.prometheus_path needs the http transport")
		}
	}

	return nil
}

// SlogLevel returns the slog level named by Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", l.Level)
}
