// Package config loads the document server's configuration.
//
// # Configuration File
//
// Files are YAML (.yaml, .yml) or TOML (.toml), chosen by extension.
// Anything not set in the file keeps the value from Default, so an empty
// file is a valid stdio configuration.
//
// # Environment Variable Expansion
//
// Values can reference environment variables before the file is parsed:
//
//	telemetry:
//	  otlp_endpoint: "${OTEL_EXPORTER_OTLP_ENDPOINT}"
//
// An unset variable expands to the empty string.
//
// # Duration Parsing
//
// Durations use time.ParseDuration syntax ("250ms", "30s", "5m").
//
// # Configuration Sections
//
//	server:
//	  name: "DocumentMCP"
//	  version: "1.0.0"
//
//	transport:
//	  kind: "stdio"            # stdio, http, websocket
//	  addr: ":8080"
//	  read_timeout: "30s"
//	  write_timeout: "30s"
//	  shutdown_timeout: "30s"
//	  drain_delay: "0s"
//	  max_body_bytes: 10485760
//
//	logging:
//	  level: "info"            # debug, info, warn, error
//	  format: "text"           # text, json
//
//	limits:
//	  request_timeout: "30s"
//	  rate: 0                  # requests per second, 0 disables
//	  burst: 0
//	  max_request_bytes: 0     # 0 disables
//
//	telemetry:
//	  otel: false
//	  service_name: "mcp-docs"
//	  otlp_endpoint: ""
//	  insecure: false
//	  prometheus_path: ""      # e.g. /metrics on the http transport
//
// The same layout applies to TOML with [section] tables.
package config
