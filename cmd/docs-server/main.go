// Command docs-server serves the document capabilities over stdio, HTTP or
// WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	mcp "github.com/felixgeelhaar/mcp-docs"
	"github.com/felixgeelhaar/mcp-docs/config"
	"github.com/felixgeelhaar/mcp-docs/docs"
	"github.com/felixgeelhaar/mcp-docs/middleware"
	"github.com/felixgeelhaar/mcp-docs/server"
	"github.com/felixgeelhaar/mcp-docs/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML config file")
	kind := flag.String("transport", "", "transport to serve on: stdio, http or websocket")
	addr := flag.String("addr", "", "listen address for http and websocket")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *kind, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, kind, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if kind != "" {
		cfg.Transport.Kind = kind
	}
	if addr != "" {
		cfg.Transport.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}

	printBanner(cfg)

	stackCfg := middleware.StackConfig{
		Logger:          middleware.NewSlogLogger(logger),
		Timeout:         cfg.Limits.RequestTimeout.Duration,
		Rate:            cfg.Limits.Rate,
		Burst:           cfg.Limits.Burst,
		MaxRequestBytes: cfg.Limits.MaxRequestBytes,
	}

	if cfg.Telemetry.OTel {
		tel, err := setupTelemetry(ctx, cfg.Telemetry, cfg.Server.Version)
		if err != nil {
			return fmt.Errorf("setting up telemetry: %w", err)
		}
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}()
		stackCfg.OTel = true
		stackCfg.OTelOpt = tel.Options()
	}

	var httpOpts []transport.HTTPOption
	if path := cfg.Telemetry.PrometheusPath; path != "" {
		metrics, err := middleware.NewMetrics("mcp_docs")
		if err != nil {
			return fmt.Errorf("creating metrics: %w", err)
		}
		stackCfg.Metrics = metrics
		httpOpts = append(httpOpts, transport.WithMetricsHandler(path, metrics.Handler()))
	}

	srv, store, err := docs.NewServer(server.Info{Name: cfg.Server.Name, Version: cfg.Server.Version})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("starting docs-server",
		"name", cfg.Server.Name,
		"version", cfg.Server.Version,
		"transport", cfg.Transport.Kind,
		"documents", store.Len(),
	)

	err = serve(ctx, srv, cfg.Transport, httpOpts, mcp.WithMiddleware(middleware.NewStack(stackCfg)...))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("docs-server stopped")
	return nil
}

func serve(ctx context.Context, srv *mcp.Server, cfg config.TransportConfig, httpOpts []transport.HTTPOption, opts ...mcp.ServeOption) error {
	switch cfg.Kind {
	case config.TransportHTTP:
		httpOpts = append([]transport.HTTPOption{
			transport.WithReadTimeout(cfg.ReadTimeout.Duration),
			transport.WithWriteTimeout(cfg.WriteTimeout.Duration),
			transport.WithMaxBodyBytes(cfg.MaxBodyBytes),
			transport.WithShutdownTimeout(cfg.ShutdownTimeout.Duration),
			transport.WithShutdownDrainDelay(cfg.DrainDelay.Duration),
		}, httpOpts...)
		return mcp.ServeHTTP(ctx, srv, cfg.Addr, httpOpts, opts...)
	case config.TransportWebSocket:
		return mcp.ServeWebSocket(ctx, srv, cfg.Addr, []transport.WebSocketOption{
			transport.WithWebSocketReadTimeout(cfg.ReadTimeout.Duration),
			transport.WithWebSocketWriteTimeout(cfg.WriteTimeout.Duration),
		}, opts...)
	default:
		return mcp.ServeStdio(ctx, srv, opts...)
	}
}

// setupLogger writes to stderr; stdout carries the stdio transport.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}

func printBanner(cfg *config.Config) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(os.Stderr, "\n    %s\n", cfg.Server.Name)
	gray.Fprintf(os.Stderr, "    version: %s\n\n", cfg.Server.Version)

	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Transport: %s\n", cfg.Transport.Kind)
	if cfg.Transport.Kind != config.TransportStdio {
		green.Fprint(os.Stderr, "    ▶ ")
		fmt.Fprintf(os.Stderr, "Listen:    %s\n", cfg.Transport.Addr)
	}
	if cfg.Telemetry.OTel {
		green.Fprint(os.Stderr, "    ▶ ")
		fmt.Fprintf(os.Stderr, "Tracing:   %s\n", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.PrometheusPath != "" {
		green.Fprint(os.Stderr, "    ▶ ")
		fmt.Fprintf(os.Stderr, "Metrics:   %s\n", cfg.Telemetry.PrometheusPath)
	}
	fmt.Fprintln(os.Stderr)
}
