// Command docs-harness runs the document server scenario suite and writes a
// JSON report of every step.
//
// By default it spawns docs-server over stdio for each scenario:
//
//	docs-harness -server "docs-server -config docs.yaml"
//
// With -inprocess the suite runs against an in-process server instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	mcp "github.com/felixgeelhaar/mcp-docs"
	"github.com/felixgeelhaar/mcp-docs/client"
	"github.com/felixgeelhaar/mcp-docs/docs"
	"github.com/felixgeelhaar/mcp-docs/harness"
	"github.com/felixgeelhaar/mcp-docs/middleware"
	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/server"
	"github.com/felixgeelhaar/mcp-docs/transport"
)

func main() {
	serverCmd := flag.String("server", "docs-server", "command that starts the server on stdio")
	wsURL := flag.String("ws", "", "websocket URL of a running server, instead of spawning one")
	inProcess := flag.Bool("inprocess", false, "run against an in-process server")
	reportDir := flag.String("report-dir", ".", "directory the JSON report is written to")
	noColor := flag.Bool("no-color", false, "disable colored output")
	timeout := flag.Duration("timeout", 30*time.Second, "per-scenario timeout")
	protocolVersion := flag.String("protocol", protocol.MCPVersion, "protocol version announced in initialize")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *noColor {
		color.NoColor = true
	}

	var obsOpts []harness.ObserverOption
	if *noColor {
		obsOpts = append(obsOpts, harness.WithoutColor())
	}
	obs := harness.NewObserver(os.Stdout, obsOpts...)

	var dial harness.Dialer
	switch {
	case *inProcess:
		dial = harness.PipeDialer(inProcessHandler)
	case *wsURL != "":
		dial = harness.WebSocketDialer(*wsURL)
	default:
		fields := strings.Fields(*serverCmd)
		if len(fields) == 0 {
			fmt.Fprintln(os.Stderr, "Error: -server is empty")
			os.Exit(2)
		}
		dial = harness.StdioDialer(fields[0], fields[1:], os.Stderr)
	}

	ok := harness.NewRunner(dial, obs,
		harness.WithScenarioTimeout(*timeout),
		harness.WithClientOptions(client.WithProtocolVersion(*protocolVersion)),
	).Run(ctx)

	path, err := harness.WriteReport(*reportDir, obs.Report(), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nTest report saved to: %s\n", path)

	if !ok {
		os.Exit(1)
	}
}

func inProcessHandler() (transport.Handler, error) {
	srv, _, err := docs.NewServer(server.Info{Name: "DocumentMCP", Version: "1.0.0"})
	if err != nil {
		return nil, err
	}
	return mcp.NewHandler(srv, mcp.WithLogger(middleware.NopLogger{})), nil
}
