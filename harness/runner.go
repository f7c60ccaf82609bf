package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/felixgeelhaar/mcp-docs/client"
	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/transport"
)

// Dialer opens a transport to a server. Each scenario dials once.
type Dialer func(ctx context.Context) (client.Transport, error)

// PipeDialer dials an in-process server. newHandler is called for every
// session so scenarios never see each other's edits.
func PipeDialer(newHandler func() (transport.Handler, error)) Dialer {
	return func(context.Context) (client.Transport, error) {
		h, err := newHandler()
		if err != nil {
			return nil, err
		}
		return client.NewPipeTransport(h), nil
	}
}

// StdioDialer spawns command for every session.
func StdioDialer(command string, args []string, stderr io.Writer) Dialer {
	return func(context.Context) (client.Transport, error) {
		return client.NewStdioTransport(command, args, stderr)
	}
}

// WebSocketDialer connects to a websocket server at url.
func WebSocketDialer(url string) Dialer {
	return func(ctx context.Context) (client.Transport, error) {
		return client.DialWebSocket(ctx, url)
	}
}

// Scenario is one named check run against a connected client. The value
// it returns is logged on success.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, c *client.Client, obs *Observer) (any, error)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithScenarios replaces the default scenarios.
func WithScenarios(scenarios ...Scenario) RunnerOption {
	return func(r *Runner) {
		r.scenarios = scenarios
	}
}

// WithScenarioTimeout bounds each scenario, connect included.
func WithScenarioTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithClientOptions passes options to every client the runner creates.
func WithClientOptions(opts ...client.Option) RunnerOption {
	return func(r *Runner) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// Runner executes scenarios, each over its own session.
type Runner struct {
	dial       Dialer
	obs        *Observer
	scenarios  []Scenario
	timeout    time.Duration
	clientOpts []client.Option
}

// NewRunner creates a runner with the default scenarios.
func NewRunner(dial Dialer, obs *Observer, opts ...RunnerOption) *Runner {
	r := &Runner{
		dial:      dial,
		obs:       obs,
		scenarios: DefaultScenarios(),
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every scenario, prints the summary and reports whether
// all of them passed.
func (r *Runner) Run(ctx context.Context) bool {
	r.obs.Info("Starting document server test suite", D("scenarios", len(r.scenarios)))

	for _, s := range r.scenarios {
		if ctx.Err() != nil {
			r.obs.Warning("Test suite interrupted", D("error", ctx.Err().Error()))
			break
		}
		t := r.obs.StartTest(s.Name)
		result, err := r.runOne(ctx, s)
		r.obs.EndTest(t, err, result)
	}

	return r.obs.PrintSummary().Failed == 0
}

func (r *Runner) runOne(ctx context.Context, s Scenario) (result any, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tr, err := r.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if p, ok := tr.(interface{ Pid() int }); ok {
		r.obs.Debug("Server process started", D("pid", p.Pid()))
	}
	c := client.New(tr, r.clientOpts...)
	defer func() {
		if cerr := c.Close(); cerr != nil {
			r.obs.Debug("Session close failed", D("error", cerr.Error()))
		}
	}()

	info, err := c.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	r.obs.Debug("Session initialized", D("server", info.Name), D("version", info.Version))

	return s.Run(ctx, c, r.obs)
}

// Names the default scenarios expect the server to expose.
var (
	ExpectedTools     = []string{"read_doc_contents", "edit_document", "list_documents"}
	ExpectedResources = []string{"docs://list", "docs://content/{doc_id}"}
	ExpectedPrompts   = []string{"markdown_rewrite", "summarize_doc", "extract_key_points"}
)

// DefaultScenarios returns the full document server suite.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "Server Connection", Run: checkConnection},
		{Name: "Tool Discovery", Run: checkToolDiscovery},
		{Name: "Resource Discovery", Run: checkResourceDiscovery},
		{Name: "Prompt Discovery", Run: checkPromptDiscovery},
		{Name: "List Documents Tool", Run: checkListDocuments},
		{Name: "Read Document Tool", Run: checkReadDocument},
		{Name: "Resource Reading", Run: checkResourceReading},
		{Name: "Edit Document Tool", Run: checkEditDocument},
		{Name: "Prompt Fetch", Run: checkPromptFetch},
		{Name: "Error Handling", Run: checkErrorHandling},
	}
}

func checkConnection(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	info := c.ServerInfo()
	obs.Info("Connected to server",
		D("name", info.Name),
		D("version", info.Version),
		D("protocol_version", info.ProtocolVersion),
	)
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return fmt.Sprintf("%s %s", info.Name, info.Version), nil
}

func checkToolDiscovery(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
		var params []string
		if t.InputSchema != nil {
			params = t.InputSchema.PropertyNames()
		}
		obs.Debug("Tool: "+t.Name, D("description", t.Description), D("parameters", params))
	}
	warnMissing(obs, "tools", ExpectedTools, names)
	return names, nil
}

func checkResourceDiscovery(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	resources, err := c.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(resources))
	for _, r := range resources {
		uris = append(uris, r.URI)
		obs.Debug("Resource: "+r.URI, D("name", r.Name), D("mime_type", r.MimeType))
	}
	warnMissing(obs, "resources", ExpectedResources, uris)
	return uris, nil
}

func checkPromptDiscovery(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	prompts, err := c.ListPrompts(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(prompts))
	for _, p := range prompts {
		names = append(names, p.Name)
		args := make([]string, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			args = append(args, a.Name)
		}
		obs.Debug("Prompt: "+p.Name, D("description", p.Description), D("arguments", args))
	}
	warnMissing(obs, "prompts", ExpectedPrompts, names)
	return names, nil
}

func warnMissing(obs *Observer, kind string, want, got []string) {
	var missing []string
	for _, name := range want {
		if !slices.Contains(got, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		obs.Warning("Missing expected "+kind, D("missing", missing))
	}
}

func checkListDocuments(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	res, err := c.CallTool(ctx, "list_documents", map[string]any{})
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("list_documents failed: %s", res.Text())
	}
	var ids []string
	if err := json.Unmarshal([]byte(res.Text()), &ids); err != nil {
		return nil, fmt.Errorf("list_documents returned %q: %w", res.Text(), err)
	}
	obs.Info("Documents listed", D("count", len(ids)), D("documents", ids))
	return ids, nil
}

func checkReadDocument(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	res, err := c.CallTool(ctx, "read_doc_contents", map[string]any{"doc_id": "report.pdf"})
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("read_doc_contents failed: %s", res.Text())
	}
	obs.Info("Document read", D("doc_id", "report.pdf"), D("length", len(res.Text())))
	return res.Text(), nil
}

func checkResourceReading(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	list, err := c.ReadResource(ctx, "docs://list")
	if err != nil {
		return nil, fmt.Errorf("docs://list: %w", err)
	}
	obs.Debug("Resource read", D("uri", list.URI), D("mime_type", list.MimeType))

	content, err := c.ReadResource(ctx, "docs://content/plan.md")
	if err != nil {
		return nil, fmt.Errorf("docs://content/plan.md: %w", err)
	}
	obs.Debug("Resource read", D("uri", content.URI), D("mime_type", content.MimeType))
	return content.Text, nil
}

func checkEditDocument(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	args := map[string]any{"doc_id": "plan.md", "old_str": "implementation", "new_str": "rollout"}

	res, err := c.CallTool(ctx, "edit_document", args)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("edit_document failed: %s", res.Text())
	}

	read, err := c.CallTool(ctx, "read_doc_contents", map[string]any{"doc_id": "plan.md"})
	if err != nil {
		return nil, err
	}
	if !strings.Contains(read.Text(), "rollout") || strings.Contains(read.Text(), "implementation") {
		return nil, fmt.Errorf("edit not visible, document is %q", read.Text())
	}
	obs.Info("Edit verified", D("content", read.Text()))

	again, err := c.CallTool(ctx, "edit_document", args)
	if err != nil {
		return nil, err
	}
	if again.IsError || again.Text() != read.Text() {
		return nil, fmt.Errorf("repeated edit changed the document to %q", again.Text())
	}
	return read.Text(), nil
}

func checkPromptFetch(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	res, err := c.GetPrompt(ctx, "summarize_doc", map[string]string{
		"doc_id": "report.pdf",
		"system": "You are a concise technical writer.",
		"model":  "default",
	})
	if err != nil {
		return nil, err
	}
	if len(res.Messages) == 0 {
		return nil, errors.New("summarize_doc returned no messages")
	}
	obs.Debug("Prompt fetched", D("messages", len(res.Messages)), D("system", res.System), D("model", res.Model))
	return res.Messages[0].Content, nil
}

func checkErrorHandling(ctx context.Context, c *client.Client, obs *Observer) (any, error) {
	res, err := c.CallTool(ctx, "read_doc_contents", map[string]any{"doc_id": "nonexistent.doc"})
	if err != nil {
		return nil, fmt.Errorf("missing document should be a tool error, got %w", err)
	}
	if !res.IsError {
		return nil, fmt.Errorf("missing document read succeeded with %q", res.Text())
	}
	obs.Info("Missing document reported as tool error", D("message", res.Text()))

	_, err = c.ReadResource(ctx, "docs://invalid")
	if err == nil {
		return nil, errors.New("unknown resource URI was served")
	}
	kind := protocol.KindOf(err)
	obs.Info("Unknown resource rejected", D("kind", kind.String()), D("error", err.Error()))
	if kind != protocol.KindCapabilityNotFound {
		obs.Warning("Unexpected error kind for unknown resource", D("kind", kind.String()))
	}
	return "errors handled", nil
}
