package docs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/mcp-docs/docstore"
	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/schema"
	"github.com/felixgeelhaar/mcp-docs/server"
)

func newTestServer(t *testing.T) (*server.Server, *docstore.Store) {
	t.Helper()
	srv, store, err := NewServer(server.Info{Name: "DocumentMCP", Version: "test"})
	require.NoError(t, err)
	return srv, store
}

func seedContent(t *testing.T, id string) string {
	t.Helper()
	for _, d := range docstore.Seed() {
		if d.ID == id {
			return d.Content
		}
	}
	t.Fatalf("no seed document %q", id)
	return ""
}

func TestDiscovery(t *testing.T) {
	srv, _ := newTestServer(t)

	var tools []string
	for _, ti := range srv.ListTools() {
		tools = append(tools, ti.Name)
	}
	assert.Equal(t, []string{ToolReadDoc, ToolEditDocument, ToolListDocuments}, tools)

	var resources []string
	for _, ri := range srv.ListResources() {
		resources = append(resources, ri.URI)
	}
	assert.Equal(t, []string{ResourceList, ResourceContent}, resources)

	var prompts []string
	for _, pi := range srv.ListPrompts() {
		prompts = append(prompts, pi.Name)
		require.Len(t, pi.Arguments, 3)
		for _, a := range pi.Arguments {
			assert.True(t, a.Required, "%s.%s should be required", pi.Name, a.Name)
		}
	}
	assert.Equal(t, []string{PromptMarkdownRewrite, PromptSummarizeDoc, PromptExtractKeyPoints}, prompts)
}

func TestToolSchemas(t *testing.T) {
	srv, _ := newTestServer(t)

	tools := srv.ListTools()
	require.Len(t, tools, 3)

	assert.Equal(t, "Read the contents of a document and return it as a string.", tools[0].Description)
	assert.Equal(t, []schema.Param{
		{Name: "doc_id", Type: "string", Required: true, Description: "Id of the document to read"},
	}, tools[0].InputSchema.Params())

	assert.Equal(t, "Edit a document by replacing a string in the documents content with a new string.", tools[1].Description)
	assert.Equal(t, []schema.Param{
		{Name: "doc_id", Type: "string", Required: true, Description: "Id of the document that will be edited"},
		{Name: "old_str", Type: "string", Required: true, Description: "The text to replace. Must match exactly, including whitespace."},
		{Name: "new_str", Type: "string", Required: true, Description: "The new text to insert in place of the old text."},
	}, tools[1].InputSchema.Params())

	assert.Equal(t, "List all available document IDs", tools[2].Description)
	assert.Empty(t, tools[2].InputSchema.Params())
}

func TestReadDoc(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	res, err := srv.CallTool(ctx, ToolReadDoc, json.RawMessage(`{"doc_id":"report.pdf"}`))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "The report details the state of a 20m condenser tower.", res.Text())

	res, err = srv.CallTool(ctx, ToolReadDoc, json.RawMessage(`{"doc_id":"missing.doc"}`))
	require.NoError(t, err, "a missing document is reported, not raised")
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "missing.doc not found")

	_, err = srv.CallTool(ctx, ToolReadDoc, json.RawMessage(`{}`))
	assert.Equal(t, protocol.KindInvalidArguments, protocol.KindOf(err))

	_, err = srv.CallTool(ctx, ToolReadDoc, json.RawMessage(`{"doc_id":"plan.md","page":2}`))
	assert.Equal(t, protocol.KindInvalidArguments, protocol.KindOf(err))
}

func TestEditDocument(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	args := json.RawMessage(`{"doc_id":"plan.md","old_str":"project's implementation","new_str":"rollout"}`)

	res, err := srv.CallTool(ctx, ToolEditDocument, args)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "The plan outlines the steps for the rollout.", res.Text())

	res, err = srv.CallTool(ctx, ToolReadDoc, json.RawMessage(`{"doc_id":"plan.md"}`))
	require.NoError(t, err)
	assert.Equal(t, "The plan outlines the steps for the rollout.", res.Text())

	// Repeating the edit finds nothing to replace.
	res, err = srv.CallTool(ctx, ToolEditDocument, args)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "The plan outlines the steps for the rollout.", res.Text())

	res, err = srv.CallTool(ctx, ToolEditDocument, json.RawMessage(`{"doc_id":"spec.txt","old_str":"equipment","new_str":"pumps"}`))
	require.NoError(t, err)
	assert.Equal(t, "These specifications define the technical requirements for the pumps.", res.Text())

	for _, d := range store.Snapshot() {
		if d.ID != "plan.md" && d.ID != "spec.txt" {
			assert.Equal(t, seedContent(t, d.ID), d.Content, "%s should be untouched", d.ID)
		}
	}

	res, err = srv.CallTool(ctx, ToolEditDocument, json.RawMessage(`{"doc_id":"missing.doc","old_str":"a","new_str":"b"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	_, err = srv.CallTool(ctx, ToolEditDocument, json.RawMessage(`{"doc_id":"plan.md","old_str":"a"}`))
	assert.Equal(t, protocol.KindInvalidArguments, protocol.KindOf(err))
}

type sentNotification struct {
	method string
	params any
}

type notificationRecorder struct {
	sent []sentNotification
}

func (r *notificationRecorder) SendNotification(method string, params any) error {
	r.sent = append(r.sent, sentNotification{method, params})
	return nil
}

func TestEditDocument_NotifiesResourceUpdated(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := &notificationRecorder{}
	ctx := server.ContextWithNotifier(context.Background(), rec)

	_, err := srv.CallTool(ctx, ToolEditDocument, json.RawMessage(`{"doc_id":"report.pdf","old_str":"20m","new_str":"25m"}`))
	require.NoError(t, err)

	_, err = srv.CallTool(ctx, ToolEditDocument, json.RawMessage(`{"doc_id":"missing.doc","old_str":"a","new_str":"b"}`))
	require.NoError(t, err)

	require.Len(t, rec.sent, 1)
	assert.Equal(t, protocol.MethodResourceUpdated, rec.sent[0].method)
	assert.Equal(t, server.ResourceUpdatedParams{URI: "docs://content/report.pdf"}, rec.sent[0].params)
}

func TestEditDocument_NoChangeNoNotification(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := &notificationRecorder{}
	ctx := server.ContextWithNotifier(context.Background(), rec)

	edits := []string{
		`{"doc_id":"report.pdf","old_str":"absent","new_str":"x"}`,
		`{"doc_id":"report.pdf","old_str":"","new_str":"x"}`,
		`{"doc_id":"report.pdf","old_str":"20m","new_str":"20m"}`,
	}
	for _, args := range edits {
		res, err := srv.CallTool(ctx, ToolEditDocument, json.RawMessage(args))
		require.NoError(t, err)
		assert.Equal(t, "The report details the state of a 20m condenser tower.", res.Text())
	}
	assert.Empty(t, rec.sent)
}

func TestListDocuments(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := srv.CallTool(context.Background(), ToolListDocuments, nil)
	require.NoError(t, err)

	var ids []string
	require.NoError(t, json.Unmarshal([]byte(res.Text()), &ids))
	assert.Equal(t, []string{"deposition.md", "report.pdf", "financials.docx", "outlook.pdf", "plan.md", "spec.txt"}, ids)
}

func TestResources(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	res, err := srv.ReadResource(ctx, "docs://list")
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MimeType)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &ids))
	assert.Len(t, ids, 6)

	res, err = srv.ReadResource(ctx, "docs://content/deposition.md")
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, server.ResourceContent{
		URI:      "docs://content/deposition.md",
		MimeType: "text/plain",
		Text:     "This deposition covers the testimony of Angela Smith, P.E.",
	}, res.Contents[0])

	_, err = srv.ReadResource(ctx, "docs://content/missing.doc")
	assert.Equal(t, protocol.KindHandlerFault, protocol.KindOf(err))

	_, err = srv.ReadResource(ctx, "docs://unknown")
	assert.Equal(t, protocol.KindCapabilityNotFound, protocol.KindOf(err))
}

func TestPrompts(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		prompt      string
		instruction string
	}{
		{PromptMarkdownRewrite, "Please rewrite the following content in markdown format:"},
		{PromptSummarizeDoc, "Please summarize the following content:"},
		{PromptExtractKeyPoints, "Please extract and list the key points from the following content:"},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			got, err := srv.GetPrompt(ctx, tt.prompt, map[string]string{"doc_id": "spec.txt", "system": "S", "model": "M"})
			require.NoError(t, err)
			assert.Equal(t, &server.PromptResult{
				System: "S",
				Model:  "M",
				Messages: []server.PromptMessage{{
					Role:    "user",
					Content: tt.instruction + "\n\n" + seedContent(t, "spec.txt"),
				}},
			}, got)
		})
	}

	_, err := srv.GetPrompt(ctx, PromptSummarizeDoc, map[string]string{"doc_id": "missing.doc", "system": "S", "model": "M"})
	assert.Equal(t, protocol.KindHandlerFault, protocol.KindOf(err))

	_, err = srv.GetPrompt(ctx, PromptSummarizeDoc, map[string]string{"doc_id": "spec.txt"})
	assert.Equal(t, protocol.KindInvalidArguments, protocol.KindOf(err))

	_, err = srv.GetPrompt(ctx, "translate_doc", map[string]string{"doc_id": "spec.txt"})
	assert.Equal(t, protocol.KindCapabilityNotFound, protocol.KindOf(err))
}

func TestPromptsSeeEdits(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.CallTool(ctx, ToolEditDocument, json.RawMessage(`{"doc_id":"spec.txt","old_str":"equipment","new_str":"pumps"}`))
	require.NoError(t, err)

	got, err := srv.GetPrompt(ctx, PromptSummarizeDoc, map[string]string{"doc_id": "spec.txt", "system": "S", "model": "M"})
	require.NoError(t, err)
	assert.Contains(t, got.Messages[0].Content, "for the pumps.")
}
