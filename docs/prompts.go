package docs

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-docs/docstore"
	"github.com/felixgeelhaar/mcp-docs/server"
)

// Prompt names.
const (
	PromptMarkdownRewrite  = "markdown_rewrite"
	PromptSummarizeDoc     = "summarize_doc"
	PromptExtractKeyPoints = "extract_key_points"
)

type docPrompt struct {
	name        string
	description string
	docArg      string
	modelArg    string
	instruction string
}

var docPrompts = []docPrompt{
	{
		name:        PromptMarkdownRewrite,
		description: "Rewrite a document's content in markdown format",
		docArg:      "Id of the document to rewrite",
		modelArg:    "Model to use for rewriting",
		instruction: "Please rewrite the following content in markdown format:",
	},
	{
		name:        PromptSummarizeDoc,
		description: "Summarize a document's content",
		docArg:      "Id of the document to summarize",
		modelArg:    "Model to use for summarizing",
		instruction: "Please summarize the following content:",
	},
	{
		name:        PromptExtractKeyPoints,
		description: "Extract key points from a document's content",
		docArg:      "Id of the document to analyze",
		modelArg:    "Model to use for extraction",
		instruction: "Please extract and list the key points from the following content:",
	},
}

// RegisterPrompts registers markdown_rewrite, summarize_doc and
// extract_key_points. Each takes doc_id, system and model and assembles a
// single user message of the form "<instruction>\n\n<content>".
func RegisterPrompts(srv *server.Server, store *docstore.Store) error {
	var errs []error
	for _, p := range docPrompts {
		errs = append(errs, srv.Prompt(p.name).
			Description(p.description).
			Argument("doc_id", p.docArg, true).
			Argument("system", "System prompt for the model", true).
			Argument("model", p.modelArg, true).
			Handler(buildPrompt(store, p.instruction)).
			Err())
	}
	return errors.Join(errs...)
}

func buildPrompt(store *docstore.Store, instruction string) server.PromptHandler {
	return func(ctx context.Context, args map[string]string) (*server.PromptResult, error) {
		content, err := store.Get(args["doc_id"])
		if err != nil {
			return nil, err
		}
		return &server.PromptResult{
			System: args["system"],
			Model:  args["model"],
			Messages: []server.PromptMessage{
				{Role: "user", Content: instruction + "\n\n" + content},
			},
		}, nil
	}
}
