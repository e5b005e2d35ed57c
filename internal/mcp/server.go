// Package mcp exposes the knowledge base to AI agents over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nickcecere/kb/internal/indexer"
	"github.com/nickcecere/kb/internal/search"
)

const (
	// ServerName is the name of this MCP server.
	ServerName = "kb"

	// maxContentLen caps the document body echoed back per search hit.
	maxContentLen = 500
)

// Searcher runs semantic queries.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error)
}

// Indexer adds documents to the knowledge base.
type Indexer interface {
	Add(ctx context.Context, path string) indexer.Result
	AddDir(ctx context.Context, dir string, opts indexer.DirOptions) (*indexer.Summary, error)
}

// SearchInput is the input of the kb_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query in natural language"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 3"`
}

// SearchOutput is the output of the kb_search tool.
type SearchOutput struct {
	Results []search.Result `json:"results"`
}

// AddInput is the input of the kb_add tool.
type AddInput struct {
	Path string `json:"path" jsonschema:"path to a markdown file with YAML front matter"`
}

// AddOutput is the output of the kb_add tool.
type AddOutput struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// IndexInput is the input of the kb_index tool.
type IndexInput struct {
	Path string `json:"path,omitempty" jsonschema:"directory to index, default the current directory"`
}

// IndexOutput is the output of the kb_index tool.
type IndexOutput struct {
	Files   int `json:"files"`
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Empty   int `json:"empty"`
	Failed  int `json:"failed"`
}

// Server is the MCP server for the knowledge base.
type Server struct {
	searcher Searcher
	indexer  Indexer
	limit    int
	mcp      *mcp.Server
}

// NewServer creates a new MCP server. limit is the default result count for searches.
func NewServer(s Searcher, idx Indexer, version string, limit int) *Server {
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	srv := &Server{
		searcher: s,
		indexer:  idx,
		limit:    limit,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: version,
		}, nil),
	}

	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves over stdin/stdout until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Info("MCP server starting")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("MCP server stopped with error", "error", err)
		return err
	}
	log.Info("MCP server stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "kb_search",
		Description: "Semantic search over the markdown knowledge base. Returns the closest documents with their title, path and score.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "kb_add",
		Description: "Add or replace one markdown document with YAML front matter in the knowledge base.",
	}, s.handleAdd)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "kb_index",
		Description: "Add every markdown document under a directory to the knowledge base.",
	}, s.handleIndex)

	log.Debug("MCP tools registered", "count", 3)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	limit := input.Limit
	if limit <= 0 {
		limit = s.limit
	}

	results, err := s.searcher.Search(ctx, input.Query, search.Options{
		Limit:          limit,
		IncludeContent: true,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	for i := range results {
		results[i].Content = truncate(results[i].Content, maxContentLen)
	}

	return textResult(formatResults(results)), SearchOutput{Results: results}, nil
}

func (s *Server) handleAdd(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (
	*mcp.CallToolResult,
	AddOutput,
	error,
) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, AddOutput{}, errors.New("path is required")
	}

	res := s.indexer.Add(ctx, input.Path)
	out := AddOutput{ID: res.ID, Title: res.Title, Outcome: res.Outcome.String()}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	var text string
	switch res.Outcome {
	case indexer.Indexed:
		text = fmt.Sprintf("Successfully indexed document: '%s'", res.Title)
	case indexer.Empty:
		text = fmt.Sprintf("No content found in %s.", res.ID)
	case indexer.Skipped:
		text = fmt.Sprintf("Skipped %s: could not parse front matter.", res.ID)
	default:
		result := textResult(fmt.Sprintf("Error indexing document %s: %v", res.ID, res.Err))
		result.IsError = true
		return result, out, nil
	}

	return textResult(text), out, nil
}

func (s *Server) handleIndex(ctx context.Context, _ *mcp.CallToolRequest, input IndexInput) (
	*mcp.CallToolResult,
	IndexOutput,
	error,
) {
	dir := input.Path
	if dir == "" {
		dir = "."
	}

	summary, err := s.indexer.AddDir(ctx, dir, indexer.DirOptions{})
	if err != nil {
		return nil, IndexOutput{}, fmt.Errorf("indexing failed: %w", err)
	}

	out := IndexOutput{
		Files:   summary.Files,
		Indexed: summary.Indexed,
		Skipped: summary.Skipped,
		Empty:   summary.Empty,
		Failed:  summary.Failed,
	}
	text := fmt.Sprintf("Indexed %d of %d documents in %s (%d skipped, %d empty, %d failed)",
		out.Indexed, out.Files, dir, out.Skipped, out.Empty, out.Failed)

	return textResult(text), out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// formatResults renders hits as plain text for agents that ignore structured output.
func formatResults(results []search.Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s (%s) score %s\n", i+1, r.Title, r.ID, r.ScoreText())
		if r.Content != "" {
			sb.WriteString(r.Content)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
