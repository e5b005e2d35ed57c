package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/kb/internal/indexer"
	"github.com/nickcecere/kb/internal/search"
	"github.com/nickcecere/kb/internal/store"
)

type mockSearcher struct {
	results []search.Result
	err     error
	gotOpts search.Options
	calls   int
}

func (m *mockSearcher) Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	m.calls++
	m.gotOpts = opts
	if strings.TrimSpace(query) == "" {
		return nil, search.ErrEmptyQuery
	}
	return m.results, m.err
}

type mockIndexer struct {
	result  indexer.Result
	summary *indexer.Summary
	err     error
	gotDir  string
}

func (m *mockIndexer) Add(ctx context.Context, path string) indexer.Result {
	res := m.result
	res.ID = path
	return res
}

func (m *mockIndexer) AddDir(ctx context.Context, dir string, opts indexer.DirOptions) (*indexer.Summary, error) {
	m.gotDir = dir
	return m.summary, m.err
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandleSearch(t *testing.T) {
	searcher := &mockSearcher{results: []search.Result{
		{ID: "kb/cqrs.md", Title: "CQRS", Score: search.Score(store.Distance(0.2)), Content: strings.Repeat("x", 600)},
		{ID: "kb/none.md", Title: "N/A"},
	}}
	srv := NewServer(searcher, &mockIndexer{}, "test", 0)

	res, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "commands"})
	require.NoError(t, err)

	assert.Equal(t, search.DefaultLimit, searcher.gotOpts.Limit)
	assert.True(t, searcher.gotOpts.IncludeContent)
	require.Len(t, out.Results, 2)
	assert.Len(t, out.Results[0].Content, maxContentLen+3)

	body := text(t, res)
	assert.Contains(t, body, "Found 2 results")
	assert.Contains(t, body, "[1] CQRS (kb/cqrs.md) score 0.8")
	assert.Contains(t, body, "[2] N/A (kb/none.md) score N/A")
}

func TestHandleSearchKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes, so byte maxContentLen falls inside a rune
	content := "x" + strings.Repeat("é", maxContentLen)
	searcher := &mockSearcher{results: []search.Result{{ID: "kb/fr.md", Title: "FR", Content: content}}}
	srv := NewServer(searcher, &mockIndexer{}, "test", 0)

	_, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "café"})
	require.NoError(t, err)

	got := out.Results[0].Content
	assert.True(t, utf8.ValidString(got))
	assert.NotContains(t, got, "�")
	assert.Equal(t, "x"+strings.Repeat("é", (maxContentLen-2)/2)+"...", got)
}

func TestHandleSearchLimit(t *testing.T) {
	searcher := &mockSearcher{}
	srv := NewServer(searcher, &mockIndexer{}, "test", 5)

	_, _, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, 5, searcher.gotOpts.Limit)

	res, _, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "q", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.gotOpts.Limit)
	assert.Equal(t, "No results found.", text(t, res))
}

func TestHandleSearchErrors(t *testing.T) {
	srv := NewServer(&mockSearcher{}, &mockIndexer{}, "test", 0)
	_, _, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "  "})
	assert.ErrorIs(t, err, search.ErrEmptyQuery)

	srv = NewServer(&mockSearcher{err: errors.New("boom")}, &mockIndexer{}, "test", 0)
	_, _, err = srv.handleSearch(context.Background(), nil, SearchInput{Query: "q"})
	assert.EqualError(t, err, "boom")
}

func TestHandleAdd(t *testing.T) {
	tests := []struct {
		name    string
		result  indexer.Result
		want    string
		isError bool
	}{
		{"indexed", indexer.Result{Title: "CQRS", Outcome: indexer.Indexed}, "Successfully indexed document: 'CQRS'", false},
		{"empty", indexer.Result{Outcome: indexer.Empty}, "No content found in a.md.", false},
		{"skipped", indexer.Result{Outcome: indexer.Skipped}, "Skipped a.md: could not parse front matter.", false},
		{"missing", indexer.Result{Outcome: indexer.Missing, Err: indexer.ErrFileNotFound}, "Error indexing document a.md: file not found", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&mockSearcher{}, &mockIndexer{result: tt.result}, "test", 0)

			res, out, err := srv.handleAdd(context.Background(), nil, AddInput{Path: "a.md"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, text(t, res))
			assert.Equal(t, tt.isError, res.IsError)
			assert.Equal(t, "a.md", out.ID)
			assert.Equal(t, tt.result.Outcome.String(), out.Outcome)
		})
	}

	srv := NewServer(&mockSearcher{}, &mockIndexer{}, "test", 0)
	_, _, err := srv.handleAdd(context.Background(), nil, AddInput{})
	assert.Error(t, err)
}

func TestHandleIndex(t *testing.T) {
	idx := &mockIndexer{summary: &indexer.Summary{Files: 4, Indexed: 2, Skipped: 1, Empty: 1}}
	srv := NewServer(&mockSearcher{}, idx, "test", 0)

	res, out, err := srv.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)
	assert.Equal(t, ".", idx.gotDir)
	assert.Equal(t, 2, out.Indexed)
	assert.Equal(t, "Indexed 2 of 4 documents in . (1 skipped, 1 empty, 0 failed)", text(t, res))

	idx = &mockIndexer{err: errors.New("walk failed")}
	srv = NewServer(&mockSearcher{}, idx, "test", 0)
	_, _, err = srv.handleIndex(context.Background(), nil, IndexInput{Path: "docs"})
	assert.ErrorContains(t, err, "walk failed")
}

func TestServerOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	searcher := &mockSearcher{results: []search.Result{
		{ID: "kb/saga.md", Title: "Saga", Score: search.Score(store.Distance(0.1))},
	}}
	srv := NewServer(searcher, &mockIndexer{}, "test", 0)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"kb_search", "kb_add", "kb_index"}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "kb_search",
		Arguments: map[string]any{"query": "long running transactions"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "[1] Saga (kb/saga.md) score 0.9")
}
