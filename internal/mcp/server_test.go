package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docindex/internal/logging"
	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/pkg/types"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected *MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func finishedSummary() *types.RunSummary {
	start := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	s := types.NewRunSummary("run-42", start)
	s.Candidates = 3
	s.NewDocuments = 2
	s.PagesIndexed = 5
	s.Finalize(start.Add(2 * time.Second))
	return s
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Run == nil {
		opts.Run = func(ctx context.Context) (*types.RunSummary, error) { return finishedSummary(), nil }
	}
	opts.Logger = logging.Discard()
	s, err := NewServer(opts)
	require.NoError(t, err)
	return s
}

func seededStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	ts := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	doc := types.SourceDocument{Name: "contrato.pdf", OriginalPath: "//srv/Juridico/contrato.pdf", Hash: "abc"}
	entries, err := types.NewIndexEntries(doc, []types.Page{
		{Text: "cláusula de rescisão contratual", Number: 1},
		{Text: "foro da comarca", Number: 2},
	}, ts)
	require.NoError(t, err)
	require.NoError(t, store.BulkUpsert(ctx, entries))
	require.NoError(t, store.RegisterBatch(ctx, []string{"abc"}))
	return store
}

func TestNewServer_RequiresRunner(t *testing.T) {
	_, err := NewServer(Options{})
	assert.ErrorIs(t, err, ErrNoRunner)
}

func TestIndexDocuments_Success(t *testing.T) {
	s := newTestServer(t, Options{})

	res, err := s.handleIndexDocuments(context.Background(), callRequest("index_documents", nil))
	require.NoError(t, err)

	out := resultJSON(t, res)
	assert.Equal(t, "run-42", out["run_id"])
	assert.Equal(t, true, out["succeeded"])
	assert.Equal(t, float64(2), out["new_documents"])
	assert.Equal(t, float64(2000), out["duration_ms"])
	assert.NotContains(t, out, "errors")
	assert.False(t, s.lock.Held(), "lock released after the run")
}

func TestIndexDocuments_ListsErrors(t *testing.T) {
	s := newTestServer(t, Options{Run: func(ctx context.Context) (*types.RunSummary, error) {
		sum := finishedSummary()
		for i := 0; i < 7; i++ {
			sum.AddError("broken.pdf", "/docs/broken.pdf", errors.New("trailer not found"))
		}
		return sum, nil
	}})

	res, err := s.handleIndexDocuments(context.Background(), callRequest("index_documents", nil))
	require.NoError(t, err)

	out := resultJSON(t, res)
	assert.Len(t, out["errors"], maxInlineErrors)
	assert.Equal(t, float64(7), out["error_count"])
}

func TestIndexDocuments_Fatal(t *testing.T) {
	s := newTestServer(t, Options{Run: func(ctx context.Context) (*types.RunSummary, error) {
		sum := finishedSummary()
		sum.Fatal = "search index unavailable"
		return sum, errors.New("search index unavailable")
	}})

	_, err := s.handleIndexDocuments(context.Background(), callRequest("index_documents", nil))
	mcpErr := requireMCPError(t, err, ErrorCodeInternalError)
	data, ok := mcpErr.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "search index unavailable", data["error"])
	assert.NotNil(t, data["summary"])
}

func TestIndexDocuments_RejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := newTestServer(t, Options{Run: func(ctx context.Context) (*types.RunSummary, error) {
		close(started)
		<-release
		return finishedSummary(), nil
	}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.handleIndexDocuments(context.Background(), callRequest("index_documents", nil))
		assert.NoError(t, err)
	}()
	<-started

	_, err := s.handleIndexDocuments(context.Background(), callRequest("index_documents", nil))
	requireMCPError(t, err, ErrorCodeIndexingInProgress)

	status, err := s.handleGetStatus(context.Background(), callRequest("get_status", nil))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, status)["indexing"])

	close(release)
	wg.Wait()
}

func TestSearchPages(t *testing.T) {
	store := seededStore(t)
	s := newTestServer(t, Options{Searcher: store})

	res, err := s.handleSearchPages(context.Background(), callRequest("search_pages", map[string]interface{}{
		"query": "rescisão",
		"limit": float64(5),
	}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	assert.Equal(t, float64(1), out["count"])
	results := out["results"].([]interface{})
	first := results[0].(map[string]interface{})
	assert.Equal(t, "contrato.pdf", first["document_name"])
	assert.Equal(t, "//srv/Juridico/contrato.pdf", first["original_path"])
	assert.Equal(t, float64(1), first["page_number"])
	assert.Contains(t, first["snippet"], "[rescisão]")
}

func TestSearchPages_InvalidParams(t *testing.T) {
	s := newTestServer(t, Options{Searcher: seededStore(t)})
	ctx := context.Background()

	_, err := s.handleSearchPages(ctx, callRequest("search_pages", map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)

	_, err = s.handleSearchPages(ctx, callRequest("search_pages", map[string]interface{}{"query": "x", "limit": float64(500)}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchPages(ctx, callRequest("search_pages", map[string]interface{}{"query": "   "}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)
}

func TestSearchPages_NoSearcher(t *testing.T) {
	s := newTestServer(t, Options{})
	_, err := s.handleSearchPages(context.Background(), callRequest("search_pages", map[string]interface{}{"query": "x"}))
	requireMCPError(t, err, ErrorCodeUnsupported)
}

func TestGetStatus(t *testing.T) {
	store := seededStore(t)
	s := newTestServer(t, Options{Stats: store, Runs: store})
	ctx := context.Background()

	res, err := s.handleGetStatus(ctx, callRequest("get_status", nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, false, out["indexing"])
	assert.Nil(t, out["last_run"])
	assert.Contains(t, out["message"], "index_documents")

	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["pages"])
	assert.Equal(t, float64(1), stats["documents"])
	assert.Equal(t, float64(1), stats["dedup_records"])

	require.NoError(t, store.RecordRun(ctx, finishedSummary()))
	res, err = s.handleGetStatus(ctx, callRequest("get_status", nil))
	require.NoError(t, err)
	last := resultJSON(t, res)["last_run"].(map[string]interface{})
	assert.Equal(t, "run-42", last["run_id"])
	assert.Equal(t, float64(2), last["new_documents"])
}

func TestMCPError_Error(t *testing.T) {
	err := newMCPError(ErrorCodeEmptyQuery, "query parameter is required", nil)
	assert.Equal(t, "MCP error -32004: query parameter is required", err.Error())
}
