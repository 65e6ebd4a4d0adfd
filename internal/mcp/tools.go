package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docindex/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing run is already running
	ErrorCodeNotIndexed         = -32003 // Nothing has been indexed yet
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeUnsupported        = -32005 // The configured backend cannot serve this tool
)

const maxInlineErrors = 5

// handleIndexDocuments handles the index_documents tool invocation
func (s *Server) handleIndexDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an indexing run is already in progress", nil)
	}
	defer s.lock.Release()

	summary, err := s.run(ctx)
	if summary == nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": errString(err),
		})
	}

	response := map[string]interface{}{
		"run_id":          summary.RunID,
		"succeeded":       summary.Succeeded(),
		"candidates":      summary.Candidates,
		"new_documents":   summary.NewDocuments,
		"pages_indexed":   summary.PagesIndexed,
		"pages_ocr":       summary.PagesOCR,
		"already_indexed": summary.AlreadyIndexed,
		"no_content":      summary.NoContent,
		"duplicates":      summary.Duplicates,
		"failed":          summary.Failed,
		"duration_ms":     summary.Elapsed.Milliseconds(),
	}

	if errs, more := summary.InlineErrors(maxInlineErrors); len(errs) > 0 {
		response["errors"] = errs
		if more > 0 {
			response["error_count"] = summary.Failed
		}
	}

	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing run aborted", map[string]interface{}{
			"error":   err.Error(),
			"summary": response,
		})
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchPages handles the search_pages tool invocation
func (s *Server) handleSearchPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	if s.searcher == nil {
		return nil, newMCPError(ErrorCodeUnsupported, "search is not available for the configured index backend", nil)
	}

	results, err := s.searcher.Search(ctx, query, limit)
	if errors.Is(err, storage.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query contains no searchable terms", map[string]interface{}{
			"param": "query",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	pages := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		pages = append(pages, map[string]interface{}{
			"rank":          r.Rank,
			"document_name": r.DocumentName,
			"original_path": r.OriginalPath,
			"page_number":   r.PageNumber,
			"snippet":       r.Snippet,
			"score":         r.Score,
		})
	}

	response := map[string]interface{}{
		"query":   query,
		"count":   len(pages),
		"results": pages,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"indexing": s.lock.Held(),
	}

	if s.stats != nil {
		stats, err := s.stats.Stats(ctx)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
				"error": err.Error(),
			})
		}
		statistics := map[string]interface{}{
			"dedup_records": stats.DedupRecords,
			"pages":         stats.Pages,
			"documents":     stats.Documents,
			"index_size_mb": fmt.Sprintf("%.2f", stats.SizeMB),
		}
		if !stats.LastIndexed.IsZero() {
			statistics["last_indexed_at"] = stats.LastIndexed.Format("2006-01-02T15:04:05Z07:00")
		}
		response["statistics"] = statistics
		response["health"] = map[string]interface{}{
			"database_accessible": stats.Health.DatabaseAccessible,
			"fts_index_built":     stats.Health.FTSIndexBuilt,
		}
	}

	if s.runs != nil {
		last, err := s.runs.LastRun(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			response["last_run"] = nil
			response["message"] = "No run recorded yet. Use the index_documents tool to index the configured folders."
		case err != nil:
			return nil, newMCPError(ErrorCodeInternalError, "failed to read run history", map[string]interface{}{
				"error": err.Error(),
			})
		default:
			response["last_run"] = map[string]interface{}{
				"run_id":        last.RunID,
				"started_at":    last.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
				"finished_at":   last.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
				"new_documents": last.NewDocuments,
				"failed":        last.Failed,
				"fatal":         last.Fatal,
			}
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func errString(err error) string {
	if err == nil {
		return "no summary produced"
	}
	return err.Error()
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
