package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexDocumentsTool returns the tool definition for index_documents
func indexDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_documents",
		Description: "Run one indexing pass over the configured document folders. Already indexed content is skipped.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchPagesTool returns the tool definition for search_pages
func searchPagesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_pages",
		Description: "Full-text search over indexed document pages",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms; every term must appear on the page",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of pages to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and the summary of the last run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
