// Package mcp implements the Model Context Protocol (MCP) server for docindex.
//
// The MCP server exposes three tools to AI assistants:
//   - index_documents: run one indexing pass over the configured folders
//   - search_pages: full-text search over indexed pages
//   - get_status: index statistics and the last run summary
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The MCP server is started via the serve command:
//
//	docindex serve --config docindex.toml
//
// # Tool: index_documents
//
// Runs the pipeline once. Only one run can be active per server; a second
// call while a run is active fails with code -32002.
//
//	Response:
//	{
//	  "run_id": "5f0c…",
//	  "succeeded": true,
//	  "new_documents": 12,
//	  "pages_indexed": 148,
//	  "pages_ocr": 9,
//	  "already_indexed": 3310,
//	  "failed": 1,
//	  "errors": ["contrato.pdf: extract: pdftotext failed: …"],
//	  "duration_ms": 81234
//	}
//
// # Tool: search_pages
//
//	Request:
//	{
//	  "name": "search_pages",
//	  "arguments": {"query": "rescisão contratual", "limit": 5}
//	}
//
// Each result carries the document name, the share path readers can open,
// the physical page number and a highlighted snippet.
//
// # Tool: get_status
//
// Returns page and document counts, database health and the last recorded
// run. Before the first run, last_run is null.
//
// # Error Handling
//
// Tool failures are returned as *MCPError values with JSON-RPC codes:
//
//	-32602  invalid parameters
//	-32603  internal error (including an aborted run)
//	-32002  indexing already in progress
//	-32004  empty query
//	-32005  the index backend cannot serve the tool
package mcp
