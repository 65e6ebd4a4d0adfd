package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docindex/internal/indexer"
	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "docindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// ErrNoRunner is returned by NewServer when no run function is supplied
var ErrNoRunner = errors.New("mcp: a run function is required")

// RunFunc performs one indexing run over the configured roots
type RunFunc func(ctx context.Context) (*types.RunSummary, error)

// Options wires the server to the application's stores
type Options struct {
	Run RunFunc

	// Optional. Tools that need a missing dependency report it as an error.
	Searcher storage.Searcher
	Stats    storage.StatsProvider
	Runs     storage.RunRecorder

	Logger *slog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	run      RunFunc
	searcher storage.Searcher
	stats    storage.StatsProvider
	runs     storage.RunRecorder
	logger   *slog.Logger

	lock indexer.IndexLock
}

// NewServer creates a new MCP server instance
func NewServer(opts Options) (*Server, error) {
	if opts.Run == nil {
		return nil, ErrNoRunner
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		run:      opts.Run,
		searcher: opts.Searcher,
		stats:    opts.Stats,
		runs:     opts.Runs,
		logger:   opts.Logger,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", slog.String("name", ServerName))
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexDocumentsTool(), s.handleIndexDocuments)
	s.mcp.AddTool(searchPagesTool(), s.handleSearchPages)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
