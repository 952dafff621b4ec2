// Package mcp provides an MCP (Model Context Protocol) server exposing the
// trial pipeline as tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/dasstrial/internal/logging"
	"github.com/nvandessel/dasstrial/internal/pipeline"
	"github.com/nvandessel/dasstrial/internal/ratelimit"
	"github.com/nvandessel/dasstrial/internal/simulation"
	"github.com/nvandessel/dasstrial/internal/store"
)

// Server wraps the MCP SDK server.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	ownsStore    bool
	root         string
	defaults     simulation.Config
	pipeline     *pipeline.Pipeline
	logger       *slog.Logger
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "dasstrial")
	Version string // Server version
	Root    string // Project root; output paths must resolve inside it

	// Store is the run archive. When nil the SQLite archive under Root is
	// opened and closed with the server.
	Store store.RunStore

	// Defaults fill simulation parameters a tool call omits. The zero value
	// means simulation.DefaultConfig().
	Defaults simulation.Config

	Logger *slog.Logger
}

// NewServer creates a new MCP server with the dass_* tools registered.
func NewServer(cfg *Config) (*Server, error) {
	rs := cfg.Store
	ownsStore := false
	if rs == nil {
		sqlStore, err := store.NewSQLiteRunStore(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to open run archive: %w", err)
		}
		rs = sqlStore
		ownsStore = true
	}

	defaults := cfg.Defaults
	if defaults.ParticipantsPerGroup == 0 {
		defaults = simulation.DefaultConfig()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        rs,
		ownsStore:    ownsStore,
		root:         cfg.Root,
		defaults:     defaults,
		pipeline:     pipeline.New(logger, nil),
		logger:       logger,
		auditLogger:  NewAuditLogger(cfg.Root),
		toolLimiters: ratelimit.NewToolLimiters(),
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close closes the audit log and, if the server opened it, the archive.
func (s *Server) Close() error {
	var firstErr error
	if err := s.auditLogger.Close(); err != nil {
		firstErr = err
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.ownsStore = false
	}
	return firstErr
}
