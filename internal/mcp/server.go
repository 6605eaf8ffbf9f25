package mcp

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/agentberlin/pagesnake/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ServerName    = "pagesnake"
	ServerVersion = "1.0.0"
)

// MCPServer exposes pagination discovery and batch fetching via the MCP protocol
type MCPServer struct {
	server *mcp.Server
	store  *store.Store
	ctx    context.Context
	logger *log.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(ctx context.Context) (*MCPServer, error) {
	logger := log.New(os.Stderr, "[PageSnake MCP] ", log.LstdFlags)

	// Initialize database store (uses default ~/.pagesnake/pagesnake.db)
	logger.Printf("Initializing database...")
	st, err := store.NewStore()
	if err != nil {
		return nil, err
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	s := &MCPServer{
		server: mcpServer,
		store:  st,
		ctx:    ctx,
		logger: logger,
	}

	s.registerTools()

	logger.Printf("MCP server initialized successfully")
	return s, nil
}

// GetServer returns the internal MCP server instance
func (s *MCPServer) GetServer() *mcp.Server {
	return s.server
}

// RunHTTP starts the MCP server with HTTP transport using StreamableHTTPHandler
func (s *MCPServer) RunHTTP(addr string) (*http.Server, error) {
	s.logger.Printf("Starting MCP HTTP server on %s...", addr)

	handler := mcp.NewStreamableHTTPHandler(
		func(req *http.Request) *mcp.Server {
			return s.server
		},
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("HTTP server error: %v", err)
		}
	}()

	s.logger.Printf("MCP HTTP server started successfully on %s", addr)
	return httpServer, nil
}

// Close performs cleanup
func (s *MCPServer) Close() error {
	s.logger.Printf("Shutting down MCP server...")
	// Store doesn't have a Close method - GORM manages connections automatically
	return nil
}
