package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dshills/docstore-mcp/internal/documents"
	"github.com/dshills/docstore-mcp/internal/indexer"
	"github.com/dshills/docstore-mcp/internal/metrics"
	"github.com/dshills/docstore-mcp/internal/vectorstore"
)

const (
	// ServerName is the default MCP server name
	ServerName = "docstore"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"

	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Deps are the components the tools call into. Store, Docs and Syncer are
// either all set or all nil; nil disables the document tools.
type Deps struct {
	Store   *vectorstore.Store
	Docs    *documents.Manager
	Syncer  *indexer.Syncer
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	store   *vectorstore.Store
	docs    *documents.Manager
	syncer  *indexer.Syncer
	metrics *metrics.Metrics
	log     zerolog.Logger
	tools   []string
}

// NewServer creates an MCP server and registers its tools
func NewServer(name string, deps Deps) *Server {
	if name == "" {
		name = ServerName
	}
	s := &Server{
		mcp:     server.NewMCPServer(name, ServerVersion, server.WithToolCapabilities(false)),
		store:   deps.Store,
		docs:    deps.Docs,
		syncer:  deps.Syncer,
		metrics: deps.Metrics,
		log:     deps.Log.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()
	return s
}

// DocumentsEnabled reports whether the store-backed tools are registered
func (s *Server) DocumentsEnabled() bool {
	return s.store != nil && s.docs != nil && s.syncer != nil
}

// Tools returns the names of the registered tools in registration order
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

type toolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

func (s *Server) addTool(tool mcp.Tool, handler toolHandler) {
	s.tools = append(s.tools, tool.Name)
	s.mcp.AddTool(tool, s.instrument(tool.Name, handler))
}

// instrument records the duration and outcome of every tool call
func (s *Server) instrument(name string, handler toolHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, request)
		s.metrics.RecordToolCall(name, err == nil, time.Since(start))
		if err != nil {
			s.log.Warn().Err(err).Str("tool", name).Msg("tool call failed")
		} else {
			s.log.Debug().Str("tool", name).Dur("duration", time.Since(start)).Msg("tool call")
		}
		return result, err
	}
}

func (s *Server) registerTools() {
	s.addTool(listLocalFolderTool(), s.handleListLocalFolder)
	s.addTool(readLocalFolderTool(), s.handleReadLocalFolder)

	if !s.DocumentsEnabled() {
		s.log.Info().Msg("vector store disabled, registering local folder tools only")
		return
	}

	s.addTool(vectorStoreAddTool(), s.handleVectorStoreAdd)
	s.addTool(vectorStoreSearchTool(), s.handleVectorStoreSearch)
	s.addTool(vectorStoreInfoTool(), s.handleVectorStoreInfo)
	s.addTool(vectorStoreResetTool(), s.handleVectorStoreReset)

	s.addTool(documentIngestTool(), s.handleDocumentIngest)
	s.addTool(documentSearchTool(), s.handleDocumentSearch)
	s.addTool(documentListTool(), s.handleDocumentList)
	s.addTool(documentCategoriesTool(), s.handleDocumentCategories)

	s.addTool(pdfIngestFileTool(), s.handlePDFIngestFile)
	s.addTool(pdfIngestURLTool(), s.handlePDFIngestURL)
	s.addTool(pdfIngestPresetTool(), s.handlePDFIngestPreset)

	s.addTool(syncDocumentsTool(), s.handleSyncDocuments)
	s.addTool(syncStatusTool(), s.handleSyncStatus)
}

// Serve runs the MCP server on transport until ctx is cancelled or the
// client disconnects. port is used by the SSE transport only.
func (s *Server) Serve(ctx context.Context, transport string, port int) error {
	switch transport {
	case "", TransportStdio:
		stdio := server.NewStdioServer(s.mcp)
		err := stdio.Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil

	case TransportSSE:
		sse := server.NewSSEServer(s.mcp)
		addr := fmt.Sprintf(":%d", port)
		errCh := make(chan error, 1)
		go func() { errCh <- sse.Start(addr) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sse.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown sse server: %w", err)
			}
			return nil
		}

	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}
