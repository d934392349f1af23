package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docstore-mcp/internal/documents"
	"github.com/dshills/docstore-mcp/internal/indexer"
	"github.com/dshills/docstore-mcp/internal/localfs"
	"github.com/dshills/docstore-mcp/internal/vectorstore"
	"github.com/dshills/docstore-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeSyncInProgress = -32002 // Another sync run holds the index lock
)

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

// Local folder tools

func (s *Server) handleListLocalFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	path := getStringDefault(args, "path", "")
	if path == "" {
		return nil, missingParam("path")
	}

	entries, err := localfs.ListFolder(path)
	if err != nil {
		return nil, folderError(path, err)
	}
	return jsonResult(map[string]interface{}{
		"path":    path,
		"entries": entries,
		"count":   len(entries),
	}, true), nil
}

func (s *Server) handleReadLocalFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	path := getStringDefault(args, "path", "")
	if path == "" {
		return nil, missingParam("path")
	}

	content, err := localfs.ReadFolder(path)
	if err != nil {
		return nil, folderError(path, err)
	}
	return mcp.NewToolResultText(content), nil
}

func folderError(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, localfs.ErrNotDirectory) {
		return newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"value":  path,
			"reason": err.Error(),
		})
	}
	return newMCPError(ErrorCodeInternalError, "failed to read folder", map[string]interface{}{
		"error": err.Error(),
	})
}

// Vector store tools

func (s *Server) handleVectorStoreAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	texts := getStringSlice(args, "texts")
	if len(texts) == 0 {
		return nil, missingParam("texts")
	}
	metadatas, err := getMetadataSlice(args, "metadatas")
	if err != nil {
		return nil, err
	}

	res := s.store.Add(ctx, vectorstore.AddRequest{
		Texts:      texts,
		IDs:        getStringSlice(args, "ids"),
		Metadatas:  metadatas,
		Collection: getStringDefault(args, "collection", ""),
	})
	return jsonResult(res, res.Success), nil
}

func (s *Server) handleVectorStoreSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	query := getStringDefault(args, "query", "")
	if query == "" {
		return nil, missingParam("query")
	}

	res := s.store.Search(ctx, vectorstore.SearchRequest{
		Query:            query,
		NResults:         getIntDefault(args, "n_results", 5),
		Collection:       getStringDefault(args, "collection", ""),
		IncludeDistances: getBoolDefault(args, "include_distances", true),
	})
	return jsonResult(res, res.Success), nil
}

func (s *Server) handleVectorStoreInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	res := s.store.Info(ctx, getStringDefault(args, "collection", ""))
	return jsonResult(res, res.Success), nil
}

func (s *Server) handleVectorStoreReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	if !getBoolDefault(args, "confirm", false) {
		return nil, newMCPError(ErrorCodeInvalidParams, "reset requires confirm=true", map[string]interface{}{
			"param":  "confirm",
			"reason": "must be true",
		})
	}

	collection := getStringDefault(args, "collection", "")
	res := s.store.Reset(ctx, collection)
	if res.Success {
		s.log.Warn().Str("collection", res.Collection).Msg("collection reset")
	}
	return jsonResult(res, res.Success), nil
}

// Document tools

func (s *Server) handleDocumentIngest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	metadata, err := getMetadata(args, "metadata")
	if err != nil {
		return nil, err
	}

	res := s.docs.Ingest(ctx, documents.IngestRequest{
		Content:    getStringDefault(args, "content", ""),
		Title:      getStringDefault(args, "title", ""),
		SourceType: getStringDefault(args, "source_type", ""),
		Category:   getStringDefault(args, "category", ""),
		DocType:    getStringDefault(args, "doc_type", ""),
		Tags:       getStringSlice(args, "tags"),
		Metadata:   metadata,
		Collection: getStringDefault(args, "collection", ""),
		ChunkSize:  getIntDefault(args, "chunk_size", 0),
		Overlap:    getOverlap(args),
		Replace:    getBoolDefault(args, "replace", false),
	})
	return jsonResult(res, res.Success), nil
}

func (s *Server) handleDocumentSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	query := getStringDefault(args, "query", "")
	if query == "" {
		return nil, missingParam("query")
	}

	res := s.docs.Search(ctx, documents.DocSearchRequest{
		Query:      query,
		Category:   getStringDefault(args, "category", ""),
		DocType:    getStringDefault(args, "doc_type", ""),
		Tags:       getStringSlice(args, "tags"),
		Collection: getStringDefault(args, "collection", ""),
		NResults:   getIntDefault(args, "n_results", documents.DefaultNResults),
	})
	return jsonResult(res, res.Success), nil
}

func (s *Server) handleDocumentList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	res := s.docs.List(ctx, documents.ListRequest{
		Collection: getStringDefault(args, "collection", ""),
		Category:   getStringDefault(args, "category", ""),
		DocType:    getStringDefault(args, "doc_type", ""),
	})
	return jsonResult(res, res.Success), nil
}

func (s *Server) handleDocumentCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.docs.Categories(), true), nil
}

// PDF tools

func pdfRequest(args map[string]interface{}) documents.PDFRequest {
	return documents.PDFRequest{
		Source:     getStringDefault(args, "source", ""),
		Title:      getStringDefault(args, "title", ""),
		Category:   getStringDefault(args, "category", ""),
		DocType:    getStringDefault(args, "doc_type", ""),
		Tags:       getStringSlice(args, "tags"),
		Collection: getStringDefault(args, "collection", ""),
		ChunkSize:  getIntDefault(args, "chunk_size", 0),
		Overlap:    getOverlap(args),
		Replace:    getBoolDefault(args, "replace", false),
	}
}

func (s *Server) handlePDFIngestFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	req := pdfRequest(args)
	if req.Source == "" {
		return nil, missingParam("source")
	}
	res := s.docs.IngestPDFFile(ctx, req)
	return jsonResult(res, res.Success), nil
}

func (s *Server) handlePDFIngestURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	req := pdfRequest(args)
	if req.Source == "" {
		return nil, missingParam("source")
	}
	res := s.docs.IngestPDFFromURL(ctx, req)
	return jsonResult(res, res.Success), nil
}

func (s *Server) handlePDFIngestPreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	req := documents.PresetRequest{
		Preset:     getStringDefault(args, "preset", ""),
		Source:     getStringDefault(args, "source", ""),
		Title:      getStringDefault(args, "title", ""),
		Tags:       getStringSlice(args, "tags"),
		Collection: getStringDefault(args, "collection", ""),
	}
	if req.Preset == "" {
		return nil, missingParam("preset")
	}
	if req.Source == "" {
		return nil, missingParam("source")
	}
	res := s.docs.IngestPreset(ctx, req)
	return jsonResult(res, res.Success), nil
}

// Sync tools

func (s *Server) handleSyncDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.syncer.Sync(ctx)
	if errors.Is(err, indexer.ErrSyncInProgress) {
		return nil, newMCPError(ErrorCodeSyncInProgress, "a sync is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "sync failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return jsonResult(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Sync complete: %d new, %d updated, %d skipped, %d failed",
			summary.New, summary.Updated, summary.Skipped, summary.Failed),
		"summary": summary,
	}, true), nil
}

func (s *Server) handleSyncStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"file_index":   s.syncer.FileIndexStatus(),
		"vector_store": s.syncer.StoreStatus(ctx),
	}, true), nil
}

// Helper functions

// arguments returns the call arguments; tools without parameters accept none
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// jsonResult renders v as indented JSON. Unsuccessful operation results are
// flagged as tool errors while still carrying their structured body.
func jsonResult(v interface{}, ok bool) *mcp.CallToolResult {
	result := mcp.NewToolResultText(formatJSON(v))
	result.IsError = !ok
	return result
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
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

// getOverlap reads the overlap parameter; an explicit 0 disables overlap
func getOverlap(args map[string]interface{}) int {
	if _, ok := args["overlap"]; !ok {
		return 0
	}
	if n := getIntDefault(args, "overlap", 0); n != 0 {
		return n
	}
	return documents.NoOverlap
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return strings.TrimSpace(val)
	}
	return defaultValue
}

// getStringSlice accepts a JSON array of strings or a comma-separated string
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return types.SplitTags(val)
	}
	return nil
}

func getMetadata(args map[string]interface{}, key string) (types.Metadata, error) {
	switch val := args[key].(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return types.Metadata(val), nil
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, key+" must be an object", map[string]interface{}{"param": key})
	}
}

func getMetadataSlice(args map[string]interface{}, key string) ([]types.Metadata, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, key+" must be an array of objects", map[string]interface{}{"param": key})
	}
	out := make([]types.Metadata, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, key+" must be an array of objects", map[string]interface{}{
				"param": key,
				"index": i,
			})
		}
		out[i] = types.Metadata(m)
	}
	return out, nil
}
