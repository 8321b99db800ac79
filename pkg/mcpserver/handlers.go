package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/mimic/pkg/types"
)

// AnalyzeRequest is the argument object of analyzeWebpage.
type AnalyzeRequest struct {
	URL       string         `json:"url"`
	Framework string         `json:"framework"`
	Styling   string         `json:"styling"`
	Options   *types.Options `json:"options,omitempty"`
}

// CacheClearResult is returned by cacheClear.
type CacheClearResult struct {
	Success        bool `json:"success"`
	ClearedEntries int  `json:"clearedEntries"`
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	pipeline Pipeline
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(p Pipeline) *Handlers {
	return &Handlers{pipeline: p}
}

// HandleAnalyze runs the pipeline for one page. Pipeline failures come back
// as a failed AnalysisResponse with IsError set.
func (h *Handlers) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalyzeRequest](req)
	if err != nil {
		return errorResult(types.Failure(argumentError(err))), nil
	}

	resp := h.pipeline.Respond(ctx, ClientID(ctx), types.AnalysisRequest{
		URL:       input.URL,
		Framework: types.Framework(input.Framework),
		Styling:   types.Styling(input.Styling),
		Options:   input.Options,
	})
	if !resp.Success {
		return errorResult(resp), nil
	}
	return successResult(resp)
}

// HandleCacheStats reports cache statistics.
func (h *Handlers) HandleCacheStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.pipeline.Stats().Cache)
}

// HandleCacheClear empties the cache.
func (h *Handlers) HandleCacheClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(CacheClearResult{Success: true, ClearedEntries: h.pipeline.ClearCache()})
}

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("invalid arguments: %w", err)
	}
	return result, nil
}

// argumentError reports undecodable arguments without echoing decoder
// text to the client. A mistyped field is named in Details.
func argumentError(err error) *types.Error {
	var details map[string]any
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		details = map[string]any{"field": typeErr.Field}
		if typeErr.Type != nil {
			details["expected"] = typeErr.Type.String()
		}
	}
	return types.NewValidation("invalid arguments", details)
}

// errorResult wraps a failed response so MCP clients see IsError while
// still receiving the structured error body.
func errorResult(resp *types.AnalysisResponse) *mcp.CallToolResult {
	content, _ := json.MarshalIndent(resp, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
	}, nil
}
