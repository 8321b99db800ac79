// Package mcpserver exposes the analysis pipeline as MCP tools over stdio
// or SSE, plus plain HTTP health and cache routes next to the SSE endpoints.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/entrhq/mimic/pkg/llm"
	"github.com/entrhq/mimic/pkg/logging"
	"github.com/entrhq/mimic/pkg/pipeline"
	"github.com/entrhq/mimic/pkg/types"
)

// ServerName is reported to MCP clients.
const ServerName = "mimic"

// StdioClientID is the rate limit identity of the single stdio client.
const StdioClientID = "stdio"

// Pipeline is the orchestrator surface the server drives.
type Pipeline interface {
	Respond(ctx context.Context, clientID string, req types.AnalysisRequest) *types.AnalysisResponse
	Stats() pipeline.Stats
	ClearCache() int
}

// Inference is the backend surface probed by the health routes.
type Inference interface {
	llm.ModelLister
	llm.HealthChecker
}

// Options configure a Server.
type Options struct {
	Version string
	// Backend names the inference backend in health responses.
	Backend string
	// Models are checked by /health/models.
	Models []string
	Logger *logging.Logger
}

// Server owns the MCP server and the HTTP routes around it.
type Server struct {
	mcp       *server.MCPServer
	handlers  *Handlers
	pipeline  Pipeline
	inference Inference
	opts      Options
	logger    *logging.Logger
	started   time.Time
}

type clientIDKey struct{}

// WithClientID returns a context carrying the caller's rate limit identity.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientID returns the identity set by WithClientID, or StdioClientID.
func ClientID(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok && id != "" {
		return id
	}
	return StdioClientID
}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = []toolEntry{
	{
		def:     analyzeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalyze },
	},
	{
		def:     cacheStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCacheStats },
	},
	{
		def:     cacheClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCacheClear },
	},
}

// ToolNames lists the registered tools in registration order.
func ToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for _, entry := range toolRegistry {
		names = append(names, entry.def.Name)
	}
	return names
}

// New creates a server. inference may be nil, in which case the inference
// health routes report the backend as unavailable.
func New(p Pipeline, inference Inference, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		handlers:  NewHandlers(p),
		pipeline:  p,
		inference: inference,
		opts:      opts,
		logger:    logger,
		started:   time.Now(),
	}

	s.mcp = server.NewMCPServer(
		ServerName,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, entry := range toolRegistry {
		s.mcp.AddTool(entry.def, entry.handler(s.handlers))
	}
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP over in and out until ctx is cancelled or in closes.
// Every call is attributed to StdioClientID.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Infof("Serving MCP over stdio")
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return WithClientID(ctx, StdioClientID)
	})
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler serving the SSE transport and the health
// and cache routes. Tool calls made over SSE are attributed to the remote
// address of the message request.
func (s *Server) Handler() http.Handler {
	sse := server.NewSSEServer(s.mcp,
		server.WithSSEContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return WithClientID(ctx, remoteHost(r))
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	s.routes(mux)
	return mux
}

// ServeSSE listens on addr until ctx is cancelled, then shuts down with a
// grace period for in-flight requests.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Serving MCP over SSE on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sse transport: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}

// remoteHost is the caller address without its port. Callers behind the
// same NAT or proxy share an identity.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
