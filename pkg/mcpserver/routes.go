package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/mimic/pkg/llm"
)

const healthProbeTimeout = 10 * time.Second

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    int64  `json:"uptime"`
	Version   string `json:"version"`
}

// InferenceStatus is the body of GET /health/inference.
type InferenceStatus struct {
	Service      string `json:"service"`
	Available    bool   `json:"available"`
	Timestamp    string `json:"timestamp"`
	ResponseTime int64  `json:"responseTime,omitempty"`
	LastError    string `json:"lastError,omitempty"`
}

// ModelStatus reports one configured model.
type ModelStatus struct {
	Loaded  bool   `json:"loaded"`
	Version string `json:"version,omitempty"`
}

// ModelsStatus is the body of GET /health/models.
type ModelsStatus struct {
	Models    map[string]ModelStatus `json:"models"`
	Timestamp string                 `json:"timestamp"`
	LastError string                 `json:"lastError,omitempty"`
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/inference", s.handleInferenceHealth)
	mux.HandleFunc("GET /health/models", s.handleModelsHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /cache/clear", s.handleCacheClear)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"name":    ServerName,
		"version": s.opts.Version,
		"tools":   ToolNames(),
		"endpoints": map[string]string{
			"sse":             "/sse",
			"message":         "/message",
			"health":          "/health",
			"inferenceHealth": "/health/inference",
			"modelsHealth":    "/health/models",
			"stats":           "/stats",
			"cacheStats":      "/cache/stats",
			"cacheClear":      "/cache/clear (POST)",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: timestamp(),
		Uptime:    int64(time.Since(s.started).Seconds()),
		Version:   s.opts.Version,
	})
}

func (s *Server) handleInferenceHealth(w http.ResponseWriter, r *http.Request) {
	status := InferenceStatus{Service: s.opts.Backend, Timestamp: timestamp()}
	if s.inference == nil {
		status.LastError = "no inference backend configured"
		jsonResponse(w, http.StatusServiceUnavailable, status)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	start := time.Now()
	if err := s.inference.Ping(ctx); err != nil {
		s.logger.Warnf("Inference health check failed: %v", err)
		status.LastError = llm.Reason(err)
		jsonResponse(w, http.StatusServiceUnavailable, status)
		return
	}

	status.Available = true
	status.ResponseTime = time.Since(start).Milliseconds()
	jsonResponse(w, http.StatusOK, status)
}

func (s *Server) handleModelsHealth(w http.ResponseWriter, r *http.Request) {
	status := ModelsStatus{Models: make(map[string]ModelStatus, len(s.opts.Models)), Timestamp: timestamp()}
	for _, m := range s.opts.Models {
		status.Models[m] = ModelStatus{}
	}
	if s.inference == nil {
		status.LastError = "no inference backend configured"
		jsonResponse(w, http.StatusServiceUnavailable, status)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	available, err := s.inference.ListModels(ctx)
	if err != nil {
		s.logger.Warnf("Model listing failed: %v", err)
		status.LastError = llm.Reason(err)
		jsonResponse(w, http.StatusServiceUnavailable, status)
		return
	}

	code := http.StatusOK
	for _, m := range s.opts.Models {
		version, ok := findModel(available, m)
		status.Models[m] = ModelStatus{Loaded: ok, Version: version}
		if !ok {
			code = http.StatusServiceUnavailable
		}
	}
	jsonResponse(w, code, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.pipeline.Stats())
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.pipeline.Stats().Cache)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, CacheClearResult{Success: true, ClearedEntries: s.pipeline.ClearCache()})
}

// findModel matches a configured model against installed names. An untagged
// name matches its ":latest" tag.
func findModel(installed []string, want string) (string, bool) {
	for _, name := range installed {
		if name == want {
			return name, true
		}
		if !strings.Contains(want, ":") && name == want+":latest" {
			return name, true
		}
	}
	return "", false
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// jsonResponse is a JSON response helper
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
