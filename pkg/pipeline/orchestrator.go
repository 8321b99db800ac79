// Package pipeline sequences one analysis request through admission,
// cache lookup, capture, extraction, inference and cache insertion.
//
// The Orchestrator owns no resources of its own. The concurrency slot and
// the browser reference are held only while the page is rendered and
// measured, and are released exactly once on every exit from that region.
// Every failure leaves the orchestrator as a *types.Error carrying the
// request's correlation id.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/mimic/pkg/admission"
	"github.com/entrhq/mimic/pkg/browser"
	"github.com/entrhq/mimic/pkg/cache"
	"github.com/entrhq/mimic/pkg/extract"
	"github.com/entrhq/mimic/pkg/generate"
	"github.com/entrhq/mimic/pkg/logging"
	"github.com/entrhq/mimic/pkg/security/urlguard"
	"github.com/entrhq/mimic/pkg/types"
)

const (
	// DefaultRequestTimeout is the end-to-end budget of one request.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultInferenceTimeout bounds each inference phase.
	DefaultInferenceTimeout = 120 * time.Second

	// pageCloseTimeout bounds closing a page, which also runs after the
	// request budget is spent.
	pageCloseTimeout = 5 * time.Second
)

// ArtifactGenerator produces the artifact for a rendered page.
type ArtifactGenerator interface {
	Generate(ctx context.Context, in generate.Input, logger *logging.Logger) (*types.Artifact, error)
}

// Options are the orchestrator's time budgets.
type Options struct {
	RequestTimeout   time.Duration
	InferenceTimeout time.Duration
}

// Config wires the orchestrator's collaborators. Every field except
// Logger is required.
type Config struct {
	RateLimiter *admission.RateLimiter
	Concurrency *admission.ConcurrencyLimiter
	Pool        *browser.Pool
	Capturer    *browser.Capturer
	Extractor   *extract.Extractor
	Generator   ArtifactGenerator
	Cache       *cache.Store
	Logger      *logging.Logger
	Options     Options
}

// Orchestrator runs analysis requests. It is safe for concurrent use.
type Orchestrator struct {
	rate      *admission.RateLimiter
	gate      *admission.ConcurrencyLimiter
	pool      *browser.Pool
	capturer  *browser.Capturer
	extractor *extract.Extractor
	generator ArtifactGenerator
	cache     *cache.Store
	logger    *logging.Logger
	opts      Options

	newID   func() string
	now     func() time.Time
	observe func(Transition)
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.RateLimiter == nil:
		return nil, errors.New("pipeline: rate limiter is required")
	case cfg.Concurrency == nil:
		return nil, errors.New("pipeline: concurrency limiter is required")
	case cfg.Pool == nil:
		return nil, errors.New("pipeline: browser pool is required")
	case cfg.Capturer == nil:
		return nil, errors.New("pipeline: capturer is required")
	case cfg.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case cfg.Generator == nil:
		return nil, errors.New("pipeline: generator is required")
	case cfg.Cache == nil:
		return nil, errors.New("pipeline: cache is required")
	}

	opts := cfg.Options
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.InferenceTimeout <= 0 {
		opts.InferenceTimeout = DefaultInferenceTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Orchestrator{
		rate:      cfg.RateLimiter,
		gate:      cfg.Concurrency,
		pool:      cfg.Pool,
		capturer:  cfg.Capturer,
		extractor: cfg.Extractor,
		generator: cfg.Generator,
		cache:     cfg.Cache,
		logger:    logger,
		opts:      opts,
		newID:     uuid.NewString,
		now:       time.Now,
	}, nil
}

// OnTransition registers fn to observe every state change. It must be
// called before the first Analyze.
func (o *Orchestrator) OnTransition(fn func(Transition)) {
	o.observe = fn
}

// Result is a successful analysis.
type Result struct {
	RequestID      string
	URL            string
	Config         types.ComponentConfig
	Snapshot       *types.DesignSnapshot
	Artifact       *types.Artifact
	Cached         bool
	CachedAt       time.Time
	ProcessingTime time.Duration
}

// Analyze runs req for clientID. A non-nil error is always a *types.Error
// stamped with the request id.
func (o *Orchestrator) Analyze(ctx context.Context, clientID string, req types.AnalysisRequest) (*Result, error) {
	r := &run{requestID: o.newID(), state: StateIdle, observe: o.observe}
	logger := o.logger.WithRequest(r.requestID)
	start := o.now()

	logger.Infof("Analysis requested: url=%s framework=%s styling=%s client=%s", req.URL, req.Framework, req.Styling, clientID)

	ctx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()

	res, err := o.analyze(ctx, r, logger, clientID, req)
	elapsed := o.now().Sub(start)
	if err != nil {
		failed := r.state
		r.enter(StateFailed)
		typed := o.normalize(err, r.requestID)
		logger.Errorf("Analysis failed in state %s after %s: %v", failed, elapsed, err)
		return nil, typed
	}

	res.RequestID = r.requestID
	res.ProcessingTime = elapsed
	r.enter(StateDone)
	logger.Infof("Analysis complete in %s (cached=%t)", elapsed, res.Cached)
	return res, nil
}

func (o *Orchestrator) analyze(ctx context.Context, r *run, logger *logging.Logger, clientID string, req types.AnalysisRequest) (*Result, error) {
	r.enter(StateValidating)
	if err := urlguard.Validate(req.URL); err != nil {
		var v *urlguard.Violation
		if errors.As(err, &v) {
			return nil, types.NewInvalidURL(req.URL, v.Reason)
		}
		return nil, types.NewInvalidURL(req.URL, err.Error())
	}
	cfg := req.Config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := o.rate.Allow(clientID); err != nil {
		return nil, err
	}

	r.enter(StateCacheLookup)
	key, err := cache.KeyFor(req.URL, cfg)
	if err != nil {
		return nil, types.NewInvalidURL(req.URL, "URL cannot be normalized")
	}
	if entry, ok := o.cache.GetKey(key); ok {
		logger.Infof("Cache hit for %s", key)
		return &Result{
			URL:      req.URL,
			Config:   cfg,
			Snapshot: entry.Snapshot,
			Artifact: entry.Artifact,
			Cached:   true,
			CachedAt: entry.CachedAt,
		}, nil
	}
	logger.Debugf("Cache miss for %s", key)

	capture, snap, err := o.render(ctx, r, logger, req.URL)
	if err != nil {
		return nil, err
	}

	r.enter(StateAwaitingInference)
	inferCtx, cancel := context.WithTimeout(ctx, o.opts.InferenceTimeout)
	defer cancel()
	artifact, err := o.generator.Generate(inferCtx, generate.Input{
		URL:        req.URL,
		Config:     cfg,
		Snapshot:   snap,
		Screenshot: capture.Screenshot,
	}, logger)
	if err != nil {
		return nil, err
	}

	r.enter(StatePostProcessing)
	if artifact.Framework == "" {
		artifact.Framework = cfg.Framework
		artifact.Styling = cfg.Styling
	}

	r.enter(StateCacheStore)
	entry, err := o.cache.Set(req.URL, cfg, snap, artifact)
	if err != nil {
		// the artifact is still returned; only caching failed
		logger.Warnf("Could not cache result: %v", err)
		return &Result{URL: req.URL, Config: cfg, Snapshot: snap, Artifact: artifact, CachedAt: o.now()}, nil
	}

	return &Result{
		URL:      req.URL,
		Config:   cfg,
		Snapshot: snap,
		Artifact: artifact,
		CachedAt: entry.CachedAt,
	}, nil
}

// render holds the concurrency slot and a browser reference while the
// page is captured and extracted. Both are released before it returns.
func (o *Orchestrator) render(ctx context.Context, r *run, logger *logging.Logger, url string) (*browser.CaptureResult, *types.DesignSnapshot, error) {
	r.enter(StateAcquiring)
	slot, err := o.gate.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer slot.Release()

	lease, err := o.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer lease.Release()

	page, err := lease.NewPage(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer closePage(ctx, page, logger)

	r.enter(StateCapturing)
	capture, err := o.capturer.WithLogger(logger).Capture(ctx, page, url)
	if err != nil {
		return nil, nil, err
	}

	r.enter(StateExtracting)
	snap, err := o.extractor.WithLogger(logger).Extract(ctx, page, url)
	if err != nil {
		return nil, nil, err
	}
	if snap.PageMetrics.LoadTime == 0 {
		snap.PageMetrics.LoadTime = capture.LoadTime.Milliseconds()
	}
	if snap.PageMetrics.RenderTime == 0 {
		snap.PageMetrics.RenderTime = capture.RenderTime.Milliseconds()
	}
	return capture, snap, nil
}

func closePage(ctx context.Context, page browser.Page, logger *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pageCloseTimeout)
	defer cancel()

	_, err := browser.Await(ctx, func() (struct{}, error) {
		return struct{}{}, page.Close()
	})
	if err != nil {
		logger.Warnf("Failed to close page: %v", err)
	}
}

// normalize maps err onto the taxonomy. Inference failures keep their
// model and a caller-safe reason; raw text of anything unclassified stays
// in the log.
func (o *Orchestrator) normalize(err error, requestID string) *types.Error {
	var inf *generate.InferenceError
	if errors.As(err, &inf) {
		out := types.NewInferenceFailure(inf.Model, inf.Reason())
		out.Details["phase"] = string(inf.Phase)
		out.RequestID = requestID
		return out
	}
	if errors.Is(err, context.Canceled) {
		out := types.NewInternal("request cancelled", nil)
		out.RequestID = requestID
		return out
	}
	return types.Normalize(err, requestID)
}

// Stats is a snapshot of the shared pipeline resources.
type Stats struct {
	Cache       cache.Stats                `json:"cache"`
	Concurrency admission.ConcurrencyStats `json:"concurrency"`
	Browser     browser.PoolStatus         `json:"browser"`
	RateClients int                        `json:"rateLimitedClients"`
}

// Stats reports cache, admission and browser state.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Cache:       o.cache.Stats(),
		Concurrency: o.gate.Stats(),
		Browser:     o.pool.Status(),
		RateClients: o.rate.Clients(),
	}
}

// CacheStats reports cache statistics only.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// ClearCache empties the cache and returns how many entries it held.
// In-flight runs are unaffected.
func (o *Orchestrator) ClearCache() int {
	n := o.cache.Clear()
	o.logger.Infof("Cache cleared (%d entries)", n)
	return n
}

// Shutdown closes the browser process.
func (o *Orchestrator) Shutdown() error {
	if err := o.pool.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down browser pool: %w", err)
	}
	return nil
}
