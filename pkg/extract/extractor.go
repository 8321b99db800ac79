// Package extract derives the bounded design snapshot of a rendered page:
// structure, colour palette, typography, layout containers, semantic
// regions, metrics and document metadata.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/mimic/pkg/browser"
	"github.com/entrhq/mimic/pkg/logging"
	"github.com/entrhq/mimic/pkg/types"
)

// Default extraction limits
const (
	DefaultMaxElements      = 500
	DefaultMaxResourceBytes = 10 * 1024 * 1024
	DefaultMaxSnapshotBytes = 10 * 1024 * 1024
	DefaultTimeout          = 10 * time.Second
)

// Options bounds one extraction.
type Options struct {
	// MaxElements is the DOM element cap; a page with more fails.
	MaxElements int
	// MaxResourceBytes caps the bytes transferred for subresources.
	MaxResourceBytes int64
	// MaxSnapshotBytes caps the encoded snapshot.
	MaxSnapshotBytes int64
	// Timeout bounds the whole extraction, re-render included.
	Timeout time.Duration
	// SkipStaticRender extracts the live DOM without the scripting-off reload.
	SkipStaticRender bool
}

// DefaultOptions returns the default limits.
func DefaultOptions() Options {
	return Options{
		MaxElements:      DefaultMaxElements,
		MaxResourceBytes: DefaultMaxResourceBytes,
		MaxSnapshotBytes: DefaultMaxSnapshotBytes,
		Timeout:          DefaultTimeout,
	}
}

// Extractor runs the extraction probes against a page.
type Extractor struct {
	opts   Options
	logger *logging.Logger
}

// New creates an extractor. Zero option fields use the defaults.
func New(opts Options, logger *logging.Logger) *Extractor {
	def := DefaultOptions()
	if opts.MaxElements <= 0 {
		opts.MaxElements = def.MaxElements
	}
	if opts.MaxResourceBytes <= 0 {
		opts.MaxResourceBytes = def.MaxResourceBytes
	}
	if opts.MaxSnapshotBytes <= 0 {
		opts.MaxSnapshotBytes = def.MaxSnapshotBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Extractor{opts: opts, logger: logger}
}

// Options returns the effective options.
func (e *Extractor) Options() Options {
	return e.opts
}

// WithLogger returns a copy of e writing to logger.
func (e *Extractor) WithLogger(logger *logging.Logger) *Extractor {
	cp := *e
	cp.logger = logger
	return &cp
}

// Extract builds the snapshot of the page currently loaded in page.
//
// The page is first reloaded with scripting disabled so the snapshot
// reflects the static document. The element count is checked before any
// other probe runs. Guard violations return OversizeResource errors and
// no partial snapshot.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, url string) (*types.DesignSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	start := time.Now()
	e.logger.Infof("Starting extraction of %s (max %d elements)", url, e.opts.MaxElements)

	snap, err := e.extract(ctx, page, url)
	if err != nil {
		e.logger.Errorf("Extraction of %s failed after %s: %v", url, time.Since(start), err)
		var typed *types.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, browser.ErrTimeout) {
			return nil, types.NewTimeout("extraction", e.opts.Timeout.Milliseconds())
		}
		return nil, fmt.Errorf("extraction of %s: %w", url, err)
	}

	e.logger.Infof("Extraction complete in %s: elements=%d colors=%d fonts=%d layouts=%d sections=%d",
		time.Since(start), snap.PageMetrics.DOMElements, len(snap.ColorPalette),
		len(snap.Typography), len(snap.LayoutPatterns), len(snap.SemanticSections))
	return snap, nil
}

func (e *Extractor) extract(ctx context.Context, page browser.Page, url string) (*types.DesignSnapshot, error) {
	if !e.opts.SkipStaticRender {
		if err := e.staticRender(ctx, page); err != nil {
			return nil, err
		}
	}

	var metrics types.PageMetrics
	if err := evalJSON(ctx, page, &metrics, metricsScript); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if metrics.DOMElements > e.opts.MaxElements {
		return nil, types.NewDOMTooLarge(url, metrics.DOMElements, e.opts.MaxElements)
	}
	if metrics.ResourceSize > e.opts.MaxResourceBytes {
		return nil, types.NewResourceTooLarge(url, metrics.ResourceSize, e.opts.MaxResourceBytes)
	}
	e.logger.Debugf("Metrics: %+v", metrics)

	snap := &types.DesignSnapshot{PageMetrics: metrics}

	// Each task writes only its own field of snap.
	tasks := []struct {
		name string
		run  func() error
	}{
		{"structure", func() error {
			var root *types.DOMNode
			if err := evalJSON(ctx, page, &root, structureScript); err != nil {
				return err
			}
			snap.DOMTree = root
			return nil
		}},
		{"colors", func() error {
			var raw [][2]string
			if err := evalJSON(ctx, page, &raw, colorsScript); err != nil {
				return err
			}
			snap.ColorPalette = rankColors(decodeColorObservations(raw), types.MaxPaletteSize)
			return nil
		}},
		{"typography", func() error {
			var raw []fontObservation
			if err := evalJSON(ctx, page, &raw, typographyScript); err != nil {
				return err
			}
			snap.Typography = dedupeTypography(raw)
			return nil
		}},
		{"layout", func() error {
			var raw []layoutObservation
			if err := evalJSON(ctx, page, &raw, layoutScript); err != nil {
				return err
			}
			snap.LayoutPatterns = buildLayouts(raw)
			return nil
		}},
		{"semantics", func() error {
			var raw []semanticObservation
			if err := evalJSON(ctx, page, &raw, semanticsScript, SemanticTags); err != nil {
				return err
			}
			snap.SemanticSections = buildSemantics(raw)
			return nil
		}},
		{"document", func() error {
			html, err := browser.Await(ctx, page.Content)
			if err != nil {
				return err
			}
			info, err := parseDocument(html)
			if err != nil {
				return err
			}
			snap.Document = info
			return nil
		}},
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, name string, run func() error) {
			defer wg.Done()
			if err := run(); err != nil {
				errs[i] = fmt.Errorf("%s: %w", name, err)
			}
		}(i, task.name, task.run)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if int64(len(encoded)) > e.opts.MaxSnapshotBytes {
		return nil, types.NewResourceTooLarge(url, int64(len(encoded)), e.opts.MaxSnapshotBytes)
	}

	return snap, nil
}

// staticRender reloads the page with scripting off, then turns it back on
// so the probes can run against the static DOM.
func (e *Extractor) staticRender(ctx context.Context, page browser.Page) error {
	if err := setScripting(ctx, page, false); err != nil {
		return fmt.Errorf("static render: %w", err)
	}
	_, err := browser.Await(ctx, func() (struct{}, error) {
		return struct{}{}, page.Reload(browser.GotoOptions{
			Timeout:   e.opts.Timeout,
			WaitUntil: browser.WaitDOMContentLoaded,
		})
	})
	if err != nil {
		return fmt.Errorf("static render: %w", err)
	}
	if err := setScripting(ctx, page, true); err != nil {
		return fmt.Errorf("static render: %w", err)
	}
	return nil
}

func setScripting(ctx context.Context, page browser.Page, enabled bool) error {
	_, err := browser.Await(ctx, func() (struct{}, error) {
		return struct{}{}, page.SetScriptingEnabled(enabled)
	})
	return err
}

// evalJSON runs a probe and decodes its JSON string result into out.
func evalJSON(ctx context.Context, page browser.Page, out any, script string, args ...any) error {
	v, err := browser.Await(ctx, func() (any, error) {
		return page.Evaluate(script, args...)
	})
	if err != nil {
		return err
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("probe returned %T, want JSON string", v)
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("failed to decode probe result: %w", err)
	}
	return nil
}
