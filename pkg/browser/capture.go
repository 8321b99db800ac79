package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/mimic/pkg/logging"
	"github.com/entrhq/mimic/pkg/types"
)

// Default capture limits
const (
	DefaultNavigationTimeout = 15 * time.Second
	DefaultScreenshotTimeout = 5 * time.Second
	DefaultMaxCaptureBytes   = 10 * 1024 * 1024
)

// CaptureOptions configures one capture.
type CaptureOptions struct {
	FullPage          bool
	NavigationTimeout time.Duration
	ScreenshotTimeout time.Duration
	WaitUntil         WaitCondition
	MaxSizeBytes      int64
}

// DefaultCaptureOptions returns a full-page capture waiting for network idle.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		FullPage:          true,
		NavigationTimeout: DefaultNavigationTimeout,
		ScreenshotTimeout: DefaultScreenshotTimeout,
		WaitUntil:         WaitNetworkIdle,
		MaxSizeBytes:      DefaultMaxCaptureBytes,
	}
}

// CaptureResult is the screenshot and timing of a rendered page.
type CaptureResult struct {
	Screenshot []byte
	Status     int
	LoadTime   time.Duration // navigation start to load
	RenderTime time.Duration // first contentful paint
	PageWidth  int
	PageHeight int
}

// Capturer navigates a page and takes its screenshot.
type Capturer struct {
	opts   CaptureOptions
	logger *logging.Logger
}

// NewCapturer creates a capturer. Zero option fields use the defaults.
func NewCapturer(opts CaptureOptions, logger *logging.Logger) *Capturer {
	def := DefaultCaptureOptions()
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = def.NavigationTimeout
	}
	if opts.ScreenshotTimeout <= 0 {
		opts.ScreenshotTimeout = def.ScreenshotTimeout
	}
	if opts.WaitUntil == "" {
		opts.WaitUntil = def.WaitUntil
	}
	if opts.MaxSizeBytes <= 0 {
		opts.MaxSizeBytes = def.MaxSizeBytes
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Capturer{opts: opts, logger: logger}
}

// Options returns the effective capture options.
func (c *Capturer) Options() CaptureOptions {
	return c.opts
}

// WithLogger returns a copy of c writing to logger, typically a
// request-scoped child.
func (c *Capturer) WithLogger(logger *logging.Logger) *Capturer {
	cp := *c
	cp.logger = logger
	return &cp
}

const (
	fontsReadyScript = `() => document.fonts.ready.then(() => true)`

	firstPaintScript = `() => {
  const entry = performance.getEntriesByType('paint').find((e) => e.name === 'first-contentful-paint');
  return entry ? entry.startTime : 0;
}`

	pageSizeScript = `() => [document.documentElement.scrollWidth, document.documentElement.scrollHeight]`
)

// Capture navigates page to url and takes a PNG screenshot. Failures are
// returned as *types.Error: Unreachable for a missing or >=400 response
// and network errors, Timeout for a stage exceeding its budget, and
// OversizeResource for a screenshot larger than MaxSizeBytes.
func (c *Capturer) Capture(ctx context.Context, page Page, url string) (*CaptureResult, error) {
	logger := c.logger
	start := time.Now()
	logger.Infof("Starting capture of %s", url)

	navCtx, cancel := context.WithTimeout(ctx, c.opts.NavigationTimeout)
	defer cancel()

	navStart := time.Now()
	resp, err := Await(navCtx, func() (*Response, error) {
		return page.Goto(url, GotoOptions{Timeout: c.opts.NavigationTimeout, WaitUntil: c.opts.WaitUntil})
	})
	if err != nil {
		logger.Errorf("Navigation to %s failed after %s: %v", url, time.Since(start), err)
		return nil, c.mapError(err, url, "navigation", c.opts.NavigationTimeout)
	}
	if resp == nil {
		return nil, types.NewUnreachable(url, "No response received")
	}
	if resp.Status >= 400 {
		return nil, types.NewUnreachable(url, fmt.Sprintf("HTTP %d error", resp.Status))
	}
	loadTime := time.Since(navStart)
	logger.Debugf("Page loaded in %s with status %d", loadTime, resp.Status)

	if _, err := Await(navCtx, func() (any, error) { return page.Evaluate(fontsReadyScript) }); err != nil {
		return nil, c.mapError(err, url, "navigation", c.opts.NavigationTimeout)
	}

	var renderTime time.Duration
	if v, err := Await(navCtx, func() (any, error) { return page.Evaluate(firstPaintScript) }); err == nil {
		renderTime = time.Duration(toFloat(v) * float64(time.Millisecond))
	} else {
		logger.Warnf("Could not read first paint: %v", err)
	}

	var width, height int
	if v, err := Await(navCtx, func() (any, error) { return page.Evaluate(pageSizeScript) }); err == nil {
		if dims, ok := v.([]any); ok && len(dims) == 2 {
			width, height = int(toFloat(dims[0])), int(toFloat(dims[1]))
		}
	}

	shotCtx, cancelShot := context.WithTimeout(ctx, c.opts.ScreenshotTimeout)
	defer cancelShot()

	shotStart := time.Now()
	shot, err := Await(shotCtx, func() ([]byte, error) {
		return page.Screenshot(c.opts.FullPage, c.opts.ScreenshotTimeout)
	})
	if err != nil {
		logger.Errorf("Screenshot of %s failed: %v", url, err)
		return nil, c.mapError(err, url, "screenshot", c.opts.ScreenshotTimeout)
	}
	if int64(len(shot)) > c.opts.MaxSizeBytes {
		return nil, types.NewResourceTooLarge(url, int64(len(shot)), c.opts.MaxSizeBytes)
	}

	logger.Infof("Capture complete: load=%s render=%s screenshot=%s size=%d total=%s",
		loadTime, renderTime, time.Since(shotStart), len(shot), time.Since(start))

	return &CaptureResult{
		Screenshot: shot,
		Status:     resp.Status,
		LoadTime:   loadTime,
		RenderTime: renderTime,
		PageWidth:  width,
		PageHeight: height,
	}, nil
}

// mapError converts a stage failure into the error taxonomy.
func (c *Capturer) mapError(err error, url, stage string, timeout time.Duration) error {
	var typed *types.Error
	switch {
	case errors.As(err, &typed):
		return typed
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return types.NewTimeout(stage, timeout.Milliseconds())
	case errors.Is(err, ErrNavigation):
		return types.NewUnreachable(url, "navigation failed")
	default:
		return fmt.Errorf("%s of %s: %w", stage, url, err)
	}
}

// toFloat converts a JSON number returned from the page to float64.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
