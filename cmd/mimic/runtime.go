package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/entrhq/mimic/pkg/admission"
	"github.com/entrhq/mimic/pkg/browser"
	"github.com/entrhq/mimic/pkg/cache"
	"github.com/entrhq/mimic/pkg/config"
	"github.com/entrhq/mimic/pkg/extract"
	"github.com/entrhq/mimic/pkg/generate"
	"github.com/entrhq/mimic/pkg/logging"
	"github.com/entrhq/mimic/pkg/pipeline"
)

// runtime is the fully wired pipeline shared by every request of one
// process.
type runtime struct {
	orch      *pipeline.Orchestrator
	backend   config.Backend
	inference config.Inference
	limits    config.Limits
	logger    *logging.Logger
	launcher  *browser.PlaywrightLauncher
	stop      context.CancelFunc
}

// loadConfig initializes the global config from --config.
func loadConfig(c *cli.Context) error {
	if err := config.Initialize(c.String("config")); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	return nil
}

func newLogger(c *cli.Context, component string) *logging.Logger {
	if c.Bool("verbose") {
		return logging.NewWriterLogger(component, os.Stderr)
	}
	// NewLogger falls back to stderr on error; that logger is still usable
	logger, _ := logging.NewLogger(component)
	return logger
}

func inferenceFlags(c *cli.Context) config.InferenceFlags {
	return config.InferenceFlags{
		Backend:     c.String("backend"),
		Host:        c.String("host"),
		BaseURL:     c.String("base-url"),
		APIKey:      c.String("api-key"),
		VisionModel: c.String("vision-model"),
		CodeModel:   c.String("code-model"),
		SkipVision:  c.Bool("skip-vision"),
	}
}

// buildRuntime wires the pipeline from config, environment and flags.
// Background sweepers run until close.
func buildRuntime(c *cli.Context) (*runtime, error) {
	if err := loadConfig(c); err != nil {
		return nil, err
	}
	logger := newLogger(c, "mimic")

	limits, err := config.ResolveLimits()
	if err != nil {
		return nil, err
	}
	if n := c.Int("max-concurrent"); n > 0 {
		limits.MaxConcurrent = n
	}

	inference := config.ResolveInference(inferenceFlags(c))
	backend, err := config.BuildBackend(inference)
	if err != nil {
		return nil, err
	}

	settings := config.DefaultBrowserSettings()
	if section := config.GetBrowser(); section != nil {
		settings = section.Get()
	}

	filter, err := browser.NewResourceFilter(browser.DefaultBlockedResourceTypes, settings.BlockedHosts)
	if err != nil {
		return nil, err
	}
	poolOpts := browser.DefaultPoolOptions()
	poolOpts.Headless = settings.Headless
	poolOpts.UserAgent = settings.UserAgent
	poolOpts.Filter = filter

	launcher := browser.NewPlaywrightLauncher(settings.Install)
	pool := browser.NewPool(launcher, poolOpts, logger)

	capturer := browser.NewCapturer(browser.CaptureOptions{
		FullPage:          true,
		NavigationTimeout: settings.NavigationTimeout,
		ScreenshotTimeout: settings.ScreenshotTimeout,
		WaitUntil:         browser.WaitNetworkIdle,
		MaxSizeBytes:      limits.MaxResourceBytes,
	}, logger)

	extractor := extract.New(extract.Options{
		MaxElements:      limits.MaxElements,
		MaxResourceBytes: limits.MaxResourceBytes,
		Timeout:          limits.ExtractionTimeout,
	}, logger)

	tokens, err := generate.NewTokenizer()
	if err != nil {
		logger.Warnf("Tokenizer unavailable, estimating prompt size from bytes: %v", err)
		tokens = nil
	}
	genOpts := generate.DefaultOptions()
	genOpts.VisionModel = inference.VisionModel
	genOpts.CodeModel = inference.CodeModel
	genOpts.SkipVision = inference.SkipVision
	genOpts.MaxSnapshotTokens = inference.MaxSnapshotTokens
	generator := generate.New(backend, genOpts, tokens, logger)

	store := cache.New(cache.Options{TTL: limits.CacheTTL, MaxSize: limits.CacheMaxBytes}, logger)
	rate := admission.NewRateLimiter(limits.RateLimit, limits.RateWindow, nil)
	gate := admission.NewConcurrencyLimiter(limits.MaxConcurrent, limits.MaxQueue)

	orch, err := pipeline.New(pipeline.Config{
		RateLimiter: rate,
		Concurrency: gate,
		Pool:        pool,
		Capturer:    capturer,
		Extractor:   extractor,
		Generator:   generator,
		Cache:       store,
		Logger:      logger,
		Options: pipeline.Options{
			RequestTimeout:   limits.RequestTimeout,
			InferenceTimeout: inference.Timeout,
		},
	})
	if err != nil {
		return nil, err
	}

	ctx, stop := context.WithCancel(c.Context)
	store.StartJanitor(ctx, 0)
	rate.StartSweeper(ctx, 0)

	logger.Infof("Pipeline ready: backend=%s vision=%s code=%s max_concurrent=%d rate=%d/%s",
		inference.Backend, inference.VisionModel, inference.CodeModel, limits.MaxConcurrent, limits.RateLimit, limits.RateWindow)

	return &runtime{
		orch:      orch,
		backend:   backend,
		inference: inference,
		limits:    limits,
		logger:    logger,
		launcher:  launcher,
		stop:      stop,
	}, nil
}

// models lists the models the pipeline calls, vision first.
func (r *runtime) models() []string {
	if r.inference.SkipVision {
		return []string{r.inference.CodeModel}
	}
	return []string{r.inference.VisionModel, r.inference.CodeModel}
}

func (r *runtime) close() {
	r.stop()
	if err := r.orch.Shutdown(); err != nil {
		r.logger.Warnf("%v", err)
	}
	if err := r.launcher.Stop(); err != nil {
		r.logger.Warnf("Failed to stop playwright driver: %v", err)
	}
	r.logger.Close()
}
