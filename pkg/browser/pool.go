package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/mimic/pkg/logging"
)

// Default values for the pool and its pages
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultLaunchTimeout  = 30 * time.Second
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DefaultArgs are the Chromium flags every process is launched with.
var DefaultArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-accelerated-2d-canvas",
	"--disable-gpu",
	"--window-size=1920,1080",
}

// PoolOptions configures the browser process and the pages it serves.
type PoolOptions struct {
	Headless      bool
	Args          []string
	LaunchTimeout time.Duration
	Viewport      Viewport
	UserAgent     string
	Filter        *ResourceFilter
}

// DefaultPoolOptions returns headless Chromium with a 1920x1080 desktop
// viewport and the default resource filter.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		Headless:      true,
		Args:          append([]string(nil), DefaultArgs...),
		LaunchTimeout: DefaultLaunchTimeout,
		Viewport:      Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		UserAgent:     DefaultUserAgent,
		Filter:        DefaultResourceFilter(),
	}
}

// Pool shares one browser process between concurrent pipeline runs. The
// process is launched lazily by the first Acquire and closed when the last
// lease is released. At most one launch is ever in flight.
type Pool struct {
	launcher Launcher
	opts     PoolOptions
	logger   *logging.Logger

	mu        sync.Mutex
	browser   Browser
	refs      int
	gen       uint64        // incremented per launched process and on shutdown
	launching chan struct{} // non-nil while a launch is in flight
	launches  int
}

// PoolStatus is a point-in-time view of the pool.
type PoolStatus struct {
	Active   bool `json:"active"`
	RefCount int  `json:"refCount"`
	Launches int  `json:"launches"`
}

// NewPool creates a pool launching browsers through launcher.
func NewPool(launcher Launcher, opts PoolOptions, logger *logging.Logger) *Pool {
	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.LaunchTimeout == 0 {
		opts.LaunchTimeout = DefaultLaunchTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pool{launcher: launcher, opts: opts, logger: logger}
}

// Acquire returns a lease on the shared browser, launching it if no
// connected process exists. Every successful Acquire must be paired with
// exactly one Lease.Release. Callers arriving while a launch is in flight
// wait for it, or for ctx, whichever ends first.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	for {
		p.mu.Lock()

		if p.browser != nil && p.browser.IsConnected() {
			p.refs++
			p.logger.Debugf("Reusing browser instance (refs=%d)", p.refs)
			lease := &Lease{pool: p, browser: p.browser, gen: p.gen}
			p.mu.Unlock()
			return lease, nil
		}

		if p.browser != nil {
			// Disconnected but the handler has not fired yet
			stale := p.browser
			p.browser = nil
			p.refs = 0
			go stale.Close()
		}

		if wait := p.launching; wait != nil {
			p.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to launch browser: %w", ctx.Err())
			}
		}

		done := make(chan struct{})
		p.launching = done
		startGen := p.gen
		p.mu.Unlock()

		return p.launch(ctx, done, startGen)
	}
}

// launch starts a process outside the lock and installs it as the
// singleton. done is closed once the outcome is visible to waiters.
func (p *Pool) launch(ctx context.Context, done chan struct{}, startGen uint64) (*Lease, error) {
	p.logger.Infof("Launching browser instance")
	b, err := p.launcher.Launch(ctx, LaunchOptions{
		Headless: p.opts.Headless,
		Args:     p.opts.Args,
		Timeout:  p.opts.LaunchTimeout,
	})

	p.mu.Lock()
	p.launching = nil
	close(done)

	if err != nil {
		p.mu.Unlock()
		p.logger.Errorf("Failed to launch browser: %v", err)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	if p.gen != startGen {
		// Shut down while launching
		p.mu.Unlock()
		_ = b.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", ErrClosed)
	}

	p.gen++
	p.launches++
	p.browser = b
	p.refs = 1
	gen := p.gen
	launches := p.launches
	p.mu.Unlock()

	b.OnDisconnected(func() { p.handleDisconnect(gen) })

	p.logger.Infof("Browser instance launched (launch #%d)", launches)
	return &Lease{pool: p, browser: b, gen: gen}, nil
}

// handleDisconnect clears the singleton if generation gen is still current.
func (p *Pool) handleDisconnect(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gen != gen || p.browser == nil {
		return
	}
	p.logger.Warnf("Browser disconnected unexpectedly (refs=%d)", p.refs)
	p.browser = nil
	p.refs = 0
}

// release drops one reference held on generation gen.
func (p *Pool) release(gen uint64) {
	p.mu.Lock()

	// A lease on a process that already died or was shut down holds nothing
	if gen != p.gen || p.browser == nil {
		p.mu.Unlock()
		return
	}

	if p.refs > 0 {
		p.refs--
	}
	p.logger.Debugf("Browser reference released (refs=%d)", p.refs)

	if p.refs > 0 {
		p.mu.Unlock()
		return
	}
	b := p.browser
	p.browser = nil
	p.mu.Unlock()

	// Closed outside the lock: the disconnect handler takes it too
	if err := b.Close(); err != nil {
		p.logger.Warnf("Error closing browser: %v", err)
		return
	}
	p.logger.Infof("Browser instance closed")
}

// Status reports whether a browser is live and how many leases hold it.
func (p *Pool) Status() PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStatus{
		Active:   p.browser != nil && p.browser.IsConnected(),
		RefCount: p.refs,
		Launches: p.launches,
	}
}

// RefCount returns the number of outstanding leases.
func (p *Pool) RefCount() int {
	return p.Status().RefCount
}

// Shutdown closes the browser regardless of outstanding leases. Leases
// released afterwards are no-ops, and a launch still in flight is closed
// as soon as it completes.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	p.gen++
	if p.browser == nil {
		p.mu.Unlock()
		return nil
	}
	b := p.browser
	p.browser = nil
	p.refs = 0
	p.mu.Unlock()

	if err := b.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// Lease is one reference on the pooled browser.
type Lease struct {
	pool    *Pool
	browser Browser
	gen     uint64
	once    sync.Once
}

// NewPage opens a page with the pool's viewport, user agent and filter.
// A page that opens after ctx ends is closed.
func (l *Lease) NewPage(ctx context.Context) (Page, error) {
	page, err := AwaitOwned(ctx, func() (Page, error) {
		return l.browser.NewPage(PageOptions{
			Viewport:  l.pool.opts.Viewport,
			UserAgent: l.pool.opts.UserAgent,
			Filter:    l.pool.opts.Filter,
		})
	}, func(late Page) {
		_ = late.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// Viewport returns the viewport pages are created with.
func (l *Lease) Viewport() Viewport {
	return l.pool.opts.Viewport
}

// Release returns the reference. Calls after the first are no-ops.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() { l.pool.release(l.gen) })
}
