package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher launches Chromium through playwright-go. The driver
// process is started lazily on the first launch and shared afterwards.
type PlaywrightLauncher struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	install bool
}

// NewPlaywrightLauncher creates a launcher. When install is true the driver
// and browsers are downloaded on first use if missing.
func NewPlaywrightLauncher(install bool) *PlaywrightLauncher {
	return &PlaywrightLauncher{install: install}
}

func (l *PlaywrightLauncher) start() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw != nil {
		return l.pw, nil
	}

	// Discard driver output so it never interleaves with the MCP stdio stream
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if l.install {
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	l.pw = pw
	return pw, nil
}

// Launch starts a Chromium process.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	pw, err := l.start()
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if opts.Timeout > 0 {
		launchOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	b, err := AwaitOwned(ctx, func() (playwright.Browser, error) {
		return pw.Chromium.Launch(launchOpts)
	}, func(late playwright.Browser) {
		_ = late.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &pwBrowser{browser: b}, nil
}

// Stop shuts down the driver process.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type pwBrowser struct {
	browser playwright.Browser
}

func (b *pwBrowser) NewPage(opts PageOptions) (Page, error) {
	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	bctx, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if filter := opts.Filter; filter != nil {
		err := page.Route("**/*", func(route playwright.Route) {
			req := route.Request()
			if filter.Blocks(req.ResourceType(), req.URL()) {
				_ = route.Abort()
				return
			}
			_ = route.Continue()
		})
		if err != nil {
			page.Close()
			bctx.Close()
			return nil, fmt.Errorf("failed to install request filter: %w", err)
		}
	}

	return &pwPage{context: bctx, page: page}, nil
}

func (b *pwBrowser) IsConnected() bool {
	return b.browser.IsConnected()
}

func (b *pwBrowser) OnDisconnected(fn func()) {
	b.browser.OnDisconnected(func(playwright.Browser) { fn() })
}

func (b *pwBrowser) Close() error {
	return b.browser.Close()
}

type pwPage struct {
	context playwright.BrowserContext
	page    playwright.Page

	cdpOnce sync.Once
	cdp     playwright.CDPSession
	cdpErr  error
}

func (p *pwPage) Goto(url string, opts GotoOptions) (*Response, error) {
	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	resp, err := p.page.Goto(url, gotoOpts)
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil {
		return nil, nil
	}
	return &Response{URL: resp.URL(), Status: resp.Status()}, nil
}

func (p *pwPage) Screenshot(fullPage bool, timeout time.Duration) ([]byte, error) {
	opts := playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	data, err := p.page.Screenshot(opts)
	if err != nil {
		return nil, classify(err)
	}
	return data, nil
}

func (p *pwPage) Evaluate(expression string, args ...any) (any, error) {
	v, err := p.page.Evaluate(expression, args...)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (p *pwPage) Reload(opts GotoOptions) error {
	reloadOpts := playwright.PageReloadOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		reloadOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		reloadOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}
	if _, err := p.page.Reload(reloadOpts); err != nil {
		return classify(err)
	}
	return nil
}

// SetScriptingEnabled toggles page JavaScript through the DevTools
// protocol, which takes effect on the next document load.
func (p *pwPage) SetScriptingEnabled(enabled bool) error {
	p.cdpOnce.Do(func() {
		p.cdp, p.cdpErr = p.context.NewCDPSession(p.page)
	})
	if p.cdpErr != nil {
		return fmt.Errorf("failed to open devtools session: %w", p.cdpErr)
	}

	_, err := p.cdp.Send("Emulation.setScriptExecutionDisabled", map[string]interface{}{
		"value": !enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to toggle scripting: %w", err)
	}
	return nil
}

func (p *pwPage) Content() (string, error) {
	html, err := p.page.Content()
	if err != nil {
		return "", classify(err)
	}
	return html, nil
}

func (p *pwPage) Close() error {
	var errs []error
	if p.cdp != nil {
		_ = p.cdp.Detach()
	}
	if err := p.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.context.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// classify maps playwright failures onto the package sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, playwright.ErrTargetClosed):
		return fmt.Errorf("%w: %v", ErrClosed, err)
	case strings.Contains(err.Error(), "net::ERR_"):
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	default:
		return err
	}
}
