// Package browsertest provides in-memory implementations of the browser
// driver interfaces for tests.
package browsertest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/mimic/pkg/browser"
)

// Launcher is a fake browser.Launcher counting launches.
type Launcher struct {
	mu       sync.Mutex
	attempts int
	launches int
	browsers []*Browser

	// Err, when set, fails every launch.
	Err error
	// Gate, when set, holds Launch until it is closed. Like a real driver
	// the wait does not observe ctx.
	Gate <-chan struct{}
	// NewPage builds the page returned by each Browser.NewPage. Nil yields
	// a page answering 200 with an empty evaluation result.
	NewPage func() *Page
}

// Launch returns a new connected fake browser.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.attempts++
	l.mu.Unlock()
	if l.Gate != nil {
		<-l.Gate
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return nil, l.Err
	}
	l.launches++
	b := &Browser{connected: true, newPage: l.NewPage, LaunchOptions: opts}
	l.browsers = append(l.browsers, b)
	return b, nil
}

// Launches returns how many browsers were launched.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// Attempts returns how many Launch calls got past the context check,
// including any still held by Gate.
func (l *Launcher) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Browsers returns every browser launched so far.
func (l *Launcher) Browsers() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Browser, len(l.browsers))
	copy(out, l.browsers)
	return out
}

// Last returns the most recently launched browser, or nil.
func (l *Launcher) Last() *Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.browsers) == 0 {
		return nil
	}
	return l.browsers[len(l.browsers)-1]
}

// Browser is a fake browser.Browser.
type Browser struct {
	mu        sync.Mutex
	connected bool
	closed    int
	handlers  []func()
	pages     []*Page
	newPage   func() *Page

	LaunchOptions browser.LaunchOptions
	// PageErr, when set, fails NewPage.
	PageErr error
	// PageDelay blocks NewPage before the page is created.
	PageDelay time.Duration
}

// NewPage returns a page from the launcher's factory.
func (b *Browser) NewPage(opts browser.PageOptions) (browser.Page, error) {
	b.mu.Lock()
	delay := b.PageDelay
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil, browser.ErrClosed
	}
	if b.PageErr != nil {
		return nil, b.PageErr
	}
	var p *Page
	if b.newPage != nil {
		p = b.newPage()
	} else {
		p = &Page{}
	}
	p.Options = opts
	b.pages = append(b.pages, p)
	return p, nil
}

// IsConnected reports whether the browser has not been closed or crashed.
func (b *Browser) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// OnDisconnected registers fn for Close and Crash.
func (b *Browser) OnDisconnected(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

// Close disconnects the browser and runs the disconnect handlers.
func (b *Browser) Close() error {
	b.mu.Lock()
	b.closed++
	wasConnected := b.connected
	b.connected = false
	handlers := append([]func(){}, b.handlers...)
	b.mu.Unlock()

	if wasConnected {
		for _, fn := range handlers {
			fn()
		}
	}
	return nil
}

// Crash simulates the process dying.
func (b *Browser) Crash() {
	_ = b.Close()
}

// Closed returns how many times Close was called.
func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Pages returns every page opened on the browser.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Page, len(b.pages))
	copy(out, b.pages)
	return out
}

// Rule answers Evaluate calls whose expression contains Contains.
type Rule struct {
	Contains string
	Result   any
	Err      error
}

// Page is a fake browser.Page. Zero value answers navigation with 200 and
// every evaluation with nil.
type Page struct {
	mu       sync.Mutex
	closed   bool
	scripted []bool
	gotos    []string

	Options browser.PageOptions

	// Response overrides the navigation response; NoResponse returns nil.
	Response   *browser.Response
	NoResponse bool
	GotoErr    error
	// GotoDelay blocks Goto, e.g. to exercise stage timeouts.
	GotoDelay time.Duration
	// ScriptingDelay blocks SetScriptingEnabled.
	ScriptingDelay time.Duration

	ScreenshotData []byte
	ScreenshotErr  error

	// Rules are matched in order against Evaluate expressions.
	Rules []Rule

	HTML string
}

// Goto records url and returns the configured response.
func (p *Page) Goto(url string, opts browser.GotoOptions) (*browser.Response, error) {
	if p.GotoDelay > 0 {
		time.Sleep(p.GotoDelay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, browser.ErrClosed
	}
	p.gotos = append(p.gotos, url)
	if p.GotoErr != nil {
		return nil, p.GotoErr
	}
	if p.NoResponse {
		return nil, nil
	}
	if p.Response != nil {
		r := *p.Response
		return &r, nil
	}
	return &browser.Response{URL: url, Status: 200}, nil
}

// Screenshot returns ScreenshotData, or a small placeholder image.
func (p *Page) Screenshot(fullPage bool, timeout time.Duration) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, browser.ErrClosed
	}
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	if p.ScreenshotData != nil {
		return p.ScreenshotData, nil
	}
	return []byte("\x89PNG\r\n\x1a\nfake"), nil
}

// Evaluate answers from the first matching rule.
func (p *Page) Evaluate(expression string, args ...any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, browser.ErrClosed
	}
	for _, r := range p.Rules {
		if strings.Contains(expression, r.Contains) {
			return r.Result, r.Err
		}
	}
	return nil, nil
}

// Reload succeeds unless the page is closed.
func (p *Page) Reload(opts browser.GotoOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrClosed
	}
	return nil
}

// SetScriptingEnabled records the toggle.
func (p *Page) SetScriptingEnabled(enabled bool) error {
	if p.ScriptingDelay > 0 {
		time.Sleep(p.ScriptingDelay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrClosed
	}
	p.scripted = append(p.scripted, enabled)
	return nil
}

// Content returns HTML.
func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", browser.ErrClosed
	}
	return p.HTML, nil
}

// Close marks the page closed. Closing twice is an error.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("page already closed")
	}
	p.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// ScriptingToggles returns the sequence of SetScriptingEnabled values.
func (p *Page) ScriptingToggles() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.scripted...)
}

// Visited returns every URL passed to Goto.
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.gotos...)
}
