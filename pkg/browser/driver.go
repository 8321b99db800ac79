// Package browser owns the headless browser used to render pages: a thin
// driver abstraction over the automation library, a reference-counted pool
// around a single browser process, a declarative resource filter and the
// navigation/screenshot capture stage.
//
// The rest of the module depends only on the Launcher, Browser and Page
// interfaces, so tests substitute the in-memory fakes from browsertest.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout reports that a browser operation exceeded its timeout.
	ErrTimeout = errors.New("browser operation timed out")

	// ErrNavigation reports a failed navigation (DNS, refused, net::ERR_*).
	ErrNavigation = errors.New("navigation failed")

	// ErrClosed reports use of a page or browser after Close.
	ErrClosed = errors.New("browser closed")
)

// WaitCondition is the lifecycle event navigation waits for.
type WaitCondition string

const (
	WaitLoad             WaitCondition = "load"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitNetworkIdle      WaitCondition = "networkidle"
)

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// LaunchOptions configures a browser process launch.
type LaunchOptions struct {
	Headless bool
	Args     []string
	Timeout  time.Duration
}

// PageOptions configures a new page.
type PageOptions struct {
	Viewport  Viewport
	UserAgent string

	// Filter, when set, aborts matching subresource requests.
	Filter *ResourceFilter
}

// GotoOptions configures navigation and reload.
type GotoOptions struct {
	Timeout   time.Duration
	WaitUntil WaitCondition
}

// Response is the main-document response of a navigation.
type Response struct {
	URL    string
	Status int
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is one running browser process.
type Browser interface {
	NewPage(opts PageOptions) (Page, error)
	IsConnected() bool
	// OnDisconnected registers fn to run when the process goes away.
	OnDisconnected(fn func())
	Close() error
}

// Page is one isolated tab.
//
// Goto returns a nil Response when the navigation produced none (for
// example about:blank). Timeouts surface as ErrTimeout and network
// failures as ErrNavigation.
type Page interface {
	Goto(url string, opts GotoOptions) (*Response, error)
	Screenshot(fullPage bool, timeout time.Duration) ([]byte, error)
	Evaluate(expression string, args ...any) (any, error)
	Reload(opts GotoOptions) error
	SetScriptingEnabled(enabled bool) error
	Content() (string, error)
	Close() error
}

// Await runs fn on its own goroutine and returns its result, or ctx's
// error if ctx ends first. Browser calls block without a context, so this
// is how a stage deadline is imposed on them; an abandoned call finishes
// once its page is closed.
func Await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return AwaitOwned(ctx, fn, nil)
}

// AwaitOwned is Await for calls that create something the caller must
// close. When ctx ends first, discard receives the value the abandoned
// call eventually produces, so a late browser or page is not leaked.
func AwaitOwned[T any](ctx context.Context, fn func() (T, error), discard func(T)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		if discard != nil {
			go func() {
				if r := <-ch; r.err == nil {
					discard(r.v)
				}
			}()
		}
		var zero T
		return zero, ctx.Err()
	}
}
