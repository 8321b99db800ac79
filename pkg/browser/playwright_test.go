package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/mimic/pkg/browser"
	"github.com/entrhq/mimic/pkg/logging"
	"github.com/entrhq/mimic/pkg/types"
)

const integrationPage = `<!doctype html>
<html lang="en"><head><title>Fixture</title></head>
<body style="background:#0f172a;color:#f8fafc;font-family:Inter,sans-serif">
<header><nav><a href="/">Home</a></nav></header>
<main><h1>Hello</h1><p>Rendered by a real browser.</p></main>
</body></html>`

func TestPlaywrightCaptureIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, integrationPage)
	}))
	defer srv.Close()

	launcher := browser.NewPlaywrightLauncher(false)
	defer launcher.Stop()

	pool := browser.NewPool(launcher, browser.DefaultPoolOptions(), logging.Discard())
	defer pool.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	lease, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer lease.Release()
	assert.Equal(t, 1, pool.RefCount())

	page, err := lease.NewPage(ctx)
	require.NoError(t, err)
	defer page.Close()

	capturer := browser.NewCapturer(browser.DefaultCaptureOptions(), logging.Discard())

	res, err := capturer.Capture(ctx, page, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.NotEmpty(t, res.Screenshot)
	assert.Positive(t, res.PageWidth)
	assert.Positive(t, res.PageHeight)

	_, err = capturer.Capture(ctx, page, srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.CodeUnreachableURL))
}
