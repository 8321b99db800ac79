package extract_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/mimic/pkg/browser/browsertest"
	"github.com/entrhq/mimic/pkg/extract"
	"github.com/entrhq/mimic/pkg/extract/extracttest"
	"github.com/entrhq/mimic/pkg/types"
)

func fakePage(t *testing.T, elements int) *browsertest.Page {
	t.Helper()
	return extracttest.Page(elements)
}

func TestExtractBuildsSnapshot(t *testing.T) {
	e := extract.New(extract.Options{}, nil)
	page := fakePage(t, 10)

	snap, err := e.Extract(context.Background(), page, "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, 10, snap.PageMetrics.DOMElements)
	assert.Equal(t, int64(2048), snap.PageMetrics.ResourceSize)
	assert.Equal(t, 10, snap.DOMTree.Count())
	assert.Equal(t, "Hello", snap.DOMTree.TextContent)

	require.Len(t, snap.ColorPalette, 2)
	assert.Equal(t, "#111111", snap.ColorPalette[0].Hex)
	assert.Equal(t, 2, snap.ColorPalette[0].Frequency)

	require.Len(t, snap.Typography, 1)
	assert.Equal(t, "", snap.Typography[0].LetterSpacing)

	require.Len(t, snap.LayoutPatterns, 1)
	assert.Equal(t, "main.wrap", snap.LayoutPatterns[0].Selector)

	require.Len(t, snap.SemanticSections, 1)
	assert.Equal(t, "main:nth-of-type(1)", snap.SemanticSections[0].Selector)

	assert.Equal(t, types.DocumentInfo{Title: "Fixture", Lang: "en"}, snap.Document)

	assert.Equal(t, []bool{false, true}, page.ScriptingToggles(), "scripting disabled for the reload then restored")
}

func TestDOMGuardBoundary(t *testing.T) {
	const max = 50
	e := extract.New(extract.Options{MaxElements: max}, nil)

	_, err := e.Extract(context.Background(), fakePage(t, max), "https://example.com/")
	assert.NoError(t, err, "exactly max elements succeeds")

	_, err = e.Extract(context.Background(), fakePage(t, max+1), "https://example.com/")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.CodeDOMTooLarge))
	assert.Equal(t, types.KindOversizeResource, types.KindOf(err))
}

func TestDOMGuardRunsBeforeOtherProbes(t *testing.T) {
	e := extract.New(extract.Options{MaxElements: 5}, nil)
	page := fakePage(t, 6)
	// Any other probe failing would surface as a non-guard error.
	for i := range page.Rules {
		if page.Rules[i].Contains != extract.ProbeMetrics {
			page.Rules[i].Err = errors.New("probe should not run")
		}
	}

	_, err := e.Extract(context.Background(), page, "https://example.com/")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.CodeDOMTooLarge))
}

func TestResourceGuard(t *testing.T) {
	e := extract.New(extract.Options{MaxResourceBytes: 1024}, nil)
	_, err := e.Extract(context.Background(), fakePage(t, 10), "https://example.com/")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.CodeResourceTooLarge))
}

func TestSnapshotSizeGuard(t *testing.T) {
	e := extract.New(extract.Options{MaxSnapshotBytes: 64}, nil)
	_, err := e.Extract(context.Background(), fakePage(t, 10), "https://example.com/")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.CodeResourceTooLarge))
}

func TestSubExtractionErrorNamesStage(t *testing.T) {
	e := extract.New(extract.Options{}, nil)
	page := fakePage(t, 10)
	for i := range page.Rules {
		if page.Rules[i].Contains == extract.ProbeTypography {
			page.Rules[i].Err = errors.New("execution context destroyed")
		}
	}

	_, err := e.Extract(context.Background(), page, "https://example.com/")
	require.Error(t, err)
	assert.Equal(t, types.KindInternal, types.KindOf(err))
	assert.Contains(t, err.Error(), "typography")
}

func TestProbeMustReturnJSON(t *testing.T) {
	e := extract.New(extract.Options{}, nil)
	page := fakePage(t, 10)
	page.Rules[0].Result = 42

	_, err := e.Extract(context.Background(), page, "https://example.com/")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "metrics"), err.Error())
}

func TestExtractTimeout(t *testing.T) {
	e := extract.New(extract.Options{Timeout: 10 * time.Millisecond}, nil)
	page := fakePage(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := &slowPage{Page: page, delay: 200 * time.Millisecond}
	_, err := e.Extract(ctx, slow, "https://example.com/")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.CodeTimeout), fmt.Sprintf("%v", err))
}

func TestExtractTimesOutOnStuckScriptingToggle(t *testing.T) {
	e := extract.New(extract.Options{Timeout: 20 * time.Millisecond}, nil)
	page := fakePage(t, 10)
	page.ScriptingDelay = time.Second

	start := time.Now()
	_, err := e.Extract(context.Background(), page, "https://example.com/")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.CodeTimeout), fmt.Sprintf("%v", err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

type slowPage struct {
	*browsertest.Page
	delay time.Duration
}

func (p *slowPage) Evaluate(expression string, args ...any) (any, error) {
	time.Sleep(p.delay)
	return p.Page.Evaluate(expression, args...)
}
