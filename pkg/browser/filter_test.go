package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResourceFilter(t *testing.T) {
	f := DefaultResourceFilter()

	tests := []struct {
		name         string
		resourceType string
		url          string
		want         bool
	}{
		{name: "font", resourceType: "font", url: "https://cdn.example.com/inter.woff2", want: true},
		{name: "font uppercase", resourceType: "FONT", url: "https://cdn.example.com/inter.woff2", want: true},
		{name: "document", resourceType: "document", url: "https://example.com/", want: false},
		{name: "stylesheet", resourceType: "stylesheet", url: "https://example.com/site.css", want: false},
		{name: "google analytics", resourceType: "script", url: "https://www.google-analytics.com/analytics.js", want: true},
		{name: "tag manager", resourceType: "script", url: "https://www.googletagmanager.com/gtm.js?id=1", want: true},
		{name: "facebook", resourceType: "image", url: "https://facebook.com/tr?id=1", want: true},
		{name: "twitter", resourceType: "script", url: "https://platform.twitter.com/widgets.js", want: true},
		{name: "doubleclick", resourceType: "xhr", url: "https://ad.doubleclick.net/x", want: true},
		{name: "analytics host", resourceType: "script", url: "https://analytics.example.com/a.js", want: true},
		{name: "plain cdn", resourceType: "script", url: "https://cdn.jsdelivr.net/npm/x.js", want: false},
		{name: "bad url", resourceType: "script", url: "://bad", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Blocks(tt.resourceType, tt.url))
		})
	}
}

func TestCustomResourceFilter(t *testing.T) {
	f, err := NewResourceFilter([]string{"media"}, []string{"*.ads.example"})
	require.NoError(t, err)

	assert.True(t, f.Blocks("media", "https://example.com/v.mp4"))
	assert.True(t, f.Blocks("script", "https://x.ads.example/a.js"))
	assert.False(t, f.Blocks("font", "https://example.com/f.woff"))
	assert.Equal(t, []string{"*.ads.example"}, f.Patterns())
}

func TestNilFilterAllowsEverything(t *testing.T) {
	var f *ResourceFilter
	assert.False(t, f.Blocks("font", "https://example.com/"))
}

func TestInvalidHostPattern(t *testing.T) {
	_, err := NewResourceFilter(nil, []string{"[unclosed"})
	assert.Error(t, err)
}
