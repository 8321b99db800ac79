package urlguard

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "public https", url: "https://example.com/page"},
		{name: "public http with port", url: "http://example.com:8080/"},
		{name: "public ip", url: "http://93.184.216.34/"},
		{name: "empty", url: "", wantErr: true},
		{name: "whitespace", url: "   ", wantErr: true},
		{name: "localhost", url: "http://localhost:3000", wantErr: true},
		{name: "localhost uppercase", url: "http://LOCALHOST/", wantErr: true},
		{name: "subdomain of localhost", url: "http://app.localhost/", wantErr: true},
		{name: "unspecified", url: "http://0.0.0.0/", wantErr: true},
		{name: "loopback", url: "http://127.0.0.1/", wantErr: true},
		{name: "loopback range", url: "http://127.8.9.10/", wantErr: true},
		{name: "private 10", url: "http://10.1.2.3/", wantErr: true},
		{name: "private 172.16", url: "http://172.16.0.1/", wantErr: true},
		{name: "private 172.31", url: "http://172.31.255.255/", wantErr: true},
		{name: "public 172.32", url: "http://172.32.0.1/"},
		{name: "private 192.168", url: "http://192.168.1.1/", wantErr: true},
		{name: "link local", url: "http://169.254.169.254/latest/meta-data", wantErr: true},
		{name: "ipv6 loopback", url: "http://[::1]:8080/", wantErr: true},
		{name: "ipv6 unique local", url: "http://[fc00::1]/", wantErr: true},
		{name: "ipv6 link local", url: "http://[fe80::1]/", wantErr: true},
		{name: "data url", url: "data:text/html,<h1>hi</h1>", wantErr: true},
		{name: "file url", url: "file:///etc/passwd", wantErr: true},
		{name: "ftp", url: "ftp://example.com/", wantErr: true},
		{name: "javascript", url: "javascript:alert(1)", wantErr: true},
		{name: "relative", url: "/just/a/path", wantErr: true},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", MaxURLLength), wantErr: true},
		{name: "loopback as integer", url: "http://2130706433/", wantErr: true},
		{name: "loopback as hex", url: "http://0x7f000001/", wantErr: true},
		{name: "loopback shortened", url: "http://127.1/", wantErr: true},
		{name: "loopback octal", url: "http://0177.0.0.1/", wantErr: true},
		{name: "unspecified as zero", url: "http://0/", wantErr: true},
		{name: "private mixed radix", url: "http://0xa.0x1.2/", wantErr: true},
		{name: "metadata as integer", url: "http://2852039166/", wantErr: true},
		{name: "localhost trailing dot", url: "http://localhost./", wantErr: true},
		{name: "malformed numeric host", url: "http://1.2.3.4.5/", wantErr: true},
		{name: "octal digit out of range", url: "http://08.0.0.1/", wantErr: true},
		{name: "public as integer", url: "http://1572395042/"},
		{name: "public shortened", url: "http://93.12113954/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.url)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var v *Violation
			assert.True(t, errors.As(err, &v), "expected *Violation, got %T", err)
			assert.NotEmpty(t, v.Reason)
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	assert.True(t, IsPrivateIP(net.ParseIP("10.0.0.1")))
	assert.True(t, IsPrivateIP(net.ParseIP("::")))
	assert.False(t, IsPrivateIP(net.ParseIP("8.8.8.8")))
	assert.False(t, IsPrivateIP(net.ParseIP("2606:4700::1111")))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "adds root path", in: "https://x.com", want: "https://x.com/"},
		{name: "strips utm", in: "https://x.com?utm_source=a", want: "https://x.com/"},
		{name: "strips all tracking", in: "https://x.com/p?fbclid=1&gclid=2&ref=hn&_ga=3&utm_campaign=c&utm_medium=m&utm_term=t&utm_content=z", want: "https://x.com/p"},
		{name: "sorts query", in: "https://x.com/p?b=2&a=1", want: "https://x.com/p?a=1&b=2"},
		{name: "keeps content params", in: "https://x.com/p?id=7&utm_source=a", want: "https://x.com/p?id=7"},
		{name: "drops fragment", in: "https://x.com/p#section", want: "https://x.com/p"},
		{name: "lowercases host and scheme", in: "HTTPS://Example.COM/Path", want: "https://example.com/Path"},
		{name: "drops default port", in: "https://x.com:443/", want: "https://x.com/"},
		{name: "keeps custom port", in: "http://x.com:8080/", want: "http://x.com:8080/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "2130706433", want: "127.0.0.1"},
		{in: "0x7F000001", want: "127.0.0.1"},
		{in: "127.1", want: "127.0.0.1"},
		{in: "127.0.1", want: "127.0.0.1"},
		{in: "0177.0.0.1", want: "127.0.0.1"},
		{in: "0x.0x.0x.0x", want: "0.0.0.0"},
		{in: "192.168.0.1.", want: "192.168.0.1"},
		{in: "Example.COM", want: "example.com"},
		{in: "v1.example", want: "v1.example"},
		{in: "::1", want: "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonicalHost(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"1.2.3.4.5", "256.0.0.1", "1.2.65536", "4294967296", "09", "a.1"} {
		_, err := CanonicalHost(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeCanonicalizesNumericHosts(t *testing.T) {
	got, err := Normalize("http://1572395042:80/")
	require.NoError(t, err)
	assert.Equal(t, "http://93.184.216.34/", got)
}

func TestNormalizeIsStable(t *testing.T) {
	first, err := Normalize("https://x.com/a?z=1&y=2#top")
	require.NoError(t, err)
	second, err := Normalize(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizeRejectsHostless(t *testing.T) {
	_, err := Normalize("not a url")
	assert.Error(t, err)
}
