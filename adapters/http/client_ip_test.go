package authhttp

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.7:5555"
	require.Equal(t, "203.0.113.7", DefaultClientIP()(r))

	r.RemoteAddr = "10.0.0.2:5555"
	require.Empty(t, DefaultClientIP()(r))
}

func TestClientIPFromForwardedHeaders(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", " ", "127.0.0.1"})
	require.NoError(t, err)
	require.Len(t, trusted, 2)
	fn := ClientIPFromForwardedHeaders(trusted)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.1.2.3")
	require.Equal(t, "198.51.100.4", fn(r))

	r.Header.Set("CF-Connecting-IP", "198.51.100.9")
	require.Equal(t, "198.51.100.9", fn(r))

	// Untrusted peers cannot spoof the header.
	r.RemoteAddr = "203.0.113.7:443"
	require.Equal(t, "203.0.113.7", fn(r))

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	require.Error(t, err)
}
