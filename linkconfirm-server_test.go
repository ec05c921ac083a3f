package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-rails/linkconfirm/gotrue"
)

func TestLoadConfig_ProviderSettings(t *testing.T) {
	t.Setenv("GOTRUE_URL", "")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co/")
	t.Setenv("LINKCONFIRM_PROVIDER_TIMEOUT", "250ms")

	cfg := loadConfig()
	require.Equal(t, "https://proj.supabase.co/auth/v1", cfg.ProviderURL)
	require.Equal(t, 250*time.Millisecond, cfg.ProviderTimeout)

	t.Setenv("LINKCONFIRM_PROVIDER_TIMEOUT", "soon")
	require.Equal(t, 10*time.Second, loadConfig().ProviderTimeout)
}

func TestNewProviderClient_AppliesTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := newProviderClient(&config{ProviderURL: srv.URL, ProviderKey: "anon", ProviderTimeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := client.VerifyOTP(context.Background(), "abc", "signup")
	require.Error(t, err)
	var apiErr *gotrue.APIError
	require.False(t, errors.As(err, &apiErr))
	require.Less(t, time.Since(start), 5*time.Second)
}
