package core

import (
	"strings"
	"time"
)

// Config is passed explicitly to NewService; nothing is read from the environment here.
type Config struct {
	// ProviderURL is the base URL of the GoTrue-compatible auth API (e.g. https://xyz.supabase.co/auth/v1).
	ProviderURL string
	// ProviderKey is the public (anon) API key sent with every provider call.
	ProviderKey string

	// LoginURL is where the user is sent after a successful confirmation or reset.
	LoginURL string
	// RedirectDelay is the fixed delay before that navigation. Defaults to 3s.
	RedirectDelay time.Duration
	// ResetTicketTTL bounds the window between validating a recovery link and submitting
	// the new password. Defaults to 15 minutes.
	ResetTicketTTL time.Duration
}

// ConfigError reports missing configuration. It names variables, never values.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "linkconfirm: missing configuration: " + strings.Join(e.Missing, ", ")
}

// Validate returns a *ConfigError when a required value is absent.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ProviderURL) == "" {
		missing = append(missing, "provider_url")
	}
	if strings.TrimSpace(c.ProviderKey) == "" {
		missing = append(missing, "provider_key")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

func (c Config) defaulted() Config {
	out := c
	if strings.TrimSpace(out.LoginURL) == "" {
		out.LoginURL = "/login"
	}
	if out.RedirectDelay <= 0 {
		out.RedirectDelay = 3 * time.Second
	}
	if out.ResetTicketTTL <= 0 {
		out.ResetTicketTTL = 15 * time.Minute
	}
	return out
}
