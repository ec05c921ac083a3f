package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"
)

type EphemeralMode string

const (
	EphemeralMemory EphemeralMode = "memory"
	EphemeralRedis  EphemeralMode = "redis"
)

var errEphemeralUnavailable = errors.New("ephemeral store unavailable")

// EphemeralStore is a minimal key-value interface used for short-lived link state.
// Implementations should honor TTL on Set and treat missing keys as (found=false, err=nil).
// Take must return and delete a key atomically so a reset ticket can be used once.
type EphemeralStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Take(ctx context.Context, key string) ([]byte, bool, error)
}

func (s *Service) WithEphemeralStore(store EphemeralStore, mode EphemeralMode) *Service {
	if mode == "" {
		mode = EphemeralMemory
	}
	s.ephemeralStore = store
	s.ephemeralMode = mode
	return s
}

// HasEphemeralStore reports whether a ticket store has been installed.
func (s *Service) HasEphemeralStore() bool { return s.useEphemeralStore() }

func (s *Service) EphemeralMode() EphemeralMode {
	if s == nil || s.ephemeralMode == "" {
		return EphemeralMemory
	}
	return s.ephemeralMode
}

// IsDevEnvironment reports whether the current ENV/APP_ENV/ENVIRONMENT is non-production.
func IsDevEnvironment() bool {
	env := ""
	for _, k := range []string{"ENV", "APP_ENV", "ENVIRONMENT"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			env = strings.ToLower(v)
			break
		}
	}
	switch env {
	case "prod", "production":
		return false
	default:
		return true
	}
}

func (s *Service) useEphemeralStore() bool {
	return s != nil && s.ephemeralStore != nil
}

func (s *Service) ephemSetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.useEphemeralStore() {
		return errEphemeralUnavailable
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.ephemeralStore.Set(ctx, key, b, ttl)
}

func (s *Service) ephemTakeJSON(ctx context.Context, key string, out any) (bool, error) {
	if !s.useEphemeralStore() {
		return false, errEphemeralUnavailable
	}
	b, ok, err := s.ephemeralStore.Take(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return true, json.Unmarshal(b, out)
}
