package memorystore

import (
	"context"
	"sync"
	"time"
)

type kvItem struct {
	value   []byte
	expires time.Time
}

// KV is a simple in-memory key-value store with TTL support.
// It is only safe for single-process deployments: reset tickets issued by one
// instance are invisible to another.
type KV struct {
	mu    sync.Mutex
	items map[string]kvItem
	now   func() time.Time
	sets  int
}

func NewKV() *KV {
	return &KV{items: make(map[string]kvItem), now: time.Now}
}

func (k *KV) live(key string) (kvItem, bool) {
	it, ok := k.items[key]
	if !ok {
		return kvItem{}, false
	}
	if !it.expires.IsZero() && k.now().After(it.expires) {
		delete(k.items, key)
		return kvItem{}, false
	}
	return it, true
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), it.value...), true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = k.now().Add(ttl)
	}
	k.items[key] = kvItem{value: append([]byte(nil), value...), expires: exp}
	k.sets++
	if k.sets%256 == 0 {
		k.sweepLocked()
	}
	return nil
}

func (k *KV) Del(ctx context.Context, key string) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.items, key)
	return nil
}

// Take returns the value and removes the key in one step.
func (k *KV) Take(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.live(key)
	if !ok {
		return nil, false, nil
	}
	delete(k.items, key)
	return it.value, true, nil
}

// Sweep drops expired entries. Set also sweeps every 256 writes; otherwise
// expired keys are only removed when read.
func (k *KV) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sweepLocked()
}

func (k *KV) sweepLocked() int {
	n := 0
	now := k.now()
	for key, it := range k.items {
		if !it.expires.IsZero() && now.After(it.expires) {
			delete(k.items, key)
			n++
		}
	}
	return n
}
