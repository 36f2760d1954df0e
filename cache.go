package orderlens

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultCacheTTL is how long a filtered result set stays readable.
const DefaultCacheTTL = 600 * time.Second

// CacheBackend stores opaque values under keys until an absolute deadline.
// Get must report entries past their deadline as absent.
type CacheBackend interface {
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// ResultCache snapshots filtered result sets under unguessable handles.
// Entries are written once and expire lazily.
type ResultCache struct {
	backend CacheBackend
	ttl     time.Duration
	now     func() time.Time
}

type CacheOption func(*ResultCache)

// WithClock replaces the time source used to compute and check expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *ResultCache) { c.now = now }
}

// WithTTL overrides DefaultCacheTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *ResultCache) { c.ttl = ttl }
}

func NewResultCache(backend CacheBackend, opts ...CacheOption) *ResultCache {
	c := &ResultCache{backend: backend, ttl: DefaultCacheTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot stores a copy of rows and returns its handle.
func (c *ResultCache) Snapshot(ctx context.Context, rows []Order) (string, error) {
	data, err := EncodeSnapshot(rows)
	if err != nil {
		return "", err
	}
	handle := uuid.New().String()
	if err := c.backend.Set(ctx, handle, data, c.now().Add(c.ttl)); err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	return handle, nil
}

// Fetch returns the rows stored under handle, or ErrCacheMiss when the handle
// is unknown or has expired.
func (c *ResultCache) Fetch(ctx context.Context, handle string) ([]Order, error) {
	if handle == "" {
		return nil, ErrCacheMiss
	}
	data, ok, err := c.backend.Get(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return nil, ErrCacheMiss
	}
	return DecodeSnapshot(data)
}
