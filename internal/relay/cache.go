// Package relay memoizes the current relay chain block height, which is the
// time reference for time-release schedules and costs a fresh connection
// to the relay chain to obtain.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

const (
	// TTL is how long a fetched height is served without refetching.
	TTL = 60 * time.Second

	defaultRetries       = 2
	defaultRetryInterval = 500 * time.Millisecond
	defaultFetchTimeout  = 30 * time.Second
)

// DefaultEndpoints maps a parachain's address prefix to the relay chain it
// is attached to.
var DefaultEndpoints = map[uint16]string{
	42: "wss://rococo-rpc.polkadot.io",
	90: "wss://rpc.polkadot.io",
}

// ErrUnknownNetwork is returned when no relay endpoint is known for a prefix.
var ErrUnknownNetwork = errors.New("no relay chain endpoint for network prefix")

// FetchFunc connects to a relay chain endpoint and returns its latest height.
type FetchFunc func(ctx context.Context, endpoint string) (uint64, error)

// Entry is the single cache slot.
type Entry struct {
	Endpoint    string    `json:"endpoint,omitempty"`
	CachedAt    time.Time `json:"cachedAt"`
	BlockNumber uint64    `json:"blockNumber"`
	Valid       bool      `json:"valid"`
}

// Cache holds at most one relay height. Concurrent misses share one fetch.
type Cache struct {
	endpoints  map[uint16]string
	fetch      FetchFunc
	now        func() time.Time
	retries    uint64
	timeout    time.Duration
	newBackOff func() backoff.BackOff
	logger     *slog.Logger

	mu    sync.Mutex
	entry Entry
	gen   uint64 // bumped by Reset
	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRetries sets how many times a failed fetch is retried.
func WithRetries(n uint64) Option {
	return func(c *Cache) { c.retries = n }
}

// WithFetchTimeout bounds one shared fetch, retries included.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithBackOff sets the retry policy between fetch attempts.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Cache) { c.newBackOff = fn }
}

// WithLogger sets the logger used to report retries.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates a cache resolving relay endpoints from endpoints. A nil map
// uses DefaultEndpoints.
func New(endpoints map[uint16]string, fetch FetchFunc, opts ...Option) *Cache {
	if endpoints == nil {
		endpoints = DefaultEndpoints
	}
	c := &Cache{
		endpoints: endpoints,
		fetch:     fetch,
		now:       time.Now,
		retries:   defaultRetries,
		timeout:   defaultFetchTimeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = defaultRetryInterval
			return b
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the relay endpoint configured for prefix.
func (c *Cache) Endpoint(prefix uint16) (string, bool) {
	endpoint, ok := c.endpoints[prefix]
	return endpoint, ok
}

// CurrentBlock returns the relay height for the network identified by
// prefix, fetching it when the cached value is missing or older than TTL.
// A failed fetch leaves the cache untouched.
//
// Concurrent misses share one fetch that is detached from any single
// caller: cancelling ctx only stops this caller from waiting.
func (c *Cache) CurrentBlock(ctx context.Context, prefix uint16) (uint64, error) {
	endpoint, ok := c.Endpoint(prefix)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownNetwork, prefix)
	}
	if n, ok := c.fresh(endpoint); ok {
		return n, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(endpoint, func() (any, error) {
		if n, ok := c.fresh(endpoint); ok {
			return n, nil
		}

		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		fctx, cancel := context.WithTimeout(fetchCtx, c.timeout)
		defer cancel()
		n, err := c.fetchWithRetry(fctx, endpoint)
		if err != nil {
			return uint64(0), err
		}

		c.store(gen, endpoint, n)
		return n, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, fmt.Errorf("relay block from %s: %w", endpoint, res.Err)
		}
		return res.Val.(uint64), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// store fills the slot unless Reset ran since the fetch started.
func (c *Cache) store(gen uint64, endpoint string, n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.logger.Debug("Relay block discarded after reset", "endpoint", endpoint, "block", n)
		return
	}
	c.entry = Entry{Endpoint: endpoint, CachedAt: c.now(), BlockNumber: n, Valid: true}
	c.logger.Debug("Relay block refreshed", "endpoint", endpoint, "block", n)
}

// Snapshot returns the current slot.
func (c *Cache) Snapshot() Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

// Reset empties the slot so the next read fetches.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = Entry{}
	c.gen++
}

func (c *Cache) fresh(endpoint string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.entry.Valid || c.entry.Endpoint != endpoint {
		return 0, false
	}
	if c.now().Sub(c.entry.CachedAt) >= TTL {
		return 0, false
	}
	return c.entry.BlockNumber, true
}

func (c *Cache) fetchWithRetry(ctx context.Context, endpoint string) (uint64, error) {
	var n uint64
	op := func() error {
		var err error
		n, err = c.fetch(ctx, endpoint)
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Relay block fetch failed, retrying", "endpoint", endpoint, "error", err, "wait", wait)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.retries), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return 0, err
	}
	return n, nil
}
