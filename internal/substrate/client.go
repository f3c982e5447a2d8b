// Package substrate talks to Substrate nodes over WebSocket JSON-RPC and
// adapts their storage to the chain package's types.
package substrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matrixise/balance-lookup/internal/chain"
)

const (
	rpcTimeout    = 10 * time.Second
	maxRetries    = 3
	retryInterval = 500 * time.Millisecond

	DefaultReleasePallet  = "TimeRelease"
	DefaultReleaseStorage = "ReleaseSchedules"
)

// Client is a chain.Conn backed by one or more nodes of the same chain.
type Client struct {
	pool           *FailoverPool
	releasePallet  string
	releaseStorage string
}

var _ chain.Conn = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithReleaseStorage sets the pallet and storage item holding time-release
// schedules.
func WithReleaseStorage(pallet, storage string) Option {
	return func(c *Client) {
		if pallet != "" {
			c.releasePallet = pallet
		}
		if storage != "" {
			c.releaseStorage = storage
		}
	}
}

// NewClient connects to the given node endpoints with failover.
func NewClient(ctx context.Context, urls []string, opts ...Option) (*Client, error) {
	pool, err := NewFailoverPool(ctx, urls)
	if err != nil {
		return nil, err
	}

	c := &Client{
		pool:           pool,
		releasePallet:  DefaultReleasePallet,
		releaseStorage: DefaultReleaseStorage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dialer returns a chain.Dialer producing Clients configured with opts.
func Dialer(opts ...Option) chain.Dialer {
	return func(ctx context.Context, endpoints ...string) (chain.Conn, error) {
		return NewClient(ctx, endpoints, opts...)
	}
}

// Close closes all node connections.
func (c *Client) Close() {
	c.pool.Close()
}

// Health reports which endpoints are currently in rotation.
func (c *Client) Health() map[string]bool {
	return c.pool.Health()
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// callContext runs a blocking RPC call, returning early if ctx ends first.
func callContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryWithBackoff executes fn against a healthy node with exponential
// backoff, failing over to another endpoint after an error.
func (c *Client) retryWithBackoff(ctx context.Context, fn func(ctx context.Context, n *node) error) error {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := retryInterval * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			}
		}

		n, url, err := c.pool.get(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		err = fn(ctx, n)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return errors.Join(ctx.Err(), err)
		}

		lastErr = err
		// A lone endpoint stays in rotation; there is nothing to fail over to.
		if len(c.pool.endpoints) > 1 {
			c.pool.markUnhealthy(url, err)
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
