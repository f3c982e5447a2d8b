package substrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(urls ...string) *Client {
	pool := &FailoverPool{}
	for _, url := range urls {
		pool.endpoints = append(pool.endpoints, &endpointStatus{
			url:     url,
			node:    &node{},
			healthy: true,
		})
	}
	return &Client{
		pool:           pool,
		releasePallet:  DefaultReleasePallet,
		releaseStorage: DefaultReleaseStorage,
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failure", func(t *testing.T) {
		c := newTestClient("ws://a")
		calls := 0

		err := c.retryWithBackoff(ctx, func(ctx context.Context, n *node) error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.True(t, c.Health()["ws://a"], "lone endpoint stays in rotation")
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		c := newTestClient("ws://a")
		boom := errors.New("no such pallet")
		calls := 0

		err := c.retryWithBackoff(ctx, func(ctx context.Context, n *node) error {
			calls++
			return permanent(boom)
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("fails over to the next endpoint", func(t *testing.T) {
		c := newTestClient("ws://a", "ws://b")
		var seen []*node

		err := c.retryWithBackoff(ctx, func(ctx context.Context, n *node) error {
			seen = append(seen, n)
			if len(seen) == 1 {
				return errors.New("node a down")
			}
			return nil
		})

		require.NoError(t, err)
		require.Len(t, seen, 2)
		assert.NotSame(t, seen[0], seen[1])
		assert.Equal(t, map[string]bool{"ws://a": false, "ws://b": true}, c.Health())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		c := newTestClient("ws://a")
		calls := 0

		err := c.retryWithBackoff(ctx, func(ctx context.Context, n *node) error {
			calls++
			return errors.New("still down")
		})

		assert.ErrorContains(t, err, "failed after 3 retries")
		assert.Equal(t, maxRetries, calls)
	})
}

func TestCallContext(t *testing.T) {
	t.Run("returns the call result", func(t *testing.T) {
		boom := errors.New("boom")
		assert.ErrorIs(t, callContext(context.Background(), func() error { return boom }), boom)
	})

	t.Run("returns early when context ends", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		release := make(chan struct{})
		defer close(release)

		err := callContext(ctx, func() error {
			<-release
			return nil
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewFailoverPoolRequiresEndpoints(t *testing.T) {
	_, err := NewFailoverPool(context.Background(), nil)
	assert.Error(t, err)
}

func TestWithReleaseStorage(t *testing.T) {
	c := newTestClient("ws://a")

	WithReleaseStorage("Vesting", "")(c)
	assert.Equal(t, "Vesting", c.releasePallet)
	assert.Equal(t, DefaultReleaseStorage, c.releaseStorage)

	WithReleaseStorage("", "VestingSchedules")(c)
	assert.Equal(t, "VestingSchedules", c.releaseStorage)
}
