package substrate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

const (
	unhealthyDuration  = 5 * time.Minute // Cooldown before redialing
	healthCheckTimeout = 5 * time.Second
)

// node is an open connection plus the runtime metadata needed to build
// storage keys for it.
type node struct {
	api  *gsrpc.SubstrateAPI
	meta *types.Metadata
}

func (n *node) close() {
	if n != nil && n.api != nil {
		n.api.Client.Close()
	}
}

type dialResult struct {
	n   *node
	err error
}

type endpointStatus struct {
	url           string
	node          *node
	healthy       bool
	lastError     error
	lastErrorTime time.Time
	mu            sync.RWMutex
}

// FailoverPool keeps connections to several nodes of the same chain and
// hands out a healthy one, redialing failed nodes after a cooldown.
type FailoverPool struct {
	endpoints    []*endpointStatus
	currentIndex int
	mu           sync.Mutex
}

// dialNode connects to url and loads its metadata, giving up when ctx ends.
func dialNode(ctx context.Context, url string) (*node, error) {
	ch := make(chan dialResult, 1)

	go func() {
		api, err := gsrpc.NewSubstrateAPI(url)
		if err != nil {
			ch <- dialResult{nil, err}
			return
		}
		meta, err := api.RPC.State.GetMetadataLatest()
		if err != nil {
			api.Client.Close()
			ch <- dialResult{nil, fmt.Errorf("metadata: %w", err)}
			return
		}
		ch <- dialResult{&node{api: api, meta: meta}, nil}
	}()

	select {
	case r := <-ch:
		return r.n, r.err
	case <-ctx.Done():
		// Close whatever the dial eventually produces.
		go func() {
			if r := <-ch; r.n != nil {
				r.n.close()
			}
		}()
		return nil, ctx.Err()
	}
}

// NewFailoverPool dials every endpoint. At least one must answer.
func NewFailoverPool(ctx context.Context, urls []string) (*FailoverPool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one node endpoint is required")
	}

	fp := &FailoverPool{
		endpoints: make([]*endpointStatus, 0, len(urls)),
	}

	healthyCount := 0
	for _, url := range urls {
		dialCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		n, err := dialNode(dialCtx, url)
		cancel()

		fp.endpoints = append(fp.endpoints, &endpointStatus{
			url:           url,
			node:          n,
			healthy:       err == nil,
			lastError:     err,
			lastErrorTime: time.Now(),
		})

		if err == nil {
			healthyCount++
			slog.Info("Connected to node", "url", url)
		} else {
			slog.Warn("Failed to connect to node, will retry later", "url", url, "error", err)
		}
	}

	if healthyCount == 0 {
		fp.Close()
		return nil, fmt.Errorf("no healthy node endpoints available")
	}

	return fp, nil
}

// get returns a healthy node, failing over in round-robin order and
// redialing nodes whose cooldown has expired.
func (fp *FailoverPool) get(ctx context.Context) (*node, string, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	start := fp.currentIndex
	for i := range fp.endpoints {
		idx := (start + i) % len(fp.endpoints)
		ep := fp.endpoints[idx]

		ep.mu.RLock()
		healthy, n, url := ep.healthy, ep.node, ep.url
		canRetry := time.Since(ep.lastErrorTime) > unhealthyDuration
		ep.mu.RUnlock()

		if healthy && n != nil {
			fp.currentIndex = idx
			return n, url, nil
		}
		if healthy || !canRetry {
			continue
		}

		dialCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		fresh, err := dialNode(dialCtx, url)
		cancel()
		if err != nil {
			ep.mu.Lock()
			ep.lastError = err
			ep.lastErrorTime = time.Now()
			ep.mu.Unlock()
			continue
		}

		ep.mu.Lock()
		ep.node.close()
		ep.node = fresh
		ep.healthy = true
		ep.lastError = nil
		ep.mu.Unlock()

		fp.currentIndex = idx
		slog.Info("Reconnected to node", "url", url)
		return fresh, url, nil
	}

	return nil, "", fmt.Errorf("no healthy node endpoints available")
}

// markUnhealthy takes url out of rotation until its cooldown expires.
func (fp *FailoverPool) markUnhealthy(url string, err error) {
	for _, ep := range fp.endpoints {
		if ep.url != url {
			continue
		}
		ep.mu.Lock()
		ep.healthy = false
		ep.lastError = err
		ep.lastErrorTime = time.Now()
		ep.node.close()
		ep.node = nil
		ep.mu.Unlock()

		slog.Warn("Marked node endpoint as unhealthy, will retry after cooldown",
			"url", url,
			"error", err,
			"retry_after", unhealthyDuration)
		return
	}
}

// Health reports, per endpoint, whether it is currently in rotation.
func (fp *FailoverPool) Health() map[string]bool {
	out := make(map[string]bool, len(fp.endpoints))
	for _, ep := range fp.endpoints {
		ep.mu.RLock()
		out[ep.url] = ep.healthy
		ep.mu.RUnlock()
	}
	return out
}

// Close closes every connection.
func (fp *FailoverPool) Close() {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	for _, ep := range fp.endpoints {
		ep.mu.Lock()
		ep.node.close()
		ep.node = nil
		ep.mu.Unlock()
	}
}
