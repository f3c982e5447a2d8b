package session

import "sync"

// requestTokens hands out increasing tokens per key so that a slow
// response can tell whether a newer request for the same key exists.
type requestTokens struct {
	mu     sync.Mutex
	next   uint64
	latest map[string]uint64
}

func (r *requestTokens) begin(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest == nil {
		r.latest = make(map[string]uint64)
	}
	r.next++
	r.latest[key] = r.next
	return r.next
}

func (r *requestTokens) isLatest(key string, token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest[key] == token
}
