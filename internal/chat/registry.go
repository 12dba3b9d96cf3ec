package chat

import (
	"sort"
	"sync"
)

// Handle is one live, writable connection. Send must not block; a closed or saturated
// handle reports an error. Implementations must be comparable (pointer types).
type Handle interface {
	Send(payload []byte) error
}

// Registry maps a user id to its single live handle. The last registration wins and the
// superseded handle is left as is.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Handle)}
}

func (r *Registry) Register(userID string, h Handle) {
	r.mu.Lock()
	r.conns[userID] = h
	r.mu.Unlock()
}

// Unregister removes the entry only while it still points at h, so a superseded
// connection closing late cannot evict its replacement.
func (r *Registry) Unregister(userID string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[userID]
	if !ok || current != h {
		return false
	}
	delete(r.conns, userID)
	return true
}

func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	h, ok := r.conns[userID]
	r.mu.RUnlock()
	return h, ok
}

// Send delivers payload to the user's live handle. False means offline or a dead handle.
func (r *Registry) Send(userID string, payload []byte) bool {
	h, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	return h.Send(payload) == nil
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) Online() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
