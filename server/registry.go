// File: server/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client registry for host-side fan-out. Owned by the Server, which adds a
// connection when its handshake completes and removes it on eviction. All
// operations are synchronized: the registry is commonly walked from
// goroutines outside the reactor loop.

package server

import (
	"sync"

	"github.com/momentics/reactor-ws/api"
)

// Registry tracks the handshaked connections of one server.
type Registry struct {
	mu    sync.RWMutex
	conns map[api.Conn]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[api.Conn]struct{})}
}

// Add inserts a connection.
func (r *Registry) Add(c api.Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// Remove deletes a connection. Unknown connections are ignored.
func (r *Registry) Remove(c api.Conn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

// Len returns the current connection count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ForEach invokes fn for every registered connection. The snapshot is taken
// under the lock; fn runs outside it, so it may send or close freely.
func (r *Registry) ForEach(fn func(api.Conn)) {
	r.mu.RLock()
	snapshot := make([]api.Conn, 0, len(r.conns))
	for c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()
	for _, c := range snapshot {
		fn(c)
	}
}
