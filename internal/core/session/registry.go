// Package session holds the in-memory map of identities to their live
// connection. It is the only source of truth for who is online.
package session

import (
	"sync"

	"github.com/directchat/chat-server/internal/core/ports"
)

// Registry maps an identity to at most one live connection.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]ports.Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]ports.Conn)}
}

// Register binds conn to identity and returns the connection it replaced, if
// any. The caller owns closing the returned connection.
func (r *Registry) Register(identity string, conn ports.Conn) ports.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[identity]
	r.conns[identity] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// Unregister removes identity only while conn is still the registered
// connection, so a late disconnect cannot evict a newer session. It reports
// whether an entry was removed.
func (r *Registry) Unregister(identity string, conn ports.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[identity]
	if !ok || current != conn {
		return false
	}
	delete(r.conns, identity)
	return true
}

// Lookup returns the live connection for identity, or nil when offline.
func (r *Registry) Lookup(identity string) ports.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[identity]
}

func (r *Registry) IsOnline(identity string) bool {
	return r.Lookup(identity) != nil
}

// Range calls fn for every live connection until fn returns false. It iterates
// over a snapshot, so fn may call back into the registry.
func (r *Registry) Range(fn func(identity string, conn ports.Conn) bool) {
	if fn == nil {
		return
	}

	type entry struct {
		identity string
		conn     ports.Conn
	}

	r.mu.RLock()
	snapshot := make([]entry, 0, len(r.conns))
	for id, c := range r.conns {
		snapshot = append(snapshot, entry{identity: id, conn: c})
	}
	r.mu.RUnlock()

	for _, e := range snapshot {
		if !fn(e.identity, e.conn) {
			return
		}
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
