package state

import (
	"strings"
	"sync"
	"time"

	contractx "github.com/chatcart/chatcart/agent/contract"
)

// Sessions is the per-session access contract used by the orchestrator.
// Acquire blocks until the session is free, so turns for the same session
// are processed strictly one at a time; distinct sessions proceed in
// parallel.
type Sessions interface {
	Acquire(sessionID string) (*Session, func(), error)
	Delete(sessionID string)
}

// Registry is the in-memory session store. Sessions are volatile: there is
// no persistence across restarts.
type Registry struct {
	catalog contractx.Catalog
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	mu      sync.Mutex
	session *Session
}

func NewRegistry(catalog contractx.Catalog) *Registry {
	return &Registry{
		catalog: catalog,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

var _ Sessions = (*Registry)(nil)

// Acquire returns the session for sessionID, creating it on first use, with
// the session's turn lock held. The returned release func must be called
// when the turn completes.
func (r *Registry) Acquire(sessionID string) (*Session, func(), error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, nil, ErrInvalidSessionID
	}

	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		entry = &registryEntry{session: NewSession(id, r.catalog, r.now())}
		r.entries[id] = entry
	}
	r.mu.Unlock()

	entry.mu.Lock()
	return entry.session, entry.mu.Unlock, nil
}

// Delete drops a session. Intended for hosts that know a conversation ended.
func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	delete(r.entries, strings.TrimSpace(sessionID))
	r.mu.Unlock()
}
