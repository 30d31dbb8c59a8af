package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

type regEntry struct {
	conn     core.Conn
	presence domain.Presence
}

// Registry owns the mapping from user identity to a single live
// transport handle. At most one connection per user: registering a
// second connection evicts and closes the first.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.UserID]*regEntry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.UserID]*regEntry),
	}
}

// Register binds the connection to the identity. A prior connection
// for the same identity is closed and replaced, never an error.
func (r *Registry) Register(id domain.UserID, conn core.Conn) (evicted bool) {
	r.mu.Lock()
	old, ok := r.entries[id]
	r.entries[id] = &regEntry{
		conn:     conn,
		presence: domain.Presence{UserID: id, Online: true},
	}
	r.mu.Unlock()

	if ok {
		old.conn.Close()
		log.Info().Str("module", "app.registry").Str("user", string(id)).Msg("evicted prior connection")
	}
	log.Info().Str("module", "app.registry").Str("user", string(id)).Msg("registered connection")
	return ok
}

// Deregister removes the mapping, but only while it still points at
// the given connection. An evicted connection arriving late is a
// no-op, which keeps the disconnect cascade idempotent.
func (r *Registry) Deregister(id domain.UserID, conn core.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.conn != conn {
		return false
	}
	delete(r.entries, id)
	log.Info().Str("module", "app.registry").Str("user", string(id)).Msg("deregistered connection")
	return true
}

func (r *Registry) Lookup(id domain.UserID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

func (r *Registry) Online(id domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Send encodes v and delivers it to the user's live connection.
// Returns domain.ErrNotConnected when no connection is registered.
func (r *Registry) Send(id domain.UserID, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	conn, ok := r.Lookup(id)
	if !ok {
		return domain.ErrNotConnected
	}
	return conn.TrySend(core.Frame(b))
}

// Drop evicts and closes a connection that failed delivery.
func (r *Registry) Drop(id domain.UserID) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if ok {
		e.conn.Close()
		log.Warn().Str("module", "app.registry").Str("user", string(id)).Msg("dropped dead connection")
	}
}

type PeerSnap struct {
	ID   domain.UserID
	Conn core.Conn
}

// Snapshot returns the registered peers so fanout can run without
// holding the registry lock during delivery.
func (r *Registry) Snapshot() []PeerSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PeerSnap, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, PeerSnap{ID: id, Conn: e.conn})
	}
	return out
}

func (r *Registry) SetCurrentCall(id domain.UserID, call domain.CallID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.presence.CurrentCall = call
	}
}

// ClearCurrentCall resets the pointer only while it still references
// the given call, so stale clears from a superseded call are no-ops.
func (r *Registry) ClearCurrentCall(id domain.UserID, call domain.CallID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.presence.CurrentCall == call {
		e.presence.CurrentCall = ""
	}
}

func (r *Registry) Presence(id domain.UserID) (domain.Presence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.presence, true
	}
	return domain.Presence{UserID: id}, false
}
