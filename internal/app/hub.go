package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

// Hub wires the live components together and owns the connect and
// disconnect cascades. One Hub per process; every connection task
// shares it.
type Hub struct {
	Registry *Registry
	Presence *Broadcaster
	Invites  *Ledger
	Calls    *SessionTable
	Signals  *Router

	dir core.Directory
}

func NewHub(dir core.Directory, store core.SessionStore) *Hub {
	reg := NewRegistry()
	calls := NewSessionTable(reg, store)
	return &Hub{
		Registry: reg,
		Presence: NewBroadcaster(reg),
		Invites:  NewLedger(reg, calls, dir),
		Calls:    calls,
		Signals:  NewRouter(reg, calls),
		dir:      dir,
	}
}

// Connect registers the connection (evicting any prior one for the
// identity), persists the online flag and announces the transition.
func (h *Hub) Connect(ctx context.Context, id domain.UserID, conn core.Conn) {
	h.Registry.Register(id, conn)
	if err := h.dir.SetOnline(ctx, id, true); err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("user", string(id)).Msg("set online failed")
	}
	h.Presence.Announce(id, true)
}

// Disconnect runs the cleanup cascade for one closure event. The
// registry guard makes it a no-op both for duplicate invocations and
// for superseded connections closed by eviction.
func (h *Hub) Disconnect(ctx context.Context, id domain.UserID, conn core.Conn) {
	if !h.Registry.Deregister(id, conn) {
		return
	}
	h.Calls.OnDisconnect(id)
	h.Invites.OnDisconnect(id)
	if err := h.dir.SetOnline(ctx, id, false); err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("user", string(id)).Msg("set offline failed")
	}
	h.Presence.Announce(id, false)
}
