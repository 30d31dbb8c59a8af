package app

import (
	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/domain"
)

// Broadcaster fans online/offline transitions out to every other
// registered connection. Delivery is fire-and-forget per recipient
// with no ordering guarantee; a failed recipient is dropped from the
// registry so the next fanout no longer sees it.
type Broadcaster struct {
	reg *Registry
}

func NewBroadcaster(reg *Registry) *Broadcaster {
	return &Broadcaster{reg: reg}
}

func (b *Broadcaster) Announce(id domain.UserID, online bool) {
	kind := "user_offline"
	if online {
		kind = "user_online"
	}
	ev := statusEvent{Type: kind, UserID: id, Timestamp: wireNow()}

	for _, peer := range b.reg.Snapshot() {
		if peer.ID == id {
			continue
		}
		if err := b.reg.Send(peer.ID, ev); err != nil {
			log.Warn().Err(err).
				Str("module", "app.presence").
				Str("user", string(peer.ID)).
				Str("event", kind).
				Msg("presence delivery failed")
			b.reg.Drop(peer.ID)
		}
	}
}
