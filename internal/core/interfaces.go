// Package core declares the seams between the live hub and the rest
// of the system: the transport handle owned by the adapter and the two
// external collaborators (user directory, durable call records).
package core

import (
	"context"
	"time"

	"github.com/linguacall/server/internal/domain"
)

// Frame is a raw outbound payload, already encoded for the wire.
type Frame []byte

// Conn abstracts one live transport handle for one logical client
// session. Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// Directory is the external user-profile collaborator.
type Directory interface {
	DisplayName(ctx context.Context, id domain.UserID) (string, error)
	SetOnline(ctx context.Context, id domain.UserID, online bool) error
}

// SessionStore is the external durable call-record collaborator.
// Participants returns domain.ErrNotFound for an unknown or already
// ended call id, so an ended call can never rehydrate a session.
type SessionStore interface {
	Participants(ctx context.Context, id domain.CallID) (a, b domain.UserID, roomToken string, err error)
	MarkEnded(ctx context.Context, id domain.CallID, duration time.Duration) error
}
