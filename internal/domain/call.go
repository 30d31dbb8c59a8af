package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRoomToken mints the conference room token handed to both
// participants when a call starts.
func NewRoomToken() string {
	return "practice-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type (
	CallID       string
	InvitationID string
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// Invitation is a proposal from one user to start a call with another.
// Status is monotonic: pending -> accepted | rejected, both terminal.
type Invitation struct {
	ID        InvitationID
	From      UserID
	To        UserID
	CallID    CallID
	Status    InvitationStatus
	CreatedAt time.Time
}

// Resolved reports whether the invitation reached a terminal status.
func (i *Invitation) Resolved() bool {
	return i.Status != InvitationPending
}

type CallStatus string

const (
	CallActive CallStatus = "active"
	CallEnded  CallStatus = "ended"
)

// CallSession is an established two-party call. While active it has
// exactly two participant identities.
type CallSession struct {
	ID           CallID
	Participants [2]UserID
	RoomToken    string
	Status       CallStatus
	StartedAt    time.Time
}

func (s *CallSession) Has(u UserID) bool {
	return s.Participants[0] == u || s.Participants[1] == u
}

// Peer returns the other participant of the session.
func (s *CallSession) Peer(u UserID) (UserID, bool) {
	switch u {
	case s.Participants[0]:
		return s.Participants[1], true
	case s.Participants[1]:
		return s.Participants[0], true
	}
	return "", false
}
