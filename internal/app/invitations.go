package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

// invitationTTL bounds how long an entry is retained. Resolved
// entries stay long enough to answer a late accept/reject with
// ErrAlreadyResolved instead of ErrNotFound.
const invitationTTL = 5 * time.Minute

// Ledger tracks outstanding call invitations and their
// accept/reject lifecycle. Status is monotonic: once resolved an
// invitation never reopens. This is the canonical invitation
// protocol; the HTTP call API is a notification convenience on top.
type Ledger struct {
	mu      sync.Mutex
	invites map[domain.InvitationID]*domain.Invitation

	reg   *Registry
	calls *SessionTable
	dir   core.Directory
}

func NewLedger(reg *Registry, calls *SessionTable, dir core.Directory) *Ledger {
	return &Ledger{
		invites: make(map[domain.InvitationID]*domain.Invitation),
		reg:     reg,
		calls:   calls,
		dir:     dir,
	}
}

func (l *Ledger) displayName(ctx context.Context, id domain.UserID) string {
	name, err := l.dir.DisplayName(ctx, id)
	if err != nil || name == "" {
		return "User"
	}
	return name
}

// prune drops entries past the retention window. Caller holds l.mu.
func (l *Ledger) prune(now time.Time) {
	for id, inv := range l.invites {
		if now.Sub(inv.CreatedAt) > invitationTTL {
			delete(l.invites, id)
		}
	}
}

// OnDisconnect drops pending invitations involving the identity; a
// live connection on either end is a precondition for resolving them.
// Resolved entries stay for the ErrAlreadyResolved answer.
func (l *Ledger) OnDisconnect(id domain.UserID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for invID, inv := range l.invites {
		if inv.Resolved() {
			continue
		}
		if inv.From == id || inv.To == id {
			delete(l.invites, invID)
		}
	}
}

// Create records a pending invitation and delivers it to the target.
// Fails with domain.ErrNotConnected when the target has no live
// connection; nothing is recorded in that case. Inviting yourself is
// refused, a session needs two distinct participants.
func (l *Ledger) Create(ctx context.Context, from, to domain.UserID, callID domain.CallID, callData json.RawMessage) (domain.InvitationID, error) {
	if from == to {
		return "", domain.ErrForbidden
	}
	if !l.reg.Online(to) {
		return "", domain.ErrNotConnected
	}

	inv := &domain.Invitation{
		ID:        domain.InvitationID(uuid.NewString()),
		From:      from,
		To:        to,
		CallID:    callID,
		Status:    domain.InvitationPending,
		CreatedAt: time.Now().UTC(),
	}
	l.mu.Lock()
	l.prune(time.Now())
	l.invites[inv.ID] = inv
	l.mu.Unlock()

	if err := l.reg.Send(to, invitationEvent{
		Type:         "call_invitation",
		InvitationID: inv.ID,
		CallID:       callID,
		FromUser:     from,
		FromName:     l.displayName(ctx, from),
		CallData:     callData,
		Timestamp:    wireNow(),
	}); err != nil {
		// Target raced away between the online check and delivery.
		l.mu.Lock()
		delete(l.invites, inv.ID)
		l.mu.Unlock()
		return "", domain.ErrNotConnected
	}

	if err := l.reg.Send(from, invitationSentEvent{
		Type:         "invitation_sent",
		InvitationID: inv.ID,
		CallID:       callID,
		ToUser:       to,
		Timestamp:    wireNow(),
	}); err != nil {
		log.Warn().Err(err).Str("module", "app.invites").Str("user", string(from)).Msg("invitation_sent delivery failed")
	}

	log.Info().Str("module", "app.invites").
		Str("invitation", string(inv.ID)).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("invitation created")
	return inv.ID, nil
}

// resolve applies the shared guard clauses and flips the status.
func (l *Ledger) resolve(id domain.InvitationID, by domain.UserID, to domain.InvitationStatus) (domain.Invitation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	inv, ok := l.invites[id]
	if !ok {
		return domain.Invitation{}, domain.ErrNotFound
	}
	if inv.To != by {
		return domain.Invitation{}, domain.ErrForbidden
	}
	if inv.Resolved() {
		return domain.Invitation{}, domain.ErrAlreadyResolved
	}
	inv.Status = to
	return *inv, nil
}

// Accept marks the invitation accepted, materializes the call
// session and notifies both sides with the shared room token.
func (l *Ledger) Accept(ctx context.Context, id domain.InvitationID, by domain.UserID) (domain.CallSession, error) {
	inv, err := l.resolve(id, by, domain.InvitationAccepted)
	if err != nil {
		return domain.CallSession{}, err
	}

	sess := l.calls.Ensure(inv.CallID, [2]domain.UserID{inv.From, inv.To}, "")
	l.reg.SetCurrentCall(inv.From, sess.ID)
	l.reg.SetCurrentCall(inv.To, sess.ID)

	if err := l.reg.Send(inv.From, callAcceptedEvent{
		Type:         "call_accepted",
		InvitationID: inv.ID,
		CallID:       sess.ID,
		RoomID:       sess.RoomToken,
		ByUser:       by,
		Timestamp:    wireNow(),
	}); err != nil {
		log.Warn().Err(err).Str("module", "app.invites").Str("user", string(inv.From)).Msg("call_accepted delivery failed")
	}
	if err := l.reg.Send(by, callStartedEvent{
		Type:      "call_started",
		CallID:    sess.ID,
		RoomID:    sess.RoomToken,
		WithUser:  inv.From,
		Timestamp: wireNow(),
	}); err != nil {
		log.Warn().Err(err).Str("module", "app.invites").Str("user", string(by)).Msg("call_started delivery failed")
	}

	log.Info().Str("module", "app.invites").Str("invitation", string(id)).Str("call", string(sess.ID)).Msg("invitation accepted")
	return sess, nil
}

// Reject marks the invitation rejected and tells the inviter who
// declined, by display name.
func (l *Ledger) Reject(ctx context.Context, id domain.InvitationID, by domain.UserID) error {
	inv, err := l.resolve(id, by, domain.InvitationRejected)
	if err != nil {
		return err
	}

	if err := l.reg.Send(inv.From, callRejectedEvent{
		Type:         "call_rejected",
		InvitationID: inv.ID,
		CallID:       inv.CallID,
		ByUser:       by,
		ByName:       l.displayName(ctx, by),
		Timestamp:    wireNow(),
	}); err != nil {
		log.Warn().Err(err).Str("module", "app.invites").Str("user", string(inv.From)).Msg("call_rejected delivery failed")
	}

	log.Info().Str("module", "app.invites").Str("invitation", string(id)).Msg("invitation rejected")
	return nil
}
