package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

type callState struct {
	sess     domain.CallSession
	departed map[domain.UserID]bool
}

// SessionTable tracks currently active two-party calls. Sessions
// enter the table when an invitation is accepted, or lazily when a
// signal references a call known only to the durable store. Removal
// (explicit end or both participants gone) never touches the store
// beyond completion accounting.
type SessionTable struct {
	mu    sync.Mutex
	calls map[domain.CallID]*callState
	reg   *Registry
	store core.SessionStore
}

func NewSessionTable(reg *Registry, store core.SessionStore) *SessionTable {
	return &SessionTable{
		calls: make(map[domain.CallID]*callState),
		reg:   reg,
		store: store,
	}
}

func (t *SessionTable) Get(id domain.CallID) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.calls[id]; ok {
		return st.sess, true
	}
	return domain.CallSession{}, false
}

// Ensure returns the live session for id, creating it with the given
// participants and room token when absent. Idempotent: an existing
// session wins, whatever arguments arrive later.
func (t *SessionTable) Ensure(id domain.CallID, participants [2]domain.UserID, roomToken string) domain.CallSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.calls[id]; ok {
		return st.sess
	}
	if roomToken == "" {
		roomToken = domain.NewRoomToken()
	}
	st := &callState{
		sess: domain.CallSession{
			ID:           id,
			Participants: participants,
			RoomToken:    roomToken,
			Status:       domain.CallActive,
			StartedAt:    time.Now().UTC(),
		},
		departed: make(map[domain.UserID]bool),
	}
	t.calls[id] = st
	log.Info().Str("module", "app.calls").
		Str("call", string(id)).
		Str("a", string(participants[0])).
		Str("b", string(participants[1])).
		Msg("call session active")
	return st.sess
}

// Hydrate resolves id against the live table first, then the durable
// store. A store hit rebuilds the in-memory session so routing works
// across a process that did not observe the accept.
func (t *SessionTable) Hydrate(ctx context.Context, id domain.CallID) (domain.CallSession, error) {
	if sess, ok := t.Get(id); ok {
		return sess, nil
	}
	a, b, roomToken, err := t.store.Participants(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CallSession{}, domain.ErrNotFound
		}
		return domain.CallSession{}, fmt.Errorf("hydrate call %s: %w", id, err)
	}
	return t.Ensure(id, [2]domain.UserID{a, b}, roomToken), nil
}

// End removes the session and notifies the other participant.
// Durable completion accounting goes to the store; its failure is
// logged, not surfaced, since the live call is already over.
func (t *SessionTable) End(ctx context.Context, id domain.CallID, by domain.UserID) error {
	t.mu.Lock()
	st, ok := t.calls[id]
	if !ok {
		t.mu.Unlock()
		return domain.ErrNotFound
	}
	if !st.sess.Has(by) {
		t.mu.Unlock()
		return domain.ErrForbidden
	}
	delete(t.calls, id)
	sess := st.sess
	t.mu.Unlock()

	for _, p := range sess.Participants {
		t.reg.ClearCurrentCall(p, id)
	}
	if peer, ok := sess.Peer(by); ok {
		if err := t.reg.Send(peer, callEndedEvent{
			Type: "call_ended", CallID: id, EndedBy: by, Timestamp: wireNow(),
		}); err != nil && !errors.Is(err, domain.ErrNotConnected) {
			log.Warn().Err(err).Str("module", "app.calls").Str("user", string(peer)).Msg("call_ended delivery failed")
		}
	}
	if err := t.store.MarkEnded(ctx, id, time.Since(sess.StartedAt)); err != nil {
		// A call that only ever lived in memory has no durable record.
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug().Str("module", "app.calls").Str("call", string(id)).Msg("no durable record for call")
		} else {
			log.Error().Err(err).Str("module", "app.calls").Str("call", string(id)).Msg("mark ended failed")
		}
	}
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("by", string(by)).Msg("call ended")
	return nil
}

// OnDisconnect marks the user as departed from any session containing
// them and notifies the remaining participant once. Safe to invoke
// repeatedly for the same identity; duplicates are absorbed here.
func (t *SessionTable) OnDisconnect(id domain.UserID) {
	t.mu.Lock()
	var (
		sess domain.CallSession
		peer domain.UserID
		hit  bool
	)
	for callID, st := range t.calls {
		if !st.sess.Has(id) || st.departed[id] {
			continue
		}
		st.departed[id] = true
		sess = st.sess
		peer, _ = sess.Peer(id)
		hit = true
		if len(st.departed) == len(st.sess.Participants) {
			delete(t.calls, callID)
		}
		break
	}
	t.mu.Unlock()

	if !hit {
		return
	}
	t.reg.ClearCurrentCall(id, sess.ID)
	if err := t.reg.Send(peer, userLeftEvent{
		Type: "user_left_call", CallID: sess.ID, UserID: id, Timestamp: wireNow(),
	}); err != nil && !errors.Is(err, domain.ErrNotConnected) {
		log.Warn().Err(err).Str("module", "app.calls").Str("user", string(peer)).Msg("user_left_call delivery failed")
	}
	log.Info().Str("module", "app.calls").Str("call", string(sess.ID)).Str("user", string(id)).Msg("participant left call")
}
