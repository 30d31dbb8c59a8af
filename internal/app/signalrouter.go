package app

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/domain"
)

// Router validates session membership and relays opaque signaling
// payloads between the participants of a call. Payloads are never
// parsed here; SDP, ICE candidates and transcript fragments all ride
// the same path.
type Router struct {
	reg   *Registry
	calls *SessionTable
}

func NewRouter(reg *Registry, calls *SessionTable) *Router {
	return &Router{reg: reg, calls: calls}
}

// Forward relays payload verbatim to a single target. Validation
// order: session exists (hydrating from the store when needed), both
// ends belong to it, target has a live connection.
func (r *Router) Forward(ctx context.Context, from, to domain.UserID, callID domain.CallID, payload json.RawMessage) error {
	sess, err := r.calls.Hydrate(ctx, callID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		log.Error().Err(err).Str("module", "app.signal").Str("call", string(callID)).Msg("hydrate failed")
		return domain.ErrNotFound
	}
	if !sess.Has(from) || !sess.Has(to) {
		return domain.ErrForbidden
	}
	if err := r.reg.Send(to, signalEvent{
		Type:      "signal",
		CallID:    callID,
		FromUser:  from,
		Signal:    payload,
		Timestamp: wireNow(),
	}); err != nil {
		return domain.ErrNotConnected
	}
	return nil
}

// Transcribe broadcasts a live transcript fragment to every other
// participant of the call. Per-recipient delivery failures are logged
// and skipped; the fragment is ephemeral.
func (r *Router) Transcribe(ctx context.Context, from domain.UserID, callID domain.CallID, speakerRole, text string) error {
	sess, err := r.calls.Hydrate(ctx, callID)
	if err != nil {
		return domain.ErrNotFound
	}
	if !sess.Has(from) {
		return domain.ErrForbidden
	}
	ev := transcriptionEvent{
		Type:        "transcription",
		CallID:      callID,
		FromUser:    from,
		SpeakerRole: speakerRole,
		Text:        text,
		Timestamp:   wireNow(),
	}
	for _, p := range sess.Participants {
		if p == from {
			continue
		}
		if err := r.reg.Send(p, ev); err != nil && !errors.Is(err, domain.ErrNotConnected) {
			log.Warn().Err(err).Str("module", "app.signal").Str("user", string(p)).Msg("transcription delivery failed")
		}
	}
	return nil
}
