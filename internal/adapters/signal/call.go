package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

func callErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "Call not found"
	case errors.Is(err, domain.ErrForbidden):
		return "Not a participant of this call"
	case errors.Is(err, domain.ErrNotConnected):
		return "User not connected"
	}
	return "Internal error"
}

// signalCallID resolves the call id from the top-level field, falling
// back to one embedded in the signal body (older clients put it there).
func signalCallID(p webrtcSignalMsg) domain.CallID {
	if p.CallID != "" {
		return domain.CallID(p.CallID)
	}
	var embedded struct {
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(p.Signal, &embedded); err == nil && embedded.CallID != "" {
		return domain.CallID(embedded.CallID)
	}
	return ""
}

func (ctl *Controller) handleWebRTCSignal(ctx context.Context, uid domain.UserID, c core.Conn, p webrtcSignalMsg) {
	callID := signalCallID(p)
	if callID == "" || p.ToUserID == "" || len(p.Signal) == 0 {
		ctl.sendJSON(c, signalResultMsg{Type: "signal_result", Error: "missing call_id, to_user_id or signal"})
		return
	}

	err := ctl.Hub.Signals.Forward(ctx, uid, domain.UserID(p.ToUserID), callID, p.Signal)
	if err != nil {
		ctl.sendJSON(c, signalResultMsg{Type: "signal_result", CallID: callID, Error: callErrorText(err)})
		return
	}
	ctl.sendJSON(c, signalResultMsg{Type: "signal_result", CallID: callID, Success: true})
}

func (ctl *Controller) handleTranscription(ctx context.Context, uid domain.UserID, c core.Conn, p transcriptionMsg) {
	if p.CallID == "" || p.Text == "" {
		ctl.sendJSON(c, errorMsg{Type: "error", Error: "missing call_id or text"})
		return
	}
	if err := ctl.Hub.Signals.Transcribe(ctx, uid, domain.CallID(p.CallID), p.SpeakerRole, p.Text); err != nil {
		ctl.sendJSON(c, errorMsg{Type: "error", Error: callErrorText(err)})
	}
}

func (ctl *Controller) handleEndCall(ctx context.Context, uid domain.UserID, c core.Conn, p endCallMsg) {
	if p.CallID == "" {
		ctl.sendJSON(c, endCallResultMsg{Type: "end_call_result", Error: "missing call_id"})
		return
	}
	callID := domain.CallID(p.CallID)
	if err := ctl.Hub.Calls.End(ctx, callID, uid); err != nil {
		ctl.sendJSON(c, endCallResultMsg{Type: "end_call_result", CallID: callID, Error: callErrorText(err)})
		return
	}
	ctl.sendJSON(c, endCallResultMsg{Type: "end_call_result", CallID: callID, Success: true})
}
