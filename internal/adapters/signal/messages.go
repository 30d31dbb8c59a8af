package signal

import (
	"encoding/json"

	"github.com/linguacall/server/internal/domain"
)

// Inbound payloads, one per message kind. Decoded once at the
// dispatch boundary; handlers receive them typed.

type sendInvitationMsg struct {
	ToUser   string          `json:"to_user"`
	CallID   string          `json:"call_id"`
	CallData json.RawMessage `json:"call_data"`
}

type invitationActionMsg struct {
	InvitationID string `json:"invitation_id"`
}

type webrtcSignalMsg struct {
	CallID   string          `json:"call_id"`
	ToUserID string          `json:"to_user_id"`
	Signal   json.RawMessage `json:"signal"`
}

type transcriptionMsg struct {
	CallID      string `json:"call_id"`
	Text        string `json:"text"`
	SpeakerRole string `json:"speaker_role"`
}

type endCallMsg struct {
	CallID string `json:"call_id"`
}

type checkOnlineMsg struct {
	TargetUser string `json:"target_user"`
}

// Outbound results and acks owned by the dispatcher.

type errorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type pongMsg struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type invitationResultMsg struct {
	Type         string `json:"type"`
	InvitationID string `json:"invitation_id,omitempty"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type signalResultMsg struct {
	Type    string        `json:"type"`
	CallID  domain.CallID `json:"call_id,omitempty"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
}

type endCallResultMsg struct {
	Type    string        `json:"type"`
	CallID  domain.CallID `json:"call_id"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
}

type onlineStatusMsg struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	IsOnline  bool   `json:"is_online"`
	Timestamp string `json:"timestamp"`
}
