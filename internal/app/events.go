package app

import (
	"encoding/json"
	"time"

	"github.com/linguacall/server/internal/domain"
)

// Outbound event shapes pushed to clients by the hub components.
// The dispatcher owns acks and error results; these are the pushes.

func wireNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type statusEvent struct {
	Type      string        `json:"type"` // user_online | user_offline
	UserID    domain.UserID `json:"user_id"`
	Timestamp string        `json:"timestamp"`
}

type invitationEvent struct {
	Type         string              `json:"type"` // call_invitation
	InvitationID domain.InvitationID `json:"invitation_id"`
	CallID       domain.CallID       `json:"call_id"`
	FromUser     domain.UserID       `json:"from_user"`
	FromName     string              `json:"from_name"`
	CallData     json.RawMessage     `json:"call_data,omitempty"`
	Timestamp    string              `json:"timestamp"`
}

type invitationSentEvent struct {
	Type         string              `json:"type"` // invitation_sent
	InvitationID domain.InvitationID `json:"invitation_id"`
	CallID       domain.CallID       `json:"call_id"`
	ToUser       domain.UserID       `json:"to_user"`
	Timestamp    string              `json:"timestamp"`
}

type callAcceptedEvent struct {
	Type         string              `json:"type"` // call_accepted
	InvitationID domain.InvitationID `json:"invitation_id"`
	CallID       domain.CallID       `json:"call_id"`
	RoomID       string              `json:"room_id"`
	ByUser       domain.UserID       `json:"by_user"`
	Timestamp    string              `json:"timestamp"`
}

type callStartedEvent struct {
	Type      string        `json:"type"` // call_started
	CallID    domain.CallID `json:"call_id"`
	RoomID    string        `json:"room_id"`
	WithUser  domain.UserID `json:"with_user"`
	Timestamp string        `json:"timestamp"`
}

type callRejectedEvent struct {
	Type         string              `json:"type"` // call_rejected
	InvitationID domain.InvitationID `json:"invitation_id"`
	CallID       domain.CallID       `json:"call_id"`
	ByUser       domain.UserID       `json:"by_user"`
	ByName       string              `json:"by_name"`
	Timestamp    string              `json:"timestamp"`
}

type callEndedEvent struct {
	Type      string        `json:"type"` // call_ended
	CallID    domain.CallID `json:"call_id"`
	EndedBy   domain.UserID `json:"ended_by"`
	Timestamp string        `json:"timestamp"`
}

type userLeftEvent struct {
	Type      string        `json:"type"` // user_left_call
	CallID    domain.CallID `json:"call_id"`
	UserID    domain.UserID `json:"user_id"`
	Timestamp string        `json:"timestamp"`
}

type signalEvent struct {
	Type      string          `json:"type"` // signal
	CallID    domain.CallID   `json:"call_id"`
	FromUser  domain.UserID   `json:"from_user"`
	Signal    json.RawMessage `json:"signal"`
	Timestamp string          `json:"timestamp"`
}

type transcriptionEvent struct {
	Type        string        `json:"type"` // transcription
	CallID      domain.CallID `json:"call_id"`
	FromUser    domain.UserID `json:"from_user"`
	SpeakerRole string        `json:"speaker_role"`
	Text        string        `json:"text"`
	Timestamp   string        `json:"timestamp"`
}
