package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

// msgKind is the closed set of inbound message types. The dispatcher
// decodes the discriminator once; anything outside the set yields an
// error message and the connection stays open.
type msgKind string

const (
	kindPing             msgKind = "ping"
	kindSendInvitation   msgKind = "send_call_invitation"
	kindAcceptInvitation msgKind = "accept_call_invitation"
	kindRejectInvitation msgKind = "reject_call_invitation"
	kindWebRTCSignal     msgKind = "webrtc_signal"
	kindTranscription    msgKind = "transcription"
	kindEndCall          msgKind = "end_call"
	kindCheckOnline      msgKind = "check_online"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, uid domain.UserID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("user", string(uid)).Msg("readPump closing")
		cancel()
		// The cascade must run even though the connection context is
		// already gone; it is idempotent under repeated closure events.
		ctl.Hub.Disconnect(context.Background(), uid, c)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("readPump read error")
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
			ctl.dispatch(ctx, uid, c, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, uid domain.UserID, c core.Conn, data []byte) {
	var env struct {
		Type msgKind `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		// Stray non-JSON keepalive noise is tolerated: log and drop.
		log.Debug().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("dropping malformed frame")
		return
	}

	switch env.Type {
	case kindPing:
		ctl.handlePing(c)
	case kindSendInvitation:
		var p sendInvitationMsg
		if ctl.decode(c, data, &p) {
			ctl.handleSendInvitation(ctx, uid, c, p)
		}
	case kindAcceptInvitation:
		var p invitationActionMsg
		if ctl.decode(c, data, &p) {
			ctl.handleAcceptInvitation(ctx, uid, c, p)
		}
	case kindRejectInvitation:
		var p invitationActionMsg
		if ctl.decode(c, data, &p) {
			ctl.handleRejectInvitation(ctx, uid, c, p)
		}
	case kindWebRTCSignal:
		var p webrtcSignalMsg
		if ctl.decode(c, data, &p) {
			ctl.handleWebRTCSignal(ctx, uid, c, p)
		}
	case kindTranscription:
		var p transcriptionMsg
		if ctl.decode(c, data, &p) {
			ctl.handleTranscription(ctx, uid, c, p)
		}
	case kindEndCall:
		var p endCallMsg
		if ctl.decode(c, data, &p) {
			ctl.handleEndCall(ctx, uid, c, p)
		}
	case kindCheckOnline:
		var p checkOnlineMsg
		if ctl.decode(c, data, &p) {
			ctl.handleCheckOnline(uid, c, p)
		}
	default:
		ctl.sendJSON(c, errorMsg{
			Type:  "error",
			Error: fmt.Sprintf("unknown message type %q", string(env.Type)),
		})
	}
}

func (ctl *Controller) decode(c core.Conn, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad payload")
		ctl.sendJSON(c, errorMsg{Type: "error", Error: "bad payload"})
		return false
	}
	return true
}

func (ctl *Controller) sendJSON(c core.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}
