package signal

import (
	"time"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

func wireNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (ctl *Controller) handlePing(c core.Conn) {
	ctl.sendJSON(c, pongMsg{Type: "pong", Timestamp: wireNow()})
}

func (ctl *Controller) handleCheckOnline(uid domain.UserID, c core.Conn, p checkOnlineMsg) {
	if p.TargetUser == "" {
		ctl.sendJSON(c, errorMsg{Type: "error", Error: "missing target_user"})
		return
	}
	ctl.sendJSON(c, onlineStatusMsg{
		Type:      "online_status",
		UserID:    p.TargetUser,
		IsOnline:  ctl.Hub.Registry.Online(domain.UserID(p.TargetUser)),
		Timestamp: wireNow(),
	})
}
