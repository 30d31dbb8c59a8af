// Package signal is the websocket dispatcher: one connection per
// user identity, a read loop feeding typed messages into the hub and
// a write loop serializing outbound frames.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/app"
	"github.com/linguacall/server/internal/config"
	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Hub     *app.Hub
	Limiter *InviteRateLimiter

	readLimit  int64
	sendBuffer int
	pingPeriod time.Duration
	pongWait   time.Duration
}

func NewController(hub *app.Hub, cfg *config.Config) *Controller {
	return &Controller{
		Hub:        hub,
		Limiter:    NewInviteRateLimiter(cfg.InviteRateLimit, cfg.InviteRateWindow),
		readLimit:  cfg.ReadLimit,
		sendBuffer: cfg.SendBuffer,
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait,
	}
}

// wsConn is the transport handle owned by this adapter. Outbound
// writes go through the buffered send channel so concurrent senders
// never interleave frames on the wire.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection addressed by the path identity. A
// malformed identity is refused with a policy-violation close before
// any registration happens.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	raw := c.Param("user_id")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	uid, err := domain.ParseUserID(raw)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("raw", raw).Msg("refusing connection")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid user id")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}
	log.Info().Str("module", "signal").Str("user", string(uid)).Msg("new WS connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.sendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Hub.Connect(ctx, uid, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, uid, conn)
}
