package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/adapters/store"
	"github.com/linguacall/server/internal/app"
	"github.com/linguacall/server/internal/domain"
)

// CallsController is the call-lifecycle glue over the durable store.
// The websocket ledger stays canonical for accept/reject; this API
// only creates the durable record and pushes the live invitation.
type CallsController struct {
	Hub   *app.Hub
	Store *store.Store
}

type inviteRequest struct {
	CallerID   string `json:"caller_id" binding:"required"`
	ReceiverID string `json:"receiver_id" binding:"required"`
}

type callResponse struct {
	ID              domain.CallID `json:"id"`
	CallerID        domain.UserID `json:"caller_id"`
	ReceiverID      domain.UserID `json:"receiver_id"`
	RoomToken       string        `json:"room_token"`
	Status          string        `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	DurationSeconds int64         `json:"duration_seconds,omitempty"`
}

func toCallResponse(rec store.CallRecord) callResponse {
	return callResponse{
		ID:              rec.ID,
		CallerID:        rec.CallerID,
		ReceiverID:      rec.ReceiverID,
		RoomToken:       rec.RoomToken,
		Status:          rec.Status,
		CreatedAt:       rec.CreatedAt,
		EndedAt:         rec.EndedAt,
		DurationSeconds: rec.DurationSeconds,
	}
}

func (ctl *CallsController) Invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing caller_id or receiver_id"})
		return
	}
	caller, err := domain.ParseUserID(req.CallerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid caller id"})
		return
	}
	receiver, err := domain.ParseUserID(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver id"})
		return
	}
	if !ctl.Hub.Registry.Online(receiver) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is offline"})
		return
	}

	rec, err := ctl.Store.CreateCall(c.Request.Context(), caller, receiver)
	if err != nil {
		if errors.Is(err, store.ErrDuplicatePending) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "already have a pending call with this user"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("create call failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	// Live notification goes through the canonical ledger so the
	// receiver can accept over the websocket protocol.
	if _, err := ctl.Hub.Invites.Create(c.Request.Context(), caller, receiver, rec.ID, nil); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Str("call", string(rec.ID)).Msg("live invitation not delivered")
	}

	c.JSON(http.StatusOK, toCallResponse(rec))
}

func (ctl *CallsController) MyCalls(c *gin.Context) {
	uid, err := domain.ParseUserID(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	recs, err := ctl.Store.CallsFor(c.Request.Context(), uid, 50)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list calls failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]callResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toCallResponse(rec))
	}
	c.JSON(http.StatusOK, out)
}
