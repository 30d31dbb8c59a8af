package signal

import (
	"context"
	"errors"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

func invitationErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "Invitation not found"
	case errors.Is(err, domain.ErrForbidden):
		return "Not authorized for this invitation"
	case errors.Is(err, domain.ErrAlreadyResolved):
		return "Invitation already resolved"
	case errors.Is(err, domain.ErrNotConnected):
		return "User is offline"
	}
	return "Internal error"
}

func (ctl *Controller) handleSendInvitation(ctx context.Context, uid domain.UserID, c core.Conn, p sendInvitationMsg) {
	if p.ToUser == "" || p.CallID == "" {
		ctl.sendJSON(c, invitationResultMsg{Type: "invitation_result", Error: "missing to_user or call_id"})
		return
	}
	if !ctl.Limiter.Allow(uid) {
		ctl.sendJSON(c, invitationResultMsg{Type: "invitation_result", Error: "too many invitations, slow down"})
		return
	}

	// The ledger delivers call_invitation to the target and the
	// invitation_sent ack back to us; only failures are rendered here.
	_, err := ctl.Hub.Invites.Create(ctx, uid, domain.UserID(p.ToUser), domain.CallID(p.CallID), p.CallData)
	if err != nil {
		ctl.sendJSON(c, invitationResultMsg{Type: "invitation_result", Error: invitationErrorText(err)})
	}
}

func (ctl *Controller) handleAcceptInvitation(ctx context.Context, uid domain.UserID, c core.Conn, p invitationActionMsg) {
	if p.InvitationID == "" {
		ctl.sendJSON(c, invitationResultMsg{Type: "invitation_result", Error: "missing invitation_id"})
		return
	}
	_, err := ctl.Hub.Invites.Accept(ctx, domain.InvitationID(p.InvitationID), uid)
	if err != nil {
		ctl.sendJSON(c, invitationResultMsg{
			Type:         "invitation_result",
			InvitationID: p.InvitationID,
			Error:        invitationErrorText(err),
		})
	}
}

func (ctl *Controller) handleRejectInvitation(ctx context.Context, uid domain.UserID, c core.Conn, p invitationActionMsg) {
	if p.InvitationID == "" {
		ctl.sendJSON(c, invitationResultMsg{Type: "invitation_result", Error: "missing invitation_id"})
		return
	}
	err := ctl.Hub.Invites.Reject(ctx, domain.InvitationID(p.InvitationID), uid)
	if err != nil {
		ctl.sendJSON(c, invitationResultMsg{
			Type:         "invitation_result",
			InvitationID: p.InvitationID,
			Error:        invitationErrorText(err),
		})
		return
	}
	ctl.sendJSON(c, invitationResultMsg{
		Type:         "invitation_result",
		InvitationID: p.InvitationID,
		Success:      true,
	})
}
