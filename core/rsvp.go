package core

import (
	"time"

	"github.com/soiree/soiree/service/auditlog"
	"github.com/soiree/soiree/service/guest"
	"github.com/soiree/soiree/service/invitation"
)

// Clamps applied to guest submitted RSVP payloads.
const (
	MaxRSVPComment = 500
	MaxRSVPGuests  = 20
)

// RequestMeta carries the transport context of a guest request for the
// audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// RSVPResult is the outcome of a respond operation. Duplicate marks a
// repeated application of the same answer, which is acknowledged without
// being reprocessed.
type RSVPResult struct {
	Duplicate  bool
	Invitation *invitation.Invitation
}

// InviteOpenFunc marks an invitation as opened when its tracking pixel is
// fetched. Strictly best-effort, it never reports anything to the caller.
type InviteOpenFunc func(ns, bearer string)

// InviteOpen constructs an InviteOpenFunc.
func InviteOpen(invitations invitation.Service) InviteOpenFunc {
	resolve := InvitationResolve(invitations)

	return func(ns, bearer string) {
		i, err := resolve(ns, bearer)
		if err != nil {
			return
		}

		if i.OpenedAt.IsZero() {
			i.OpenedAt = time.Now().UTC()
		}

		switch i.Status {
		case invitation.StatusQueued, invitation.StatusSent:
			i.Status = invitation.StatusOpened
		}

		_, _ = invitations.Put(ns, i)
	}
}

// InviteRespondFunc applies a guest answer to the invitation behind the
// bearer. Responding twice with the same answer is flagged as duplicate and
// left untouched, flipping the answer is a regular transition.
type InviteRespondFunc func(
	ns, bearer string,
	next invitation.Status,
	resp *invitation.Response,
	meta RequestMeta,
) (*RSVPResult, error)

// InviteRespond constructs an InviteRespondFunc.
func InviteRespond(
	audits auditlog.Service,
	guests guest.Service,
	invitations invitation.Service,
) InviteRespondFunc {
	var (
		record  = AuditRecord(audits)
		resolve = InvitationResolve(invitations)
	)

	return func(
		ns, bearer string,
		next invitation.Status,
		resp *invitation.Response,
		meta RequestMeta,
	) (*RSVPResult, error) {
		if next != invitation.StatusConfirmed &&
			next != invitation.StatusDeclined {
			return nil, wrapError(
				ErrInvalidEntity,
				"status '%s' is not an answer",
				next,
			)
		}

		i, err := resolve(ns, bearer)
		if err != nil {
			return nil, err
		}

		var (
			duplicate = i.Status == next
			prev      = i.Status
		)

		if !duplicate {
			i.Response = clampResponse(next, resp)
			i.RespondedAt = time.Now().UTC()
			i.Status = next

			i, err = invitations.Put(ns, i)
			if err != nil {
				return nil, err
			}
		}

		// The audit trail must never get between a guest and their answer.
		recordRSVPAudit(record, guests, ns, i, prev, next, duplicate, meta)

		return &RSVPResult{
			Duplicate:  duplicate,
			Invitation: i,
		}, nil
	}
}

func clampResponse(
	next invitation.Status,
	resp *invitation.Response,
) *invitation.Response {
	if resp == nil {
		resp = &invitation.Response{}
	}

	resp.Attending = next == invitation.StatusConfirmed

	if resp.Attending {
		if resp.GuestsCount < 1 {
			resp.GuestsCount = 1
		}
		if resp.GuestsCount > MaxRSVPGuests {
			resp.GuestsCount = MaxRSVPGuests
		}
	} else {
		resp.GuestsCount = 0
	}

	if len(resp.Comment) > MaxRSVPComment {
		resp.Comment = resp.Comment[:MaxRSVPComment]
	}

	return resp
}

func recordRSVPAudit(
	record AuditRecordFunc,
	guests guest.Service,
	ns string,
	i *invitation.Invitation,
	prev, next invitation.Status,
	duplicate bool,
	meta RequestMeta,
) {
	action := AuditRSVPConfirm
	if next == invitation.StatusDeclined {
		action = AuditRSVPDecline
	}

	email := ""

	gs, err := guests.Query(ns, guest.QueryOptions{
		IDs: []uint64{
			i.GuestID,
		},
		Limit: 1,
	})
	if err == nil && len(gs) == 1 {
		email = gs[0].Email
	}

	_, _ = record(ns, i.GuestID, action, &auditlog.Entry{
		IP: meta.IP,
		Meta: map[string]interface{}{
			"duplicate":   duplicate,
			"next_status": string(next),
			"prev_status": string(prev),
		},
		TargetEmail: email,
		TargetID:    i.ID,
		UserAgent:   meta.UserAgent,
	})
}
