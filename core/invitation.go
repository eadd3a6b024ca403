package core

import (
	"time"

	"github.com/soiree/soiree/platform/token"
	"github.com/soiree/soiree/service/invitation"
)

// InvitationCreateFunc issues a fresh bearer for the (event, guest) pair and
// upserts the invitation, superseding any prior link. The bearer is returned
// once and never stored.
type InvitationCreateFunc func(
	ns string,
	eventID, guestID uint64,
) (*invitation.Invitation, string, error)

// InvitationCreate constructs an InvitationCreateFunc.
func InvitationCreate(invitations invitation.Service) InvitationCreateFunc {
	return func(
		ns string,
		eventID, guestID uint64,
	) (*invitation.Invitation, string, error) {
		bearer, hash, err := token.New()
		if err != nil {
			return nil, "", err
		}

		i, err := invitations.Put(ns, &invitation.Invitation{
			EventID:   eventID,
			GuestID:   guestID,
			Status:    invitation.StatusQueued,
			TokenHash: hash,
		})
		if err != nil {
			return nil, "", err
		}

		return i, bearer, nil
	}
}

// InvitationResolveFunc looks up the invitation behind a bearer token. Any
// miss, malformed input included, surfaces as ErrNotFound so callers can't
// distinguish probing from expiry.
type InvitationResolveFunc func(ns, bearer string) (*invitation.Invitation, error)

// InvitationResolve constructs an InvitationResolveFunc.
func InvitationResolve(invitations invitation.Service) InvitationResolveFunc {
	return func(ns, bearer string) (*invitation.Invitation, error) {
		if !token.IsWellFormed(bearer) {
			return nil, ErrNotFound
		}

		is, err := invitations.Query(ns, invitation.QueryOptions{
			Limit: 1,
			TokenHashes: []string{
				token.Hash(bearer),
			},
		})
		if err != nil {
			return nil, err
		}

		if len(is) == 0 {
			return nil, ErrNotFound
		}

		return is[0], nil
	}
}

func markSent(
	invitations invitation.Service,
	ns string,
	i *invitation.Invitation,
) (*invitation.Invitation, error) {
	i.Status = invitation.StatusSent
	i.SentAt = time.Now().UTC()

	return invitations.Put(ns, i)
}

func markFailed(
	invitations invitation.Service,
	ns string,
	i *invitation.Invitation,
) (*invitation.Invitation, error) {
	i.Status = invitation.StatusFailed

	return invitations.Put(ns, i)
}
