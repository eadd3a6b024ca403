package invitation

import (
	"sort"
	"time"

	"github.com/soiree/soiree/platform/flake"
)

type memService struct {
	invitations map[string]Map
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		invitations: map[string]Map{},
	}
}

func (s *memService) Put(ns string, input *Invitation) (*Invitation, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		bucket = s.invitations[ns]
		now    = time.Now().UTC()
	)

	if input.ID == 0 {
		keep := false

		// Upsert on the unique (event, guest) pair, a repeated Put
		// supersedes the prior token.
		for _, i := range bucket {
			if i.EventID == input.EventID && i.GuestID == input.GuestID {
				input.ID = i.ID
				input.CreatedAt = i.CreatedAt
				input.SentAt = i.SentAt
				input.OpenedAt = i.OpenedAt
				input.RespondedAt = i.RespondedAt

				if input.Response == nil {
					input.Response = i.Response
				}

				keep = true
			}
		}

		if !keep {
			id, err := flake.NextID(flake.Namespace(ns, entity))
			if err != nil {
				return nil, err
			}

			input.ID = id
			input.CreatedAt = now
		}
	} else {
		keep := false

		for _, i := range bucket {
			if i.ID == input.ID {
				keep = true
				input.CreatedAt = i.CreatedAt
			}
		}

		if !keep {
			return nil, ErrNotFound
		}
	}

	input.UpdatedAt = now
	bucket[input.ID] = cloneInvitation(input)

	return cloneInvitation(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	is := filterMap(s.invitations[ns], opts)

	if opts.Limit > 0 && uint(len(is)) > opts.Limit {
		is = is[:opts.Limit]
	}

	return is, nil
}

func (s *memService) Setup(ns string) error {
	if _, ok := s.invitations[ns]; !ok {
		s.invitations[ns] = Map{}
	}

	return nil
}

func (s *memService) Teardown(ns string) error {
	if _, ok := s.invitations[ns]; ok {
		delete(s.invitations, ns)
	}

	return nil
}

func cloneInvitation(i *Invitation) *Invitation {
	clone := *i

	if i.Response != nil {
		r := *i.Response
		clone.Response = &r
	}

	return &clone
}

func filterMap(im Map, opts QueryOptions) List {
	is := List{}

	for _, i := range im {
		if !opts.Before.IsZero() && !i.CreatedAt.Before(opts.Before) {
			continue
		}

		if !containsID(i.EventID, opts.EventIDs...) {
			continue
		}

		if !containsID(i.GuestID, opts.GuestIDs...) {
			continue
		}

		if !containsID(i.ID, opts.IDs...) {
			continue
		}

		if !containsStatus(i.Status, opts.Statuses...) {
			continue
		}

		if !containsString(i.TokenHash, opts.TokenHashes...) {
			continue
		}

		is = append(is, cloneInvitation(i))
	}

	sort.Slice(is, func(a, b int) bool {
		return is[a].CreatedAt.After(is[b].CreatedAt)
	})

	return is
}

func containsID(id uint64, ids ...uint64) bool {
	if len(ids) == 0 {
		return true
	}

	for _, i := range ids {
		if id == i {
			return true
		}
	}

	return false
}

func containsStatus(status Status, ss ...Status) bool {
	if len(ss) == 0 {
		return true
	}

	for _, s := range ss {
		if status == s {
			return true
		}
	}

	return false
}

func containsString(s string, ts ...string) bool {
	if len(ts) == 0 {
		return true
	}

	for _, t := range ts {
		if s == t {
			return true
		}
	}

	return false
}
