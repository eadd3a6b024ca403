package guest

import (
	"sort"
	"time"

	"github.com/soiree/soiree/platform/flake"
)

type memService struct {
	guests map[string]Map
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		guests: map[string]Map{},
	}
}

func (s *memService) Put(ns string, input *Guest) (*Guest, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		bucket = s.guests[ns]
		now    = time.Now().UTC()
	)

	if input.ID == 0 {
		keep := false

		for _, g := range bucket {
			if g.EventID == input.EventID && g.Email == input.Email {
				input.ID = g.ID
				input.CreatedAt = g.CreatedAt
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

		for _, g := range bucket {
			if g.ID == input.ID {
				keep = true
				input.CreatedAt = g.CreatedAt
			}
		}

		if !keep {
			return nil, ErrNotFound
		}
	}

	input.UpdatedAt = now
	bucket[input.ID] = cloneGuest(input)

	return cloneGuest(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	gs := filterMap(s.guests[ns], opts)

	if opts.Limit > 0 && uint(len(gs)) > opts.Limit {
		gs = gs[:opts.Limit]
	}

	return gs, nil
}

func (s *memService) Setup(ns string) error {
	if _, ok := s.guests[ns]; !ok {
		s.guests[ns] = Map{}
	}

	return nil
}

func (s *memService) Teardown(ns string) error {
	if _, ok := s.guests[ns]; ok {
		delete(s.guests, ns)
	}

	return nil
}

func cloneGuest(g *Guest) *Guest {
	clone := *g
	return &clone
}

func filterMap(gm Map, opts QueryOptions) List {
	gs := List{}

	for _, g := range gm {
		if !opts.Before.IsZero() && !g.CreatedAt.Before(opts.Before) {
			continue
		}

		if opts.Deleted != nil && g.Deleted != *opts.Deleted {
			continue
		}

		if !containsString(g.Email, opts.Emails...) {
			continue
		}

		if !containsID(g.EventID, opts.EventIDs...) {
			continue
		}

		if !containsID(g.ID, opts.IDs...) {
			continue
		}

		gs = append(gs, cloneGuest(g))
	}

	sort.Slice(gs, func(a, b int) bool {
		if gs[a].CreatedAt.Equal(gs[b].CreatedAt) {
			return gs[a].ID < gs[b].ID
		}

		return gs[a].CreatedAt.Before(gs[b].CreatedAt)
	})

	return gs
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
