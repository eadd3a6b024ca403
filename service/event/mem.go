package event

import (
	"sort"
	"time"

	"github.com/soiree/soiree/platform/flake"
)

type memService struct {
	events map[string]Map
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		events: map[string]Map{},
	}
}

func (s *memService) Put(ns string, input *Event) (*Event, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		bucket = s.events[ns]
		now    = time.Now().UTC()
	)

	if input.ID == 0 {
		id, err := flake.NextID(flake.Namespace(ns, entity))
		if err != nil {
			return nil, err
		}

		input.ID = id
		input.CreatedAt = now
	} else {
		keep := false

		for _, e := range bucket {
			if e.ID == input.ID {
				keep = true
				input.CreatedAt = e.CreatedAt
			}
		}

		if !keep {
			return nil, ErrNotFound
		}
	}

	input.UpdatedAt = now
	bucket[input.ID] = cloneEvent(input)

	return cloneEvent(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	es := filterMap(s.events[ns], opts)

	if opts.Limit > 0 && uint(len(es)) > opts.Limit {
		es = es[:opts.Limit]
	}

	return es, nil
}

func (s *memService) Setup(ns string) error {
	if _, ok := s.events[ns]; !ok {
		s.events[ns] = Map{}
	}

	return nil
}

func (s *memService) Teardown(ns string) error {
	if _, ok := s.events[ns]; ok {
		delete(s.events, ns)
	}

	return nil
}

func cloneEvent(e *Event) *Event {
	clone := *e
	return &clone
}

func filterMap(em Map, opts QueryOptions) List {
	es := List{}

	for _, e := range em {
		if opts.Approved != nil && e.Approved != *opts.Approved {
			continue
		}

		if !opts.Before.IsZero() && !e.CreatedAt.Before(opts.Before) {
			continue
		}

		if opts.Hidden != nil && e.Hidden != *opts.Hidden {
			continue
		}

		if !containsID(e.ID, opts.IDs...) {
			continue
		}

		if !containsString(e.OwnerID, opts.OwnerIDs...) {
			continue
		}

		es = append(es, cloneEvent(e))
	}

	sort.Slice(es, func(a, b int) bool {
		if es[a].CreatedAt.Equal(es[b].CreatedAt) {
			return es[a].ID > es[b].ID
		}

		return es[a].CreatedAt.After(es[b].CreatedAt)
	})

	return es
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
