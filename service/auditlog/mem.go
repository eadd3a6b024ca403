package auditlog

import (
	"sort"
	"time"

	"github.com/soiree/soiree/platform/flake"
)

type memService struct {
	entries map[string]List
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		entries: map[string]List{},
	}
}

func (s *memService) Put(ns string, input *Entry) (*Entry, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	id, err := flake.NextID(flake.Namespace(ns, entity))
	if err != nil {
		return nil, err
	}

	input.ID = id
	input.CreatedAt = time.Now().UTC()
	input.UserAgent = truncateUserAgent(input.UserAgent)

	s.entries[ns] = append(s.entries[ns], cloneEntry(input))

	return cloneEntry(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	es := filterList(s.entries[ns], opts)

	if opts.Limit > 0 && uint(len(es)) > opts.Limit {
		es = es[:opts.Limit]
	}

	return es, nil
}

func (s *memService) Setup(ns string) error {
	if _, ok := s.entries[ns]; !ok {
		s.entries[ns] = List{}
	}

	return nil
}

func (s *memService) Teardown(ns string) error {
	if _, ok := s.entries[ns]; ok {
		delete(s.entries, ns)
	}

	return nil
}

func cloneEntry(e *Entry) *Entry {
	clone := *e

	if e.Meta != nil {
		clone.Meta = map[string]interface{}{}

		for k, v := range e.Meta {
			clone.Meta[k] = v
		}
	}

	return &clone
}

func filterList(es List, opts QueryOptions) List {
	fs := List{}

	for _, e := range es {
		if !opts.Before.IsZero() && !e.CreatedAt.Before(opts.Before) {
			continue
		}

		if !containsString(e.Action, opts.Actions...) {
			continue
		}

		if !containsID(e.ActorID, opts.ActorIDs...) {
			continue
		}

		if !containsID(e.ID, opts.IDs...) {
			continue
		}

		if !containsID(e.TargetID, opts.TargetIDs...) {
			continue
		}

		fs = append(fs, cloneEntry(e))
	}

	sort.Slice(fs, func(a, b int) bool {
		if fs[a].CreatedAt.Equal(fs[b].CreatedAt) {
			return fs[a].ID > fs[b].ID
		}

		return fs[a].CreatedAt.After(fs[b].CreatedAt)
	})

	return fs
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
