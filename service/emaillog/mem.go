package emaillog

import (
	"sort"
	"time"

	"github.com/soiree/soiree/platform/flake"
)

type memService struct {
	logs map[string]List
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		logs: map[string]List{},
	}
}

func (s *memService) Put(ns string, input *EmailLog) (*EmailLog, error) {
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
	input.Error = truncateError(input.Error)

	s.logs[ns] = append(s.logs[ns], cloneEmailLog(input))

	return cloneEmailLog(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	if err := s.Setup(ns); err != nil {
		return nil, err
	}

	ls := filterList(s.logs[ns], opts)

	if opts.Limit > 0 && uint(len(ls)) > opts.Limit {
		ls = ls[:opts.Limit]
	}

	return ls, nil
}

func (s *memService) Setup(ns string) error {
	if _, ok := s.logs[ns]; !ok {
		s.logs[ns] = List{}
	}

	return nil
}

func (s *memService) Teardown(ns string) error {
	if _, ok := s.logs[ns]; ok {
		delete(s.logs, ns)
	}

	return nil
}

func cloneEmailLog(l *EmailLog) *EmailLog {
	clone := *l
	return &clone
}

func filterList(ls List, opts QueryOptions) List {
	fs := List{}

	for _, l := range ls {
		if !opts.Before.IsZero() && !l.CreatedAt.Before(opts.Before) {
			continue
		}

		if !containsID(l.EventID, opts.EventIDs...) {
			continue
		}

		if !containsID(l.ID, opts.IDs...) {
			continue
		}

		if !containsID(l.InvitationID, opts.InvitationIDs...) {
			continue
		}

		if !containsStatus(l.Status, opts.Statuses...) {
			continue
		}

		fs = append(fs, cloneEmailLog(l))
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
