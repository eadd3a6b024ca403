package auditlog

import (
	"time"

	"github.com/soiree/soiree/platform/service"
)

const entity = "auditlog"

// MaxUserAgentLength bounds the user-agent persisted with an entry.
const MaxUserAgentLength = 400

// Entry is one row of the append-only record of security-relevant actions.
type Entry struct {
	Action      string
	ActorID     uint64
	CreatedAt   time.Time
	ID          uint64
	IP          string
	Meta        map[string]interface{}
	TargetEmail string
	TargetID    uint64
	UserAgent   string
}

// Validate performs semantic checks on the Entry. Actor and action are
// required, everything else is optional context.
func (e *Entry) Validate() error {
	if e.ActorID == 0 {
		return wrapError(ErrInvalidEntry, "actor id must be set")
	}

	if e.Action == "" {
		return wrapError(ErrInvalidEntry, "action must be set")
	}

	return nil
}

// List is a collection of Entry ordered by recency.
type List []*Entry

// QueryOptions to narrow-down Entry queries.
type QueryOptions struct {
	Actions   []string
	ActorIDs  []uint64
	Before    time.Time
	IDs       []uint64
	Limit     uint
	TargetIDs []uint64
}

// Service for audit Entry interactions, append-only.
type Service interface {
	service.Lifecycle

	Put(namespace string, e *Entry) (*Entry, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service

func truncateUserAgent(ua string) string {
	if len(ua) > MaxUserAgentLength {
		return ua[:MaxUserAgentLength]
	}

	return ua
}
