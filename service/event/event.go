package event

import (
	"time"

	"github.com/soiree/soiree/platform/service"
)

const entity = "event"

// Event is a gathering guests get invited to.
type Event struct {
	Approved  bool
	CreatedAt time.Time
	Hidden    bool
	ID        uint64
	Location  string
	OwnerID   string
	StartsAt  time.Time
	Title     string
	UpdatedAt time.Time
}

// Validate performs semantic checks on the Event.
func (e *Event) Validate() error {
	if e.OwnerID == "" {
		return wrapError(ErrInvalidEvent, "owner id must be set")
	}

	if e.Title == "" {
		return wrapError(ErrInvalidEvent, "title must be set")
	}

	return nil
}

// List is a collection of Event.
type List []*Event

// Map is an Event collection keyed by id.
type Map map[uint64]*Event

// QueryOptions to narrow-down Event queries.
type QueryOptions struct {
	Approved *bool
	Before   time.Time
	Hidden   *bool
	IDs      []uint64
	Limit    uint
	OwnerIDs []string
}

// Service for Event interactions.
type Service interface {
	service.Lifecycle

	Put(namespace string, e *Event) (*Event, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service
