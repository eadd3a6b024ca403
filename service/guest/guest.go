package guest

import (
	"time"

	"github.com/soiree/soiree/platform/service"
)

const entity = "guest"

// Guest is one addressee on an event's list.
type Guest struct {
	CreatedAt  time.Time
	Deleted    bool
	Department string
	Email      string
	EventID    uint64
	ID         uint64
	Name       string
	Role       string
	UpdatedAt  time.Time
}

// Validate performs semantic checks on the Guest.
func (g *Guest) Validate() error {
	if g.EventID == 0 {
		return wrapError(ErrInvalidGuest, "event id must be set")
	}

	if g.Email == "" {
		return wrapError(ErrInvalidGuest, "email must be set")
	}

	return nil
}

// List is a collection of Guest.
type List []*Guest

// Map is a Guest collection keyed by id.
type Map map[uint64]*Guest

// QueryOptions to narrow-down Guest queries.
type QueryOptions struct {
	Before   time.Time
	Deleted  *bool
	Emails   []string
	EventIDs []uint64
	IDs      []uint64
	Limit    uint
}

// Service for Guest interactions. Put with a zero ID upserts on the unique
// (event, email) pair.
type Service interface {
	service.Lifecycle

	Put(namespace string, g *Guest) (*Guest, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service
