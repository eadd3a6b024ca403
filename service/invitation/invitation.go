package invitation

import (
	"time"

	"github.com/soiree/soiree/platform/service"
)

const entity = "invitation"

// Status of an Invitation, validated at the store boundary.
type Status string

// Supported invitation statuses.
const (
	StatusQueued    Status = "queued"
	StatusSent      Status = "sent"
	StatusOpened    Status = "opened"
	StatusFailed    Status = "failed"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
)

var validStatuses = map[Status]struct{}{
	StatusQueued:    {},
	StatusSent:      {},
	StatusOpened:    {},
	StatusFailed:    {},
	StatusConfirmed: {},
	StatusDeclined:  {},
}

// Valid indicates if the Status is part of the closed set.
func (s Status) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}

// Response is the structured RSVP payload a guest submits.
type Response struct {
	Attending   bool   `json:"attending"`
	GuestsCount int    `json:"guests_count"`
	Comment     string `json:"comment"`
}

// Invitation is one addressed, trackable delivery of an event to one guest.
// The raw bearer token is never stored, only TokenHash.
type Invitation struct {
	CreatedAt   time.Time
	EventID     uint64
	GuestID     uint64
	ID          uint64
	OpenedAt    time.Time
	RespondedAt time.Time
	Response    *Response
	SentAt      time.Time
	Status      Status
	TokenHash   string
	UpdatedAt   time.Time
}

// Validate performs semantic checks on the Invitation.
func (i *Invitation) Validate() error {
	if i.EventID == 0 {
		return wrapError(ErrInvalidInvitation, "event id must be set")
	}

	if i.GuestID == 0 {
		return wrapError(ErrInvalidInvitation, "guest id must be set")
	}

	if i.TokenHash == "" {
		return wrapError(ErrInvalidInvitation, "token hash must be set")
	}

	if !i.Status.Valid() {
		return wrapError(ErrInvalidInvitation, "status '%s' not supported", i.Status)
	}

	return nil
}

// List is a collection of Invitation.
type List []*Invitation

// Map is an Invitation collection keyed by id.
type Map map[uint64]*Invitation

// QueryOptions to narrow-down Invitation queries.
type QueryOptions struct {
	Before      time.Time
	EventIDs    []uint64
	GuestIDs    []uint64
	IDs         []uint64
	Limit       uint
	Statuses    []Status
	TokenHashes []string
}

// Service for Invitation interactions. Put with a zero ID upserts on the
// unique (event, guest) pair, superseding any prior token for the pair.
type Service interface {
	service.Lifecycle

	Put(namespace string, i *Invitation) (*Invitation, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service
