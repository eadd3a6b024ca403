package emaillog

import (
	"time"

	"github.com/soiree/soiree/platform/service"
)

const entity = "emaillog"

// MaxErrorLength bounds the error text persisted with a failed attempt.
const MaxErrorLength = 2000

// Status of a delivery attempt.
type Status string

// Supported attempt statuses.
const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

var validStatuses = map[Status]struct{}{
	StatusQueued: {},
	StatusSent:   {},
	StatusFailed: {},
}

// Valid indicates if the Status is part of the closed set.
func (s Status) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}

// EmailLog is one row of the append-only audit trail of delivery attempts,
// one row per attempt, never mutated.
type EmailLog struct {
	CreatedAt         time.Time
	Error             string
	EventID           uint64
	GuestID           uint64
	ID                uint64
	InvitationID      uint64
	Provider          string
	ProviderMessageID string
	Status            Status
}

// Validate performs semantic checks on the EmailLog.
func (l *EmailLog) Validate() error {
	if l.InvitationID == 0 {
		return wrapError(ErrInvalidEmailLog, "invitation id must be set")
	}

	if !l.Status.Valid() {
		return wrapError(ErrInvalidEmailLog, "status '%s' not supported", l.Status)
	}

	if l.Status == StatusFailed && l.Error == "" {
		return wrapError(ErrInvalidEmailLog, "failed attempt must carry an error")
	}

	return nil
}

// List is a collection of EmailLog ordered by recency.
type List []*EmailLog

// QueryOptions to narrow-down EmailLog queries.
type QueryOptions struct {
	Before        time.Time
	EventIDs      []uint64
	IDs           []uint64
	InvitationIDs []uint64
	Limit         uint
	Statuses      []Status
}

// Service for EmailLog interactions. Put only ever appends, updates are not
// part of the contract.
type Service interface {
	service.Lifecycle

	Put(namespace string, l *EmailLog) (*EmailLog, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service

func truncateError(err string) string {
	if len(err) > MaxErrorLength {
		return err[:MaxErrorLength]
	}

	return err
}
