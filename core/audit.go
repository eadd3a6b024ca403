package core

import (
	"github.com/soiree/soiree/service/auditlog"
)

// Audit actions recorded by the RSVP flow.
const (
	AuditRSVPConfirm = "rsvp.confirm"
	AuditRSVPDecline = "rsvp.decline"
)

// AuditRecordFunc appends an entry to the audit trail. A missing actor or
// action is a programmer error and fails loud, store failures are returned
// so callers can decide to swallow them.
type AuditRecordFunc func(
	ns string,
	actorID uint64,
	action string,
	entry *auditlog.Entry,
) (*auditlog.Entry, error)

// AuditRecord constructs an AuditRecordFunc.
func AuditRecord(audits auditlog.Service) AuditRecordFunc {
	return func(
		ns string,
		actorID uint64,
		action string,
		entry *auditlog.Entry,
	) (*auditlog.Entry, error) {
		if actorID == 0 {
			return nil, wrapError(ErrInvalidEntity, "audit actor must be set")
		}

		if action == "" {
			return nil, wrapError(ErrInvalidEntity, "audit action must be set")
		}

		if entry == nil {
			entry = &auditlog.Entry{}
		}

		entry.Action = action
		entry.ActorID = actorID

		return audits.Put(ns, entry)
	}
}
