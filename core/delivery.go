package core

import (
	"fmt"
	"time"

	"github.com/soiree/soiree/platform/mailer"
	"github.com/soiree/soiree/platform/renderer"
	"github.com/soiree/soiree/platform/token"
	"github.com/soiree/soiree/service/emaillog"
	"github.com/soiree/soiree/service/event"
	"github.com/soiree/soiree/service/guest"
	"github.com/soiree/soiree/service/invitation"
)

// Bounds on operator batches.
const (
	MaxGuestsPerBatch      = 2000
	MaxInvitationsPerEvent = 5000
	MaxMessageLength       = 5000
	MaxSubjectLength       = 200
	MinMessageLength       = 3
	MinSubjectLength       = 3
)

// Clamps and defaults for retry scans over the email log.
const (
	RetryLimitDefault = 200
	RetryLimitMax     = 2000
	RetryScanDefault  = 5000
	RetryScanMax      = 20000
	RetryScanMin      = 100
)

// DefaultSendDelay is the pause between consecutive dispatches, keeping the
// relay's throttle happy.
const DefaultSendDelay = 300 * time.Millisecond

const (
	defaultRetrySubject = "You're invited: %s"
	defaultRetryBody    = "We couldn't reach you earlier. Your invitation to %s is still waiting, use the buttons below to let us know if you can make it."
)

// DeliveryConfig tunes the outbound pipeline.
type DeliveryConfig struct {
	// BaseURL is the public origin invite links are built on.
	BaseURL string
	// Provider is the transport name recorded with every email log row.
	Provider string
	// SendDelay is the pause between consecutive dispatches,
	// DefaultSendDelay when zero.
	SendDelay time.Duration
	// Sleep is swappable for tests, time.Sleep when nil.
	Sleep func(time.Duration)
}

// SendInput is one operator batch request. Guests carries admin supplied
// upserts, GuestIDs narrows the stored list, both empty means every stored
// guest of the event.
type SendInput struct {
	EventID  uint64
	GuestIDs []uint64
	Guests   guest.List
	Message  string
	Subject  string
}

// SendResult is the per-recipient outcome of a batch.
type SendResult struct {
	Email        string
	Error        string
	GuestID      uint64
	InvitationID uint64
	Status       invitation.Status
}

// BatchResult sums up a send batch. Failed recipients never abort the rest.
type BatchResult struct {
	Failed  int
	Results []SendResult
	Sent    int
	Total   int
}

// RetryInput is one operator retry request. Explicit InvitationIDs win over
// inference from the email log.
type RetryInput struct {
	EventID       uint64
	InvitationIDs []uint64
	Limit         uint
	Message       string
	ScanLimit     uint
	Subject       string
}

// RetryResult sums up a retry batch.
type RetryResult struct {
	Eligible int
	Failed   int
	Results  []SendResult
	Sent     int
}

// InviteSendFunc runs the delivery pipeline for one operator batch.
type InviteSendFunc func(
	ns string,
	origin Origin,
	input SendInput,
) (*BatchResult, error)

// InviteSend constructs an InviteSendFunc.
func InviteSend(
	events event.Service,
	guests guest.Service,
	invitations invitation.Service,
	logs emaillog.Service,
	mail mailer.Service,
	render renderer.Service,
	cfg DeliveryConfig,
) InviteSendFunc {
	d := newDeliverer(guests, invitations, logs, mail, render, cfg)

	return func(
		ns string,
		origin Origin,
		input SendInput,
	) (*BatchResult, error) {
		if err := canPerform(origin, ActionInviteSend); err != nil {
			return nil, err
		}

		if mail == nil {
			return nil, wrapError(ErrMisconfigured, "no mail transport")
		}

		if err := validateCopy(input.Subject, input.Message); err != nil {
			return nil, err
		}

		ev, err := loadEvent(events, ns, input.EventID, origin)
		if err != nil {
			return nil, err
		}

		targets, err := resolveTargets(guests, ns, origin, input)
		if err != nil {
			return nil, err
		}

		if len(targets) == 0 {
			return nil, wrapError(ErrInvalidEntity, "no guests to send to")
		}

		if err := constrainEventCap(invitations, ns, ev.ID, targets); err != nil {
			return nil, err
		}

		res := &BatchResult{
			Results: []SendResult{},
		}

		for _, g := range targets {
			r := d.deliver(ns, ev, g, nil, input.Subject, input.Message)

			res.Results = append(res.Results, r)
			res.Total++

			if r.Status == invitation.StatusSent {
				res.Sent++
				d.pause()
			} else {
				res.Failed++
			}
		}

		return res, nil
	}
}

// InviteRetryFunc re-dispatches failed invitations of an event, rotating
// their tokens.
type InviteRetryFunc func(
	ns string,
	origin Origin,
	input RetryInput,
) (*RetryResult, error)

// InviteRetry constructs an InviteRetryFunc.
func InviteRetry(
	events event.Service,
	guests guest.Service,
	invitations invitation.Service,
	logs emaillog.Service,
	mail mailer.Service,
	render renderer.Service,
	cfg DeliveryConfig,
) InviteRetryFunc {
	d := newDeliverer(guests, invitations, logs, mail, render, cfg)

	return func(
		ns string,
		origin Origin,
		input RetryInput,
	) (*RetryResult, error) {
		if err := canPerform(origin, ActionInviteRetry); err != nil {
			return nil, err
		}

		if mail == nil {
			return nil, wrapError(ErrMisconfigured, "no mail transport")
		}

		ev, err := loadEvent(events, ns, input.EventID, origin)
		if err != nil {
			return nil, err
		}

		subject := input.Subject
		if subject == "" {
			subject = fmt.Sprintf(defaultRetrySubject, ev.Title)
		}

		message := input.Message
		if message == "" {
			message = fmt.Sprintf(defaultRetryBody, ev.Title)
		}

		if err := validateCopy(subject, message); err != nil {
			return nil, err
		}

		eligible, err := d.eligible(ns, ev.ID, input)
		if err != nil {
			return nil, err
		}

		res := &RetryResult{
			Eligible: len(eligible),
			Results:  []SendResult{},
		}

		for _, i := range eligible {
			g, err := d.loadGuest(ns, i.GuestID)
			if err != nil {
				r := SendResult{
					Error:        err.Error(),
					GuestID:      i.GuestID,
					InvitationID: i.ID,
					Status:       invitation.StatusFailed,
				}

				res.Results = append(res.Results, r)
				res.Failed++

				continue
			}

			r := d.deliver(ns, ev, g, i, subject, message)

			res.Results = append(res.Results, r)

			if r.Status == invitation.StatusSent {
				res.Sent++
				d.pause()
			} else {
				res.Failed++
			}
		}

		return res, nil
	}
}

// EmailLogListFunc exposes the recent delivery attempts of an event to
// operators.
type EmailLogListFunc func(
	ns string,
	origin Origin,
	eventID uint64,
	limit uint,
) (emaillog.List, error)

// EmailLogList constructs an EmailLogListFunc.
func EmailLogList(
	events event.Service,
	logs emaillog.Service,
) EmailLogListFunc {
	return func(
		ns string,
		origin Origin,
		eventID uint64,
		limit uint,
	) (emaillog.List, error) {
		if err := canPerform(origin, ActionInviteLogs); err != nil {
			return nil, err
		}

		if _, err := loadEvent(events, ns, eventID, origin); err != nil {
			return nil, err
		}

		if limit == 0 || limit > RetryLimitMax {
			return nil, wrapError(
				ErrInvalidEntity,
				"limit must be in [1,%d]",
				RetryLimitMax,
			)
		}

		return logs.Query(ns, emaillog.QueryOptions{
			EventIDs: []uint64{
				eventID,
			},
			Limit: limit,
		})
	}
}

type deliverer struct {
	cfg         DeliveryConfig
	guests      guest.Service
	invitations invitation.Service
	logs        emaillog.Service
	mail        mailer.Service
	render      renderer.Service
}

func newDeliverer(
	guests guest.Service,
	invitations invitation.Service,
	logs emaillog.Service,
	mail mailer.Service,
	render renderer.Service,
	cfg DeliveryConfig,
) *deliverer {
	if cfg.SendDelay == 0 {
		cfg.SendDelay = DefaultSendDelay
	}

	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	return &deliverer{
		cfg:         cfg,
		guests:      guests,
		invitations: invitations,
		logs:        logs,
		mail:        mail,
		render:      render,
	}
}

// deliver runs the full per-recipient flow. A nil invitation means a fresh
// issue, a given one gets its token rotated. All failure paths end in the
// returned result, never an error.
func (d *deliverer) deliver(
	ns string,
	ev *event.Event,
	g *guest.Guest,
	i *invitation.Invitation,
	subject, message string,
) SendResult {
	r := SendResult{
		Email:   g.Email,
		GuestID: g.ID,
	}

	if g.Email == "" {
		r.Error = "guest has no email address"
		r.Status = invitation.StatusFailed

		return r
	}

	bearer, hash, err := token.New()
	if err != nil {
		r.Error = err.Error()
		r.Status = invitation.StatusFailed

		return r
	}

	if i == nil {
		i = &invitation.Invitation{
			EventID: ev.ID,
			GuestID: g.ID,
		}
	}

	i.Status = invitation.StatusQueued
	i.TokenHash = hash

	i, err = d.invitations.Put(ns, i)
	if err != nil {
		r.Error = err.Error()
		r.Status = invitation.StatusFailed

		return r
	}

	r.InvitationID = i.ID

	d.logAttempt(ns, i, emaillog.StatusQueued, "", "")

	var card []byte

	if d.render != nil {
		// Card rendering is decoration, a failure here must not cost the
		// recipient their invite.
		card, _ = d.render.Render(
			fmt.Sprintf("%s/view/%s", d.cfg.BaseURL, bearer),
		)
	}

	msg, err := inviteMessage(
		d.cfg.BaseURL,
		subject,
		message,
		ev,
		g,
		bearer,
		card,
	)
	if err != nil {
		return d.failed(ns, i, r, err)
	}

	providerID, err := d.mail.Send(msg)
	if err != nil {
		return d.failed(ns, i, r, err)
	}

	if _, err := markSent(d.invitations, ns, i); err != nil {
		return d.failed(ns, i, r, err)
	}

	d.logAttempt(ns, i, emaillog.StatusSent, providerID, "")

	r.Status = invitation.StatusSent

	return r
}

func (d *deliverer) failed(
	ns string,
	i *invitation.Invitation,
	r SendResult,
	err error,
) SendResult {
	_, _ = markFailed(d.invitations, ns, i)

	d.logAttempt(ns, i, emaillog.StatusFailed, "", err.Error())

	r.Error = err.Error()
	r.Status = invitation.StatusFailed

	return r
}

func (d *deliverer) logAttempt(
	ns string,
	i *invitation.Invitation,
	status emaillog.Status,
	providerID, errMsg string,
) {
	_, _ = d.logs.Put(ns, &emaillog.EmailLog{
		Error:             errMsg,
		EventID:           i.EventID,
		GuestID:           i.GuestID,
		InvitationID:      i.ID,
		Provider:          d.cfg.Provider,
		ProviderMessageID: providerID,
		Status:            status,
	})
}

// eligible picks the invitations worth another attempt. Explicit IDs are
// honored regardless of current status, they are the recovery path for
// invitations stuck in queued after an interrupted batch. Otherwise the most
// recent email log row per invitation decides.
func (d *deliverer) eligible(
	ns string,
	eventID uint64,
	input RetryInput,
) (invitation.List, error) {
	limit := clamp(input.Limit, 1, RetryLimitMax, RetryLimitDefault)

	if len(input.InvitationIDs) > 0 {
		return d.invitations.Query(ns, invitation.QueryOptions{
			EventIDs: []uint64{
				eventID,
			},
			IDs:   input.InvitationIDs,
			Limit: limit,
		})
	}

	scan := clamp(input.ScanLimit, RetryScanMin, RetryScanMax, RetryScanDefault)

	ls, err := d.logs.Query(ns, emaillog.QueryOptions{
		EventIDs: []uint64{
			eventID,
		},
		Limit: scan,
	})
	if err != nil {
		return nil, err
	}

	var (
		ids  = []uint64{}
		seen = map[uint64]struct{}{}
	)

	for _, l := range ls {
		if _, ok := seen[l.InvitationID]; ok {
			continue
		}

		seen[l.InvitationID] = struct{}{}

		if l.Status != emaillog.StatusFailed {
			continue
		}

		ids = append(ids, l.InvitationID)

		if uint(len(ids)) == limit {
			break
		}
	}

	if len(ids) == 0 {
		return invitation.List{}, nil
	}

	return d.invitations.Query(ns, invitation.QueryOptions{
		IDs: ids,
		Statuses: []invitation.Status{
			invitation.StatusFailed,
		},
	})
}

func (d *deliverer) loadGuest(ns string, id uint64) (*guest.Guest, error) {
	gs, err := d.guests.Query(ns, guest.QueryOptions{
		IDs: []uint64{
			id,
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}

	if len(gs) == 0 {
		return nil, ErrNotFound
	}

	return gs[0], nil
}

func (d *deliverer) pause() {
	d.cfg.Sleep(d.cfg.SendDelay)
}

func loadEvent(
	events event.Service,
	ns string,
	id uint64,
	origin Origin,
) (*event.Event, error) {
	es, err := events.Query(ns, event.QueryOptions{
		IDs: []uint64{
			id,
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}

	if len(es) == 0 {
		return nil, ErrNotFound
	}

	ev := es[0]

	// A hidden event is indistinguishable from a missing one for everybody
	// but admins.
	if ev.Hidden && !origin.IsAdmin() {
		return nil, ErrNotFound
	}

	if !ev.Approved && !origin.IsAdmin() {
		return nil, wrapError(ErrUnauthorized, "event %d awaits approval", id)
	}

	return ev, nil
}

func resolveTargets(
	guests guest.Service,
	ns string,
	origin Origin,
	input SendInput,
) (guest.List, error) {
	if len(input.Guests) > 0 {
		if !origin.IsAdmin() {
			return nil, wrapError(
				ErrUnauthorized,
				"only admins may supply guests inline",
			)
		}

		if len(input.Guests) > MaxGuestsPerBatch {
			return nil, wrapError(
				ErrInvalidEntity,
				"batch of %d exceeds %d guests",
				len(input.Guests),
				MaxGuestsPerBatch,
			)
		}

		ts := guest.List{}

		for _, g := range input.Guests {
			g.EventID = input.EventID

			g, err := guests.Put(ns, g)
			if err != nil {
				return nil, wrapError(ErrInvalidEntity, "guest %s", err)
			}

			ts = append(ts, g)
		}

		return ts, nil
	}

	active := false

	ts, err := guests.Query(ns, guest.QueryOptions{
		Deleted: &active,
		EventIDs: []uint64{
			input.EventID,
		},
		IDs: input.GuestIDs,
	})
	if err != nil {
		return nil, err
	}

	if len(ts) > MaxGuestsPerBatch {
		return nil, wrapError(
			ErrInvalidEntity,
			"batch of %d exceeds %d guests",
			len(ts),
			MaxGuestsPerBatch,
		)
	}

	return ts, nil
}

func constrainEventCap(
	invitations invitation.Service,
	ns string,
	eventID uint64,
	targets guest.List,
) error {
	is, err := invitations.Query(ns, invitation.QueryOptions{
		EventIDs: []uint64{
			eventID,
		},
	})
	if err != nil {
		return err
	}

	existing := map[uint64]struct{}{}

	for _, i := range is {
		existing[i.GuestID] = struct{}{}
	}

	fresh := 0

	for _, g := range targets {
		if _, ok := existing[g.ID]; !ok {
			fresh++
		}
	}

	if len(is)+fresh > MaxInvitationsPerEvent {
		return wrapError(
			ErrInvalidEntity,
			"event %d would exceed %d invitations",
			eventID,
			MaxInvitationsPerEvent,
		)
	}

	return nil
}

func validateCopy(subject, message string) error {
	if len(subject) < MinSubjectLength || len(subject) > MaxSubjectLength {
		return wrapError(
			ErrInvalidEntity,
			"subject length must be in [%d,%d]",
			MinSubjectLength,
			MaxSubjectLength,
		)
	}

	if len(message) < MinMessageLength || len(message) > MaxMessageLength {
		return wrapError(
			ErrInvalidEntity,
			"message length must be in [%d,%d]",
			MinMessageLength,
			MaxMessageLength,
		)
	}

	return nil
}

func clamp(v, min, max, def uint) uint {
	if v == 0 {
		return def
	}

	if v < min {
		return min
	}

	if v > max {
		return max
	}

	return v
}
