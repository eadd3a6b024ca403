package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/soiree/soiree/core"
	"github.com/soiree/soiree/service/emaillog"
	"github.com/soiree/soiree/service/guest"
)

const defaultLogLimit = 100

// InviteSend runs the bulk delivery pipeline for an event. Admission is
// checked per operator and per client address before any work starts.
func InviteSend(fn core.InviteSendFunc, admit core.AdmitFunc) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		var (
			ns     = namespaceFromContext(ctx)
			origin = originFromContext(ctx)
		)

		eventID, err := extractEventID(r)
		if err != nil {
			respondError(w, 0, wrapError(ErrBadRequest, "event id must be a number"))
			return
		}

		admissions := []core.Admission{
			admit(
				core.RateKeySendUser(origin.UserID, eventID),
				core.SendLimitPerUser,
				core.SendLimitWindow,
			),
			admit(
				core.RateKeySendIP(origin.IP, eventID),
				core.SendLimitPerIP,
				core.SendLimitWindow,
			),
		}

		for _, a := range admissions {
			if a.Allowed {
				continue
			}

			retryAfter := int64(time.Until(a.ResetAt).Seconds()) + 1

			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			respondError(w, 0, wrapError(ErrLimitExceeded, "send quota exceeded"))
			return
		}

		p := payloadSend{}

		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			respondError(w, 0, wrapError(ErrBadRequest, "error in send payload"))
			return
		}

		gs := guest.List{}

		for _, g := range p.Guests {
			gs = append(gs, &guest.Guest{
				Department: g.Department,
				Email:      g.Email,
				Name:       g.Name,
				Role:       g.Role,
			})
		}

		res, err := fn(ns, origin, core.SendInput{
			EventID:  eventID,
			GuestIDs: p.GuestIDs,
			Guests:   gs,
			Message:  p.Message,
			Subject:  p.Subject,
		})
		if err != nil {
			respondError(w, 0, err)
			return
		}

		respondJSON(w, http.StatusAccepted, &payloadBatch{
			failed:  res.Failed,
			results: res.Results,
			sent:    res.Sent,
			total:   res.Total,
		})
	}
}

// InviteRetry re-dispatches failed invitations of an event.
func InviteRetry(fn core.InviteRetryFunc) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		var (
			ns     = namespaceFromContext(ctx)
			origin = originFromContext(ctx)
		)

		eventID, err := extractEventID(r)
		if err != nil {
			respondError(w, 0, wrapError(ErrBadRequest, "event id must be a number"))
			return
		}

		p := payloadRetry{}

		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			respondError(w, 0, wrapError(ErrBadRequest, "error in retry payload"))
			return
		}

		res, err := fn(ns, origin, core.RetryInput{
			EventID:       eventID,
			InvitationIDs: p.InvitationIDs,
			Limit:         p.Limit,
			Message:       p.Message,
			ScanLimit:     p.ScanLimit,
			Subject:       p.Subject,
		})
		if err != nil {
			respondError(w, 0, err)
			return
		}

		respondJSON(w, http.StatusAccepted, &payloadBatch{
			eligible: &res.Eligible,
			failed:   res.Failed,
			results:  res.Results,
			sent:     res.Sent,
			total:    len(res.Results),
		})
	}
}

// EmailLogList returns the recent delivery attempts of an event.
func EmailLogList(fn core.EmailLogListFunc) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		var (
			ns     = namespaceFromContext(ctx)
			origin = originFromContext(ctx)
		)

		eventID, err := extractEventID(r)
		if err != nil {
			respondError(w, 0, wrapError(ErrBadRequest, "event id must be a number"))
			return
		}

		limit := uint(defaultLogLimit)

		if raw := r.URL.Query().Get("limit"); raw != "" {
			l, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				respondError(w, 0, wrapError(ErrBadRequest, "limit must be a number"))
				return
			}

			limit = uint(l)
		}

		ls, err := fn(ns, origin, eventID, limit)
		if err != nil {
			respondError(w, 0, err)
			return
		}

		respondJSON(w, http.StatusOK, &payloadEmailLogs{logs: ls})
	}
}

func extractEventID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["eventID"], 10, 64)
}

type payloadSend struct {
	GuestIDs []uint64       `json:"guest_ids,omitempty"`
	Guests   []payloadGuest `json:"guests,omitempty"`
	Message  string         `json:"message"`
	Subject  string         `json:"subject"`
}

type payloadGuest struct {
	Department string `json:"department,omitempty"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
}

type payloadRetry struct {
	InvitationIDs []uint64 `json:"invitation_ids,omitempty"`
	Limit         uint     `json:"limit,omitempty"`
	Message       string   `json:"message,omitempty"`
	ScanLimit     uint     `json:"scan_limit,omitempty"`
	Subject       string   `json:"subject,omitempty"`
}

type payloadBatch struct {
	eligible *int
	failed   int
	results  []core.SendResult
	sent     int
	total    int
}

func (p *payloadBatch) MarshalJSON() ([]byte, error) {
	rs := []payloadSendResult{}

	for _, r := range p.results {
		rs = append(rs, payloadSendResult{
			Email:        r.Email,
			Error:        r.Error,
			GuestID:      r.GuestID,
			InvitationID: r.InvitationID,
			Status:       string(r.Status),
		})
	}

	return json.Marshal(struct {
		Eligible *int                `json:"eligible,omitempty"`
		Failed   int                 `json:"failed"`
		Results  []payloadSendResult `json:"results"`
		Sent     int                 `json:"sent"`
		Total    int                 `json:"total"`
	}{
		Eligible: p.eligible,
		Failed:   p.failed,
		Results:  rs,
		Sent:     p.sent,
		Total:    p.total,
	})
}

type payloadSendResult struct {
	Email        string `json:"email,omitempty"`
	Error        string `json:"error,omitempty"`
	GuestID      uint64 `json:"guest_id"`
	InvitationID uint64 `json:"invitation_id,omitempty"`
	Status       string `json:"status"`
}

type payloadEmailLogs struct {
	logs emaillog.List
}

func (p *payloadEmailLogs) MarshalJSON() ([]byte, error) {
	ls := []payloadEmailLog{}

	for _, l := range p.logs {
		ls = append(ls, payloadEmailLog{
			CreatedAt:         l.CreatedAt.Format(time.RFC3339),
			Error:             l.Error,
			EventID:           l.EventID,
			GuestID:           l.GuestID,
			ID:                l.ID,
			InvitationID:      l.InvitationID,
			Provider:          l.Provider,
			ProviderMessageID: l.ProviderMessageID,
			Status:            string(l.Status),
		})
	}

	return json.Marshal(struct {
		Logs []payloadEmailLog `json:"email_logs"`
	}{
		Logs: ls,
	})
}

type payloadEmailLog struct {
	CreatedAt         string `json:"created_at"`
	Error             string `json:"error,omitempty"`
	EventID           uint64 `json:"event_id"`
	GuestID           uint64 `json:"guest_id"`
	ID                uint64 `json:"id"`
	InvitationID      uint64 `json:"invitation_id"`
	Provider          string `json:"provider,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Status            string `json:"status"`
}
