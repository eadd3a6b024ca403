package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/soiree/soiree/core"
	"github.com/soiree/soiree/platform/limiter"
	"github.com/soiree/soiree/platform/mailer"
	"github.com/soiree/soiree/service/emaillog"
	"github.com/soiree/soiree/service/event"
	"github.com/soiree/soiree/service/guest"
	"github.com/soiree/soiree/service/invitation"
)

type operatorRig struct {
	event  *event.Event
	router *mux.Router
}

func prepareOperatorRig(t *testing.T) *operatorRig {
	var (
		events      = event.MemService()
		guests      = guest.MemService()
		invitations = invitation.MemService()
		logs        = emaillog.MemService()
		cfg         = core.DeliveryConfig{
			BaseURL:  "https://soiree.test",
			Provider: "nop",
			Sleep:    func(time.Duration) {},
		}
		send = core.InviteSend(
			events,
			guests,
			invitations,
			logs,
			mailer.NopService(),
			nil,
			cfg,
		)
		admit = core.Admit(limiter.Mem())
		chain = Chain(CtxNamespace(testNamespace), CtxOrigin())
	)

	ev, err := events.Put(testNamespace, &event.Event{
		Approved: true,
		OwnerID:  "owner-1",
		Title:    "Launch party",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := guests.Put(testNamespace, &guest.Guest{
		Email:   "guest@example.com",
		EventID: ev.ID,
		Name:    "Guest",
	}); err != nil {
		t.Fatal(err)
	}

	router := mux.NewRouter()

	router.Methods("POST").Path("/0.1/events/{eventID}/invites").HandlerFunc(
		Wrap(chain, InviteSend(send, admit)),
	)

	return &operatorRig{
		event:  ev,
		router: router,
	}
}

func (rig *operatorRig) send(role string) *httptest.ResponseRecorder {
	var (
		body = bytes.NewBufferString(
			`{"subject": "Launch party", "message": "Join us for the launch."}`,
		)
		req = httptest.NewRequest(
			"POST",
			fmt.Sprintf("/0.1/events/%d/invites", rig.event.ID),
			body,
		)
		rec = httptest.NewRecorder()
	)

	if role != "" {
		req.Header.Set(headerAuthRole, role)
		req.Header.Set(headerAuthUser, "op-1")
	}

	rig.router.ServeHTTP(rec, req)

	return rec
}

func TestInviteSendAccepted(t *testing.T) {
	var (
		rig = prepareOperatorRig(t)
		rec = rig.send(core.RoleSender)
	)

	if have, want := rec.Code, http.StatusAccepted; have != want {
		t.Fatalf("have %v, want %v: %s", have, want, rec.Body.String())
	}

	f := struct {
		Failed int `json:"failed"`
		Sent   int `json:"sent"`
		Total  int `json:"total"`
	}{}

	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}

	if have, want := f.Sent, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := f.Failed, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := f.Total, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteSendMissingIdentity(t *testing.T) {
	var (
		rig = prepareOperatorRig(t)
		rec = rig.send("")
	)

	if have, want := rec.Code, http.StatusUnauthorized; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteSendForbiddenRole(t *testing.T) {
	var (
		rig = prepareOperatorRig(t)
		rec = rig.send("viewer")
	)

	if have, want := rec.Code, http.StatusForbidden; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteSendRateLimited(t *testing.T) {
	rig := prepareOperatorRig(t)

	for i := 0; i < int(core.SendLimitPerUser); i++ {
		rec := rig.send(core.RoleSender)

		if have, want := rec.Code, http.StatusAccepted; have != want {
			t.Fatalf("request %d: have %v, want %v", i, have, want)
		}
	}

	rec := rig.send(core.RoleSender)

	if have, want := rec.Code, 429; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}
