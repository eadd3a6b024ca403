package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/soiree/soiree/core"
	"github.com/soiree/soiree/service/auditlog"
	"github.com/soiree/soiree/service/guest"
	"github.com/soiree/soiree/service/invitation"
)

const testNamespace = "handler_test"

type guestRig struct {
	audits      auditlog.Service
	bearer      string
	guests      guest.Service
	invitations invitation.Service
	router      *mux.Router
}

func prepareGuestRig(t *testing.T, baseURL string) *guestRig {
	rig := &guestRig{
		audits:      auditlog.MemService(),
		guests:      guest.MemService(),
		invitations: invitation.MemService(),
		router:      mux.NewRouter(),
	}

	g, err := rig.guests.Put(testNamespace, &guest.Guest{
		Email:   "guest@example.com",
		EventID: 1,
		Name:    "Guest",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, bearer, err := core.InvitationCreate(rig.invitations)(
		testNamespace,
		g.EventID,
		g.ID,
	)
	if err != nil {
		t.Fatal(err)
	}

	rig.bearer = bearer

	var (
		chain   = Chain(CtxNamespace(testNamespace))
		respond = core.InviteRespond(rig.audits, rig.guests, rig.invitations)
	)

	rig.router.Methods("GET").Path("/0.1/invites/{token}/open.gif").HandlerFunc(
		Wrap(chain, InviteOpen(core.InviteOpen(rig.invitations))),
	)
	rig.router.Methods("GET", "POST").Path("/0.1/invites/{token}/confirm").HandlerFunc(
		Wrap(chain, InviteAnswer(respond, baseURL, invitation.StatusConfirmed)),
	)
	rig.router.Methods("GET", "POST").Path("/0.1/invites/{token}/decline").HandlerFunc(
		Wrap(chain, InviteAnswer(respond, baseURL, invitation.StatusDeclined)),
	)
	rig.router.Methods("POST").Path("/0.1/invites/{token}/rsvp").HandlerFunc(
		Wrap(chain, InviteRSVP(respond)),
	)

	return rig
}

func TestInviteOpenAlwaysPixel(t *testing.T) {
	rig := prepareGuestRig(t, "https://soiree.test")

	tokens := []string{
		rig.bearer,
		"bogus",
		strings.Repeat("a", 64),
	}

	for _, token := range tokens {
		var (
			req = httptest.NewRequest(
				"GET",
				fmt.Sprintf("/0.1/invites/%s/open.gif", token),
				nil,
			)
			rec = httptest.NewRecorder()
		)

		rig.router.ServeHTTP(rec, req)

		if have, want := rec.Code, http.StatusOK; have != want {
			t.Errorf("%q: have %v, want %v", token, have, want)
		}
		if have, want := rec.Header().Get("Content-Type"), "image/gif"; have != want {
			t.Errorf("%q: have %v, want %v", token, have, want)
		}
		if have, want := rec.Header().Get("Cache-Control"), "no-store"; have != want {
			t.Errorf("%q: have %v, want %v", token, have, want)
		}
		if !bytes.Equal(rec.Body.Bytes(), pixelGIF) {
			t.Errorf("%q: body is not the pixel", token)
		}
	}

	is, err := rig.invitations.Query(testNamespace, invitation.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(is), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}
	if have, want := is[0].Status, invitation.StatusOpened; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteAnswerRedirect(t *testing.T) {
	var (
		baseURL = "https://soiree.test"
		rig     = prepareGuestRig(t, baseURL)
		req     = httptest.NewRequest(
			"GET",
			fmt.Sprintf("/0.1/invites/%s/confirm", rig.bearer),
			nil,
		)
		rec = httptest.NewRecorder()
	)

	rig.router.ServeHTTP(rec, req)

	if have, want := rec.Code, http.StatusSeeOther; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	location := fmt.Sprintf("%s/rsvp/%s?status=confirmed", baseURL, rig.bearer)

	if have, want := rec.Header().Get("Location"), location; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteAnswerUnknownToken(t *testing.T) {
	var (
		rig = prepareGuestRig(t, "https://soiree.test")
		req = httptest.NewRequest(
			"POST",
			fmt.Sprintf("/0.1/invites/%s/decline", strings.Repeat("b", 64)),
			nil,
		)
		rec = httptest.NewRecorder()
	)

	rig.router.ServeHTTP(rec, req)

	if have, want := rec.Code, http.StatusNotFound; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteRSVP(t *testing.T) {
	var (
		rig  = prepareGuestRig(t, "https://soiree.test")
		body = bytes.NewBufferString(
			`{"attending": true, "guests_count": 3, "comment": "bringing the kids"}`,
		)
		req = httptest.NewRequest(
			"POST",
			fmt.Sprintf("/0.1/invites/%s/rsvp", rig.bearer),
			body,
		)
		rec = httptest.NewRecorder()
	)

	rig.router.ServeHTTP(rec, req)

	if have, want := rec.Code, http.StatusOK; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	f := struct {
		Duplicate   bool   `json:"duplicate"`
		GuestsCount int    `json:"guests_count"`
		OK          bool   `json:"ok"`
		Status      string `json:"status"`
	}{}

	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}

	if have, want := f.OK, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := f.Status, string(invitation.StatusConfirmed); have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := f.GuestsCount, 3; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := f.Duplicate, false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}
