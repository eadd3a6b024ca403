package core

import (
	"strings"
	"testing"

	"github.com/soiree/soiree/service/auditlog"
	"github.com/soiree/soiree/service/invitation"
)

func TestInvitationCreateRotation(t *testing.T) {
	var (
		namespace = "core_invitation_rotation"
		b         = prepareBackend()
		ev        = b.createEvent(t, namespace)
		gs        = b.createGuests(t, namespace, ev.ID, 1)
		create    = InvitationCreate(b.invitations)
		resolve   = InvitationResolve(b.invitations)
	)

	first, firstBearer, err := create(namespace, ev.ID, gs[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	second, secondBearer, err := create(namespace, ev.ID, gs[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := second.ID, first.ID; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if first.TokenHash == second.TokenHash {
		t.Error("token survived the rotation")
	}

	_, err = resolve(namespace, firstBearer)
	if have, want := IsNotFound(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	i, err := resolve(namespace, secondBearer)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := i.ID, second.ID; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInvitationResolveMisses(t *testing.T) {
	var (
		namespace = "core_invitation_misses"
		b         = prepareBackend()
		resolve   = InvitationResolve(b.invitations)
	)

	bearers := []string{
		"",
		"##invalid##",
		"short",
		strings.Repeat("a", 64),
	}

	for _, bearer := range bearers {
		_, err := resolve(namespace, bearer)

		if have, want := IsNotFound(err), true; have != want {
			t.Errorf("%q: have %v, want %v", bearer, have, want)
		}
	}
}

func TestInviteOpen(t *testing.T) {
	var (
		namespace = "core_open"
		b         = prepareBackend()
		ev        = b.createEvent(t, namespace)
		gs        = b.createGuests(t, namespace, ev.ID, 1)
		create    = InvitationCreate(b.invitations)
		open      = InviteOpen(b.invitations)
		respond   = InviteRespond(b.audits, b.guests, b.invitations)
	)

	i, bearer, err := create(namespace, ev.ID, gs[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	// Garbage must be swallowed without a trace.
	open(namespace, "##invalid##")
	open(namespace, strings.Repeat("a", 64))

	open(namespace, bearer)

	is, err := b.invitations.Query(namespace, invitation.QueryOptions{
		IDs: []uint64{
			i.ID,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(is), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}
	if have, want := is[0].Status, invitation.StatusOpened; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := is[0].OpenedAt.IsZero(), false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	opened := is[0].OpenedAt

	if _, err := respond(
		namespace,
		bearer,
		invitation.StatusConfirmed,
		nil,
		RequestMeta{},
	); err != nil {
		t.Fatal(err)
	}

	// A late pixel fetch must not regress a recorded answer.
	open(namespace, bearer)

	is, err = b.invitations.Query(namespace, invitation.QueryOptions{
		IDs: []uint64{
			i.ID,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := is[0].Status, invitation.StatusConfirmed; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := is[0].OpenedAt, opened; !have.Equal(want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteRespondIdempotent(t *testing.T) {
	var (
		namespace = "core_respond_idempotent"
		b         = prepareBackend()
		ev        = b.createEvent(t, namespace)
		gs        = b.createGuests(t, namespace, ev.ID, 1)
		create    = InvitationCreate(b.invitations)
		respond   = InviteRespond(b.audits, b.guests, b.invitations)
		meta      = RequestMeta{
			IP:        "198.51.100.7",
			UserAgent: "curl/8.0",
		}
	)

	_, bearer, err := create(namespace, ev.ID, gs[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	first, err := respond(
		namespace,
		bearer,
		invitation.StatusConfirmed,
		nil,
		meta,
	)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := first.Duplicate, false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := first.Invitation.Status, invitation.StatusConfirmed; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := first.Invitation.Response.Attending, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := first.Invitation.Response.GuestsCount, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := first.Invitation.RespondedAt.IsZero(), false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	second, err := respond(
		namespace,
		bearer,
		invitation.StatusConfirmed,
		nil,
		meta,
	)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := second.Duplicate, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := second.Invitation.RespondedAt, first.Invitation.RespondedAt; !have.Equal(want) {
		t.Errorf("have %v, want %v", have, want)
	}

	es, err := b.audits.Query(namespace, auditlog.QueryOptions{
		Actions: []string{
			AuditRSVPConfirm,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(es), 2; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	duplicates := map[bool]int{}

	for _, e := range es {
		if have, want := e.ActorID, gs[0].ID; have != want {
			t.Errorf("have %v, want %v", have, want)
		}
		if have, want := e.TargetEmail, gs[0].Email; have != want {
			t.Errorf("have %v, want %v", have, want)
		}
		if have, want := e.IP, meta.IP; have != want {
			t.Errorf("have %v, want %v", have, want)
		}

		d, ok := e.Meta["duplicate"].(bool)
		if !ok {
			t.Fatalf("entry %d carries no duplicate flag", e.ID)
		}

		duplicates[d]++
	}

	if have, want := duplicates[false], 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := duplicates[true], 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	// Flipping the answer is a regular transition, not a duplicate.
	third, err := respond(
		namespace,
		bearer,
		invitation.StatusDeclined,
		nil,
		meta,
	)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := third.Duplicate, false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := third.Invitation.Status, invitation.StatusDeclined; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := third.Invitation.Response.GuestsCount, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteRespondClamps(t *testing.T) {
	var (
		namespace = "core_respond_clamps"
		b         = prepareBackend()
		ev        = b.createEvent(t, namespace)
		gs        = b.createGuests(t, namespace, ev.ID, 1)
		create    = InvitationCreate(b.invitations)
		respond   = InviteRespond(b.audits, b.guests, b.invitations)
	)

	_, bearer, err := create(namespace, ev.ID, gs[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	res, err := respond(
		namespace,
		bearer,
		invitation.StatusConfirmed,
		&invitation.Response{
			Comment:     strings.Repeat("x", 2*MaxRSVPComment),
			GuestsCount: 50,
		},
		RequestMeta{},
	)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := res.Invitation.Response.GuestsCount, MaxRSVPGuests; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := len(res.Invitation.Response.Comment), MaxRSVPComment; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestInviteRespondRejects(t *testing.T) {
	var (
		namespace = "core_respond_rejects"
		b         = prepareBackend()
		ev        = b.createEvent(t, namespace)
		gs        = b.createGuests(t, namespace, ev.ID, 1)
		create    = InvitationCreate(b.invitations)
		respond   = InviteRespond(b.audits, b.guests, b.invitations)
	)

	_, bearer, err := create(namespace, ev.ID, gs[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = respond(namespace, bearer, invitation.StatusSent, nil, RequestMeta{})
	if have, want := IsInvalidEntity(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	_, err = respond(
		namespace,
		"##invalid##",
		invitation.StatusConfirmed,
		nil,
		RequestMeta{},
	)
	if have, want := IsNotFound(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	_, err = respond(
		namespace,
		strings.Repeat("a", 64),
		invitation.StatusConfirmed,
		nil,
		RequestMeta{},
	)
	if have, want := IsNotFound(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}
