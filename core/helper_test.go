package core

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/soiree/soiree/platform/mailer"
	"github.com/soiree/soiree/service/auditlog"
	"github.com/soiree/soiree/service/emaillog"
	"github.com/soiree/soiree/service/event"
	"github.com/soiree/soiree/service/guest"
	"github.com/soiree/soiree/service/invitation"
)

type stubMailer struct {
	failFor map[string]string
	sent    []*mailer.Message
}

func (m *stubMailer) Send(msg *mailer.Message) (string, error) {
	if reason, ok := m.failFor[msg.To]; ok {
		return "", errors.New(reason)
	}

	m.sent = append(m.sent, msg)

	return fmt.Sprintf("stub-%d", len(m.sent)), nil
}

type testBackend struct {
	audits      auditlog.Service
	events      event.Service
	guests      guest.Service
	invitations invitation.Service
	logs        emaillog.Service
	mail        *stubMailer
	sleeps      int
}

func prepareBackend() *testBackend {
	return &testBackend{
		audits:      auditlog.MemService(),
		events:      event.MemService(),
		guests:      guest.MemService(),
		invitations: invitation.MemService(),
		logs:        emaillog.MemService(),
		mail: &stubMailer{
			failFor: map[string]string{},
		},
	}
}

func (b *testBackend) config() DeliveryConfig {
	return DeliveryConfig{
		BaseURL:   "https://soiree.test",
		Provider:  "stub",
		SendDelay: DefaultSendDelay,
		Sleep: func(time.Duration) {
			b.sleeps++
		},
	}
}

func (b *testBackend) createEvent(t *testing.T, ns string) *event.Event {
	ev, err := b.events.Put(ns, &event.Event{
		Approved: true,
		OwnerID:  "owner-1",
		Title:    fmt.Sprintf("Gathering %d", rand.Int63()),
	})
	if err != nil {
		t.Fatal(err)
	}

	return ev
}

func (b *testBackend) createGuests(
	t *testing.T,
	ns string,
	eventID uint64,
	n int,
) guest.List {
	gs := guest.List{}

	for i := 0; i < n; i++ {
		g, err := b.guests.Put(ns, &guest.Guest{
			Email:   fmt.Sprintf("guest-%d-%d@example.com", eventID, i),
			EventID: eventID,
			Name:    fmt.Sprintf("Guest %d", i),
		})
		if err != nil {
			t.Fatal(err)
		}

		gs = append(gs, g)
	}

	return gs
}

func operator(role string) Origin {
	return Origin{
		IP:     "10.0.0.1",
		Role:   role,
		UserID: "op-1",
	}
}
