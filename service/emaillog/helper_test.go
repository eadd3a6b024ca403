package emaillog

import (
	"math/rand"
	"strings"
	"testing"
	"time"
)

type prepareFunc func(t *testing.T, namespace string) Service

func testServicePut(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put"
		service   = p(t, namespace)
		l         = testEmailLog()
	)

	created, err := service.Put(namespace, l)
	if err != nil {
		t.Fatal(err)
	}

	if created.ID == 0 {
		t.Errorf("id not assigned")
	}

	list, err := service.Query(namespace, QueryOptions{
		IDs: []uint64{
			created.ID,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(list), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	// A second Put for the same attempt appends another row.
	appended, err := service.Put(namespace, testEmailLog())
	if err != nil {
		t.Fatal(err)
	}

	if have, want := appended.ID, created.ID; have == want {
		t.Errorf("rows share id %v", have)
	}
}

func testServicePutInvalid(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_invalid"
		service   = p(t, namespace)
	)

	l := testEmailLog()
	l.InvitationID = 0

	_, err := service.Put(namespace, l)
	if have, want := IsInvalidEmailLog(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	l = testEmailLog()
	l.Status = StatusFailed
	l.Error = ""

	_, err = service.Put(namespace, l)
	if have, want := IsInvalidEmailLog(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePutTruncates(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_truncates"
		service   = p(t, namespace)
	)

	l := testEmailLog()
	l.Status = StatusFailed
	l.Error = strings.Repeat("x", MaxErrorLength+500)

	created, err := service.Put(namespace, l)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(created.Error), MaxErrorLength; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServiceQuery(t *testing.T, p prepareFunc) {
	var (
		namespace    = "service_query"
		service      = p(t, namespace)
		eventID      = uint64(rand.Int63())
		invitationID = uint64(rand.Int63())
	)

	for _, status := range []Status{StatusQueued, StatusSent} {
		_, err := service.Put(namespace, &EmailLog{
			EventID:      eventID,
			GuestID:      uint64(rand.Int63()),
			InvitationID: invitationID,
			Provider:     "smtp",
			Status:       status,
		})
		if err != nil {
			t.Fatal(err)
		}

		time.Sleep(time.Millisecond)
	}

	for i := 0; i < 3; i++ {
		_, err := service.Put(namespace, testEmailLog())
		if err != nil {
			t.Fatal(err)
		}

		time.Sleep(time.Millisecond)
	}

	cases := map[*QueryOptions]uint{
		&QueryOptions{}:                                        5,
		&QueryOptions{EventIDs: []uint64{eventID}}:             2,
		&QueryOptions{InvitationIDs: []uint64{invitationID}}:   2,
		&QueryOptions{Limit: 2}:                                2,
		&QueryOptions{Statuses: []Status{StatusSent}}:          1,
		&QueryOptions{Statuses: []Status{StatusFailed}}:        0,
	}

	for opts, want := range cases {
		list, err := service.Query(namespace, *opts)
		if err != nil {
			t.Fatal(err)
		}

		if have := uint(len(list)); have != want {
			t.Errorf("%v: have %v, want %v", opts, have, want)
		}
	}

	// The most recent attempt for the invitation comes first.
	list, err := service.Query(namespace, QueryOptions{
		InvitationIDs: []uint64{invitationID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := list[0].Status, StatusSent; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testEmailLog() *EmailLog {
	return &EmailLog{
		EventID:      uint64(rand.Int63()),
		GuestID:      uint64(rand.Int63()),
		InvitationID: uint64(rand.Int63()),
		Provider:     "smtp",
		Status:       StatusQueued,
	}
}
