package auditlog

import (
	"math/rand"
	"strings"
	"testing"
)

func TestMemPut(t *testing.T) {
	var (
		namespace = "service_put"
		service   = prepareMem(t, namespace)
	)

	created, err := service.Put(namespace, testEntry())
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
}

func TestMemPutInvalid(t *testing.T) {
	var (
		namespace = "service_put_invalid"
		service   = prepareMem(t, namespace)
	)

	e := testEntry()
	e.ActorID = 0

	_, err := service.Put(namespace, e)
	if have, want := IsInvalidEntry(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	e = testEntry()
	e.Action = ""

	_, err = service.Put(namespace, e)
	if have, want := IsInvalidEntry(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestMemPutTruncatesUserAgent(t *testing.T) {
	var (
		namespace = "service_put_truncates"
		service   = prepareMem(t, namespace)
	)

	e := testEntry()
	e.UserAgent = strings.Repeat("u", MaxUserAgentLength+100)

	created, err := service.Put(namespace, e)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(created.UserAgent), MaxUserAgentLength; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestMemQuery(t *testing.T) {
	var (
		namespace = "service_query"
		service   = prepareMem(t, namespace)
		actorID   = uint64(rand.Int63())
	)

	for i := 0; i < 3; i++ {
		_, err := service.Put(namespace, &Entry{
			Action:  "rsvp.confirm",
			ActorID: actorID,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	_, err := service.Put(namespace, testEntry())
	if err != nil {
		t.Fatal(err)
	}

	cases := map[*QueryOptions]uint{
		&QueryOptions{}:                                4,
		&QueryOptions{Actions: []string{"rsvp.confirm"}}: 3,
		&QueryOptions{ActorIDs: []uint64{actorID}}:     3,
		&QueryOptions{Limit: 2}:                        2,
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
}

func testEntry() *Entry {
	return &Entry{
		Action:  "rsvp.decline",
		ActorID: uint64(rand.Int63()),
		Meta: map[string]interface{}{
			"duplicate": false,
		},
	}
}

func prepareMem(t *testing.T, namespace string) Service {
	s := MemService()

	if err := s.Teardown(namespace); err != nil {
		t.Fatal(err)
	}

	return s
}
