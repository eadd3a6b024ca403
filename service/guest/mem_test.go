package guest

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestMemPutUpsert(t *testing.T) {
	var (
		namespace = "service_put_upsert"
		service   = prepareMem(t, namespace)
		g         = testGuest()
	)

	first, err := service.Put(namespace, g)
	if err != nil {
		t.Fatal(err)
	}

	second, err := service.Put(namespace, &Guest{
		Department: "Ops",
		Email:      g.Email,
		EventID:    g.EventID,
		Name:       "Renamed",
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := second.ID, first.ID; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	list, err := service.Query(namespace, QueryOptions{
		EventIDs: []uint64{
			g.EventID,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(list), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}
	if have, want := list[0].Name, "Renamed"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestMemPutInvalid(t *testing.T) {
	var (
		namespace = "service_put_invalid"
		service   = prepareMem(t, namespace)
	)

	g := testGuest()
	g.Email = ""

	_, err := service.Put(namespace, g)
	if have, want := IsInvalidGuest(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestMemQuery(t *testing.T) {
	var (
		namespace = "service_query"
		service   = prepareMem(t, namespace)
		eventID   = uint64(rand.Int63())
		deleted   = true
	)

	for i := 0; i < 4; i++ {
		g := testGuest()
		g.EventID = eventID
		g.Deleted = i%2 == 0

		_, err := service.Put(namespace, g)
		if err != nil {
			t.Fatal(err)
		}
	}

	created, err := service.Put(namespace, testGuest())
	if err != nil {
		t.Fatal(err)
	}

	cases := map[*QueryOptions]uint{
		&QueryOptions{}:                                5,
		&QueryOptions{Deleted: &deleted}:               2,
		&QueryOptions{Emails: []string{created.Email}}: 1,
		&QueryOptions{EventIDs: []uint64{eventID}}:     4,
		&QueryOptions{IDs: []uint64{created.ID}}:       1,
		&QueryOptions{Limit: 3}:                        3,
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

func testGuest() *Guest {
	return &Guest{
		Department: "Engineering",
		Email:      fmt.Sprintf("guest%d@example.com", rand.Int63()),
		EventID:    uint64(rand.Int63()),
		Name:       "Guest Name",
		Role:       "Engineer",
	}
}

func prepareMem(t *testing.T, namespace string) Service {
	s := MemService()

	if err := s.Teardown(namespace); err != nil {
		t.Fatal(err)
	}

	return s
}
