package invitation

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/soiree/soiree/platform/generate"
)

type prepareFunc func(t *testing.T, namespace string) Service

func testServicePut(t *testing.T, p prepareFunc) {
	var (
		inv       = testInvitation()
		namespace = "service_put"
		service   = p(t, namespace)
	)

	created, err := service.Put(namespace, inv)
	if err != nil {
		t.Fatal(err)
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
	if have, want := list[0], created; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}

	created.Status = StatusSent

	updated, err := service.Put(namespace, created)
	if err != nil {
		t.Fatal(err)
	}

	list, err = service.Query(namespace, QueryOptions{
		IDs: []uint64{
			updated.ID,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := list[0].Status, StatusSent; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePutUpsert(t *testing.T, p prepareFunc) {
	var (
		inv       = testInvitation()
		namespace = "service_put_upsert"
		service   = p(t, namespace)
	)

	first, err := service.Put(namespace, inv)
	if err != nil {
		t.Fatal(err)
	}

	second, err := service.Put(namespace, &Invitation{
		EventID:   inv.EventID,
		GuestID:   inv.GuestID,
		Status:    StatusQueued,
		TokenHash: generate.RandomStringSafe(64),
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := second.ID, first.ID; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	list, err := service.Query(namespace, QueryOptions{
		EventIDs: []uint64{
			inv.EventID,
		},
		GuestIDs: []uint64{
			inv.GuestID,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(list), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}
	if have, want := list[0].TokenHash, second.TokenHash; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	list, err = service.Query(namespace, QueryOptions{
		TokenHashes: []string{
			first.TokenHash,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(list), 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePutInvalid(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_invalid"
		service   = p(t, namespace)
	)

	inv := testInvitation()
	inv.Status = Status("paused")

	_, err := service.Put(namespace, inv)
	if have, want := IsInvalidInvitation(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	inv = testInvitation()
	inv.TokenHash = ""

	_, err = service.Put(namespace, inv)
	if have, want := IsInvalidInvitation(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServiceQuery(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_query"
		service   = p(t, namespace)
		eventID   = uint64(rand.Int63())
	)

	for _, i := range testList(eventID) {
		_, err := service.Put(namespace, i)
		if err != nil {
			t.Fatal(err)
		}
	}

	created, err := service.Put(namespace, testInvitation())
	if err != nil {
		t.Fatal(err)
	}

	cases := map[*QueryOptions]uint{
		&QueryOptions{}:                                         6,
		&QueryOptions{EventIDs: []uint64{eventID}}:              5,
		&QueryOptions{GuestIDs: []uint64{created.GuestID}}:      1,
		&QueryOptions{IDs: []uint64{created.ID}}:                1,
		&QueryOptions{Limit: 3}:                                 3,
		&QueryOptions{Statuses: []Status{StatusQueued}}:         6,
		&QueryOptions{TokenHashes: []string{created.TokenHash}}: 1,
		&QueryOptions{EventIDs: []uint64{eventID}, Limit: 2}:    2,
		&QueryOptions{Statuses: []Status{StatusFailed}}:         0,
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

func testInvitation() *Invitation {
	return &Invitation{
		EventID:   uint64(rand.Int63()),
		GuestID:   uint64(rand.Int63()),
		Status:    StatusQueued,
		TokenHash: generate.RandomStringSafe(64),
	}
}

func testList(eventID uint64) List {
	is := List{}

	for i := 0; i < 5; i++ {
		is = append(is, &Invitation{
			EventID:   eventID,
			GuestID:   uint64(rand.Int63()),
			Status:    StatusQueued,
			TokenHash: generate.RandomStringSafe(64),
		})
	}

	return is
}
