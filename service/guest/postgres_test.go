//go:build integration

package guest

import (
	"flag"
	"fmt"
	"os/user"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/soiree/soiree/platform/pg"
)

var pgTestURL string

func TestPostgresPutUpsert(t *testing.T) {
	var (
		namespace = "service_put_upsert"
		service   = preparePostgres(t, namespace)
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

func TestPostgresPutInvalid(t *testing.T) {
	var (
		namespace = "service_put_invalid"
		service   = preparePostgres(t, namespace)
	)

	g := testGuest()
	g.Email = ""

	_, err := service.Put(namespace, g)
	if have, want := IsInvalidGuest(err), true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestPostgresQuery(t *testing.T) {
	var (
		namespace = "service_query"
		service   = preparePostgres(t, namespace)
		deleted   = true
	)

	g := testGuest()

	for i := 0; i < 4; i++ {
		d := testGuest()
		d.EventID = g.EventID
		d.Deleted = i%2 == 0

		_, err := service.Put(namespace, d)
		if err != nil {
			t.Fatal(err)
		}
	}

	created, err := service.Put(namespace, g)
	if err != nil {
		t.Fatal(err)
	}

	cases := map[*QueryOptions]uint{
		&QueryOptions{}:                                5,
		&QueryOptions{Deleted: &deleted}:               2,
		&QueryOptions{Emails: []string{created.Email}}: 1,
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

func preparePostgres(t *testing.T, namespace string) Service {
	db, err := sqlx.Connect("postgres", pgTestURL)
	if err != nil {
		t.Fatal(err)
	}

	s := PostgresService(db)

	if err := s.Teardown(namespace); err != nil {
		t.Fatal(err)
	}

	return s
}

func init() {
	u, err := user.Current()
	if err != nil {
		panic(err)
	}

	d := fmt.Sprintf(pg.URLTest, u.Username)

	url := flag.String("postgres.url", d, "Postgres test connection URL")
	flag.Parse()

	pgTestURL = *url
}
