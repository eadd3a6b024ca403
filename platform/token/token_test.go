package token

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	b1, h1, err := New()
	if err != nil {
		t.Fatal(err)
	}

	b2, h2, err := New()
	if err != nil {
		t.Fatal(err)
	}

	if b1 == b2 {
		t.Errorf("bearers collide: %s", b1)
	}
	if h1 == h2 {
		t.Errorf("hashes collide: %s", h1)
	}

	for _, b := range []string{b1, b2} {
		if !IsWellFormed(b) {
			t.Errorf("bearer not well-formed: %s", b)
		}
		if strings.ContainsAny(b, "+/=") {
			t.Errorf("bearer not URL-safe: %s", b)
		}
	}
}

func TestHash(t *testing.T) {
	bearer, hash, err := New()
	if err != nil {
		t.Fatal(err)
	}

	if have, want := Hash(bearer), hash; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	mutated := "x" + bearer[1:]

	if have, want := Hash(mutated), hash; have == want {
		t.Errorf("mutated bearer hashed to %v", have)
	}
}

func TestIsWellFormed(t *testing.T) {
	cases := map[string]bool{
		"":                     false,
		"short":                false,
		"has spaces in it but is long": false,
		"Zm9vYmFyYmF6cXV4MTIzNDU2Nzg5MA": true,
	}

	for in, want := range cases {
		if have := IsWellFormed(in); have != want {
			t.Errorf("%q: have %v, want %v", in, have, want)
		}
	}
}
