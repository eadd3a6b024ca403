package renderer

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPServiceRender(t *testing.T) {
	want := []byte{0xff, 0xd8, 0xff, 0xdb}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(want)
	}))
	defer ts.Close()

	s := HTTPService(ts.URL, ts.Client())

	have, err := s.Render("http://example.com/i/token?render=1")
	if err != nil {
		t.Fatal(err)
	}

	if string(have) != string(want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestHTTPServiceRenderRetry(t *testing.T) {
	var (
		calls = 0
		want  = []byte{0xff, 0xd8}
	)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.Write(want)
	}))
	defer ts.Close()

	s := HTTPService(ts.URL, ts.Client())

	have, err := s.Render("http://example.com/i/token")
	if err != nil {
		t.Fatal(err)
	}

	if string(have) != string(want) {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := calls, 2; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}
