package core

import (
	"errors"
	"testing"
	"time"

	"github.com/soiree/soiree/platform/limiter"
)

type brokenLimiter struct{}

func (l *brokenLimiter) Request(*limiter.Limitee) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func TestAdmitDeny(t *testing.T) {
	admit := Admit(limiter.Mem())

	for i := 0; i < 2; i++ {
		a := admit("send:user:42:1", 2, time.Minute)

		if have, want := a.Allowed, true; have != want {
			t.Errorf("hit %d: have %v, want %v", i, have, want)
		}
		if have, want := a.Reason, ""; have != want {
			t.Errorf("hit %d: have %v, want %v", i, have, want)
		}
	}

	a := admit("send:user:42:1", 2, time.Minute)

	if have, want := a.Allowed, false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := a.Count, int64(3); have != want {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := a.ResetAt.IsZero(), false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestAdmitKeyIsolation(t *testing.T) {
	admit := Admit(limiter.Mem())

	for i := 0; i < 3; i++ {
		_ = admit("send:user:42:1", 2, time.Minute)
	}

	a := admit("send:ip:10.0.0.1:1", 2, time.Minute)

	if have, want := a.Allowed, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestAdmitFailOpen(t *testing.T) {
	cases := []struct {
		admit  AdmitFunc
		key    string
		limit  int64
		reason string
		window time.Duration
	}{
		{Admit(nil), "send:user:42:1", 2, ReasonNoLimiter, time.Minute},
		{Admit(limiter.Mem()), "!!!", 2, ReasonBadKey, time.Minute},
		{Admit(limiter.Mem()), "a!b", 2, ReasonBadKey, time.Minute},
		{Admit(limiter.Mem()), "send:user:42:1", 0, ReasonBadLimit, time.Minute},
		{Admit(limiter.Mem()), "send:user:42:1", RateLimitMax + 1, ReasonBadLimit, time.Minute},
		{Admit(limiter.Mem()), "send:user:42:1", 2, ReasonBadWindow, time.Millisecond},
		{Admit(limiter.Mem()), "send:user:42:1", 2, ReasonBadWindow, 25 * time.Hour},
		{Admit(&brokenLimiter{}), "send:user:42:1", 2, ReasonRPCFailed, time.Minute},
	}

	for _, c := range cases {
		a := c.admit(c.key, c.limit, c.window)

		if have, want := a.Allowed, true; have != want {
			t.Errorf("%s: have %v, want %v", c.reason, have, want)
		}
		if have, want := a.Reason, c.reason; have != want {
			t.Errorf("have %v, want %v", have, want)
		}
	}
}

func TestNormalizeRateKey(t *testing.T) {
	long := ""

	for i := 0; i < 2*RateKeyMaxLength; i++ {
		long += "a"
	}

	cases := []struct {
		in   string
		want string
	}{
		{"send:user:42:1", "send:user:42:1"},
		{"send user 42", "senduser42"},
		{"send:ip:10.0.0.1", "send:ip:10.0.0.1"},
		{"äöü$%&", ""},
		{long, long[:RateKeyMaxLength]},
	}

	for _, c := range cases {
		if have, want := normalizeRateKey(c.in), c.want; have != want {
			t.Errorf("%q: have %q, want %q", c.in, have, want)
		}
	}
}
