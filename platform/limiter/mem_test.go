package limiter

import (
	"testing"
	"time"
)

func TestMemLimiterRequest(t *testing.T) {
	var (
		l       = Mem()
		limitee = &Limitee{
			Hash:       "send:user:123:456",
			Limit:      3,
			WindowSize: time.Minute,
		}
	)

	for i := int64(1); i <= 5; i++ {
		count, resetAt, err := l.Request(limitee)
		if err != nil {
			t.Fatal(err)
		}

		if have, want := count, i; have != want {
			t.Errorf("have %v, want %v", have, want)
		}

		if resetAt.Before(time.Now()) {
			t.Errorf("resetAt in the past: %v", resetAt)
		}
	}
}

func TestMemLimiterWindowReset(t *testing.T) {
	var (
		l       = Mem()
		limitee = &Limitee{
			Hash:       "send:ip:127.0.0.1:456",
			Limit:      1,
			WindowSize: 10 * time.Millisecond,
		}
	)

	if _, _, err := l.Request(limitee); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)

	count, _, err := l.Request(limitee)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := count, int64(1); have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}
