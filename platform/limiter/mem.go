package limiter

import (
	"sync"
	"time"
)

type memWindow struct {
	count   int64
	resetAt time.Time
}

type memLimiter struct {
	mu      sync.Mutex
	windows map[string]*memWindow
}

// Mem returns a memory based Limiter implementation.
func Mem() Limiter {
	return &memLimiter{
		windows: map[string]*memWindow{},
	}
}

func (l *memLimiter) Request(limitee *Limitee) (int64, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	w, ok := l.windows[limitee.Hash]
	if !ok || now.After(w.resetAt) {
		w = &memWindow{
			resetAt: now.Add(limitee.WindowSize),
		}

		l.windows[limitee.Hash] = w
	}

	w.count++

	return w.count, w.resetAt, nil
}
