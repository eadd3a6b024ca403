package limiter

import "time"

// Limitee is the limit that we want to apply.
type Limitee struct {
	Hash       string
	Limit      int64
	WindowSize time.Duration
}

// Limiter provides the atomic check-and-increment backing rate admission.
type Limiter interface {
	// Request counts a hit against the limitee and returns the total number
	// of hits observed in the current fixed window, including this one,
	// together with the time the window resets. Callers decide admission by
	// comparing the count against the limit.
	Request(*Limitee) (int64, time.Time, error)
}
