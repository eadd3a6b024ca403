package core

import (
	"fmt"
	"regexp"
	"time"

	"github.com/soiree/soiree/platform/limiter"
)

// Limits applied to the bulk send surface, keyed per operator and per
// client address.
const (
	SendLimitPerIP   = 3
	SendLimitPerUser = 2
	SendLimitWindow  = time.Minute
)

// RateKeySendUser builds the admission key for an operator sending to an
// event.
func RateKeySendUser(userID string, eventID uint64) string {
	return fmt.Sprintf("send:user:%s:%d", userID, eventID)
}

// RateKeySendIP builds the admission key for a client address sending to an
// event.
func RateKeySendIP(ip string, eventID uint64) string {
	return fmt.Sprintf("send:ip:%s:%d", ip, eventID)
}

// Bounds accepted for rate admission parameters. Inputs outside of them are
// treated as caller bugs and admitted open instead of blocking traffic.
const (
	RateKeyMaxLength = 180
	RateKeyMinLength = 3
	RateLimitMax     = 100000
	RateWindowMin    = time.Second
	RateWindowMax    = 24 * time.Hour
)

// Reasons attached to fail-open admissions.
const (
	ReasonBadKey    = "bad-key"
	ReasonBadLimit  = "bad-limit"
	ReasonBadWindow = "bad-window"
	ReasonNoLimiter = "no-admin-client"
	ReasonRPCFailed = "rpc-exception"
)

var rateKeyStrip = regexp.MustCompile(`[^\w:.-]+`)

// Admission is the outcome of a rate check. When Reason is set the check
// could not be performed and the request was admitted open.
type Admission struct {
	Allowed bool
	Count   int64
	Reason  string
	ResetAt time.Time
}

// AdmitFunc decides if a keyed request falls within its fixed window limit.
// It never returns an error, a limiter that can't answer fails open.
type AdmitFunc func(key string, limit int64, window time.Duration) Admission

// Admit constructs an AdmitFunc backed by the given limiter.
func Admit(limits limiter.Limiter) AdmitFunc {
	return func(key string, limit int64, window time.Duration) Admission {
		if limits == nil {
			return Admission{Allowed: true, Reason: ReasonNoLimiter}
		}

		key = normalizeRateKey(key)
		if len(key) < RateKeyMinLength {
			return Admission{Allowed: true, Reason: ReasonBadKey}
		}

		if limit < 1 || limit > RateLimitMax {
			return Admission{Allowed: true, Reason: ReasonBadLimit}
		}

		if window < RateWindowMin || window > RateWindowMax {
			return Admission{Allowed: true, Reason: ReasonBadWindow}
		}

		count, resetAt, err := limits.Request(&limiter.Limitee{
			Hash:       key,
			Limit:      limit,
			WindowSize: window,
		})
		if err != nil {
			return Admission{Allowed: true, Reason: ReasonRPCFailed}
		}

		return Admission{
			Allowed: count <= limit,
			Count:   count,
			ResetAt: resetAt,
		}
	}
}

func normalizeRateKey(key string) string {
	key = rateKeyStrip.ReplaceAllString(key, "")

	if len(key) > RateKeyMaxLength {
		key = key[:RateKeyMaxLength]
	}

	return key
}
