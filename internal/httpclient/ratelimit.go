package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/imroc/req/v3"

	"github.com/tbckr/domainlens/internal/ratelimit"
)

const (
	// retryAfterFallback is used when Retry-After header is absent or unparseable.
	retryAfterFallback = 5 * time.Second
	// retryAfterCap is the maximum duration honoured from a Retry-After header.
	retryAfterCap = 60 * time.Second
)

// AttachRateLimit gates every outbound request of client on limiter.
//
// Requests are never retried here: a 429 is surfaced to the caller, which
// reports the gap and uses ParseRetryAfter to decide how long the partial
// result stays cached.
func AttachRateLimit(client *req.Client, limiter *ratelimit.Limiter) {
	client.OnBeforeRequest(func(_ *req.Client, r *req.Request) error {
		return limiter.Wait(r.Context())
	})
}

// ParseRetryAfter parses a Retry-After header value (integer seconds or
// HTTP-date) and returns a capped duration. now anchors HTTP-dates.
func ParseRetryAfter(header string, now time.Time) time.Duration {
	if header == "" {
		return retryAfterFallback
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return retryAfterFallback
		}
		d := time.Duration(secs) * time.Second
		return min(d, retryAfterCap)
	}
	if t, err := http.ParseTime(header); err == nil {
		d := max(t.Sub(now), 0)
		return min(d, retryAfterCap)
	}
	return retryAfterFallback
}
