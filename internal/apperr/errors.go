package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidInput is returned when the provided input fails validation.
// Use errors.Is(err, apperr.ErrInvalidInput) to detect validation failures uniformly.
var ErrInvalidInput = errors.New("invalid input")

// ErrRequestFailed is returned by any source when the request fails at the
// transport level or the upstream responds with a non-2xx status code.
var ErrRequestFailed = errors.New("request failed")

// User-facing messages. They are part of the HTTP contract and must not change.
const (
	MsgEmptyDomain   = "Please provide a domain to analyze"
	MsgInvalidDomain = "Invalid domain format"
	MsgUnexpected    = "An unexpected error occurred"
)

// ValidationKind distinguishes the two ways a raw domain can be rejected.
type ValidationKind int

const (
	// KindEmpty means no domain was supplied.
	KindEmpty ValidationKind = iota + 1
	// KindInvalidFormat means the input does not satisfy the domain grammar.
	KindInvalidFormat
)

// ValidationError is returned by the validator. It is always terminal and
// maps to HTTP 400.
type ValidationError struct {
	Kind  ValidationKind
	Input string
}

func (e *ValidationError) Error() string {
	if e.Kind == KindEmpty {
		return MsgEmptyDomain
	}
	return MsgInvalidDomain
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// LookupTimeoutError reports that a source did not answer within its timeout.
type LookupTimeoutError struct {
	Source  string
	Timeout time.Duration
	Err     error
}

func (e *LookupTimeoutError) Error() string {
	return fmt.Sprintf("%s lookup timed out after %s", e.Source, e.Timeout)
}

func (e *LookupTimeoutError) Unwrap() error { return e.Err }

// LookupFailedError reports a lookup that failed for any reason other than a
// timeout or an authoritative "no such record" answer.
type LookupFailedError struct {
	Source string
	Err    error
}

func (e *LookupFailedError) Error() string {
	return fmt.Sprintf("%s lookup failed: %v", e.Source, e.Err)
}

func (e *LookupFailedError) Unwrap() error { return e.Err }

// SourceUnavailableError reports an unreachable or misbehaving upstream.
// Status is the HTTP status code when one was received, zero otherwise.
type SourceUnavailableError struct {
	Source string
	Status int
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s unavailable (HTTP %d): %v", e.Source, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s unavailable (HTTP %d)", e.Source, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
	}
	return e.Source + " unavailable"
}

func (e *SourceUnavailableError) Unwrap() []error { return []error{ErrRequestFailed, e.Err} }

// RateLimitedError reports that the upstream rejected the request with a
// rate limit. RetryAfter is the upstream's hint, already capped.
type RateLimitedError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %s", e.Source, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return ErrRequestFailed }

// AnalysisUnavailableError is returned when every lookup source failed for
// a validated domain. It maps to HTTP 500.
type AnalysisUnavailableError struct {
	Domain      string
	MX          error
	Fingerprint error
}

func (e *AnalysisUnavailableError) Error() string {
	return fmt.Sprintf("analysis of %s unavailable: mx: %v; fingerprint: %v", e.Domain, e.MX, e.Fingerprint)
}

func (e *AnalysisUnavailableError) Unwrap() []error { return []error{e.MX, e.Fingerprint} }

// CacheError wraps a cache failure. It is logged and never returned to callers
// of the engine.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// Source error kinds as reported in an analysis result.
const (
	KindTimeout     = "timeout"
	KindFailed      = "failed"
	KindUnavailable = "unavailable"
	KindRateLimited = "rate_limited"
)

// Kind classifies a source error into one of the Kind* strings.
// Unrecognised errors are reported as KindFailed.
func Kind(err error) string {
	var (
		timeout     *LookupTimeoutError
		unavailable *SourceUnavailableError
		limited     *RateLimitedError
	)
	switch {
	case errors.As(err, &timeout):
		return KindTimeout
	case errors.As(err, &limited):
		return KindRateLimited
	case errors.As(err, &unavailable):
		return KindUnavailable
	default:
		return KindFailed
	}
}

// HTTPStatus maps an engine error to the status code of the HTTP contract.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// UserMessage returns the message shown to end users for err. Internal
// details never leak: anything that is not a validation error becomes
// MsgUnexpected.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if errors.Is(err, ErrInvalidInput) {
		return MsgInvalidDomain
	}
	return MsgUnexpected
}
