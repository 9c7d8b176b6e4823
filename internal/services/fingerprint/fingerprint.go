// Package fingerprint infers the technology stack of a domain, either from
// the BuiltWith API or by probing the site directly.
package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/httpclient"
	"github.com/tbckr/domainlens/internal/output"
	"github.com/tbckr/domainlens/internal/validate"
)

// Name is the source identifier used in errors and logs.
const Name = analysis.SourceFingerprint

// Values accepted by the fingerprint_source setting.
const (
	SourceAuto      = "auto"
	SourceBuiltWith = "builtwith"
	SourceProbe     = "probe"
)

// Sources lists the valid fingerprint_source values.
var Sources = []string{SourceAuto, SourceBuiltWith, SourceProbe}

// ErrMissingAPIKey is returned by ResolveSource when BuiltWith is requested
// without an API key.
var ErrMissingAPIKey = errors.New("builtwith requires builtwith_api_key")

// Client returns the technology observations for a domain.
//
// Implementations report *apperr.LookupTimeoutError when timeout elapsed,
// *apperr.RateLimitedError on HTTP 429 and *apperr.SourceUnavailableError
// for every other failure. Cancellation of ctx is returned unchanged.
type Client interface {
	Fingerprint(ctx context.Context, d validate.Domain, timeout time.Duration) ([]analysis.TechObservation, error)
}

// ResolveSource maps a configured fingerprint_source to the concrete source.
// auto selects BuiltWith when an API key is present and the probe otherwise.
func ResolveSource(source, apiKey string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "", SourceAuto:
		if apiKey != "" {
			return SourceBuiltWith, nil
		}
		return SourceProbe, nil
	case SourceBuiltWith:
		if apiKey == "" {
			return "", ErrMissingAPIKey
		}
		return SourceBuiltWith, nil
	case SourceProbe:
		return SourceProbe, nil
	default:
		return "", fmt.Errorf("%w: unknown fingerprint source %q (valid: %s)",
			apperr.ErrInvalidInput, source, strings.Join(Sources, ", "))
	}
}

// withTimeout derives the per-lookup context. A timeout <= 0 disables it.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classifyTransport maps an error returned by req to the source error
// taxonomy. ctx is the caller's context, lookupCtx the one bounded by timeout.
// Secret query parameters are masked in the returned error text.
func classifyTransport(ctx, lookupCtx context.Context, timeout time.Duration, err error) error {
	err = httpclient.RedactError(err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
		return &apperr.LookupTimeoutError{Source: Name, Timeout: timeout, Err: err}
	}
	return &apperr.SourceUnavailableError{Source: Name, Err: err}
}

// classifyStatus returns the source error for a non-2xx response, or nil.
// The response body is never part of the error; it comes from a server the
// caller does not control.
func classifyStatus(resp *req.Response, now time.Time) error {
	if resp.IsSuccessState() {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &apperr.RateLimitedError{
			Source:     Name,
			RetryAfter: httpclient.ParseRetryAfter(resp.Header.Get("Retry-After"), now),
		}
	}
	return &apperr.SourceUnavailableError{Source: Name, Status: resp.StatusCode}
}

// clean strips terminal escapes and surrounding whitespace from upstream text.
func clean(s string) string {
	return strings.TrimSpace(output.StripANSI(s))
}
