// Package engine orchestrates a domain analysis: it validates the input,
// consults the cache, runs the MX and fingerprint lookups concurrently and
// aggregates their outcomes into one cached result.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/cache"
	"github.com/tbckr/domainlens/internal/validate"
)

// DefaultLookupTimeout bounds each source lookup when no timeout is configured.
const DefaultLookupTimeout = 5 * time.Second

// Analysis outcomes reported to the Recorder.
const (
	OutcomeComplete    = "complete"
	OutcomePartial     = "partial"
	OutcomeCached      = "cached"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeCancelled   = "cancelled"
)

// MXResolver resolves the mail exchanges of a domain.
type MXResolver interface {
	Resolve(ctx context.Context, d validate.Domain, timeout time.Duration) ([]analysis.MXRecord, error)
}

// Fingerprinter reports the technology observations of a domain.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, d validate.Domain, timeout time.Duration) ([]analysis.TechObservation, error)
}

// Store is the analysis cache.
type Store interface {
	Get(d validate.Domain) (*analysis.Result, error)
	Put(d validate.Domain, r *analysis.Result, ttl time.Duration) error
	Invalidate(d validate.Domain) bool
	DefaultTTL() time.Duration
}

// Recorder receives engine instrumentation.
type Recorder interface {
	AnalysisCompleted(outcome string)
	CacheLookup(hit bool)
	SourceFailed(source, kind string)
	LookupDuration(source string, d time.Duration)
}

// Options holds the per-source lookup timeouts.
type Options struct {
	MXTimeout          time.Duration
	FingerprintTimeout time.Duration
}

// AnalyzeOptions tunes a single Analyze call.
type AnalyzeOptions struct {
	// Format is the requested presentation ("json" or "html"). The engine
	// does not render; it is carried for logging.
	Format string
	// Refresh skips the cache read. The fresh result is still stored.
	Refresh bool
}

// Engine is safe for concurrent use.
type Engine struct {
	mx       MXResolver
	fp       Fingerprinter
	store    Store
	agg      *analysis.Aggregator
	logger   *slog.Logger
	recorder Recorder
	opts     Options
	group    singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the instrumentation sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithAggregator replaces the default aggregator.
func WithAggregator(a *analysis.Aggregator) Option {
	return func(e *Engine) {
		if a != nil {
			e.agg = a
		}
	}
}

// New creates an Engine. Zero timeouts in opts select DefaultLookupTimeout.
func New(mx MXResolver, fp Fingerprinter, store Store, logger *slog.Logger, opts Options, options ...Option) *Engine {
	if opts.MXTimeout <= 0 {
		opts.MXTimeout = DefaultLookupTimeout
	}
	if opts.FingerprintTimeout <= 0 {
		opts.FingerprintTimeout = DefaultLookupTimeout
	}
	e := &Engine{
		mx:       mx,
		fp:       fp,
		store:    store,
		agg:      analysis.NewAggregator(),
		logger:   logger,
		recorder: nopRecorder{},
		opts:     opts,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Analyze returns the analysis of raw.
//
// Errors are a *apperr.ValidationError for unusable input,
// *apperr.AnalysisUnavailableError when both sources failed, or the context
// error when ctx ends first. A single failed source yields a partial result
// listing the failure in SourceErrors. Cache failures are logged and never
// returned.
func (e *Engine) Analyze(ctx context.Context, raw string, opts AnalyzeOptions) (*analysis.Result, error) {
	d, err := validate.Validate(raw)
	if err != nil {
		e.recorder.AnalysisCompleted(OutcomeInvalid)
		return nil, err
	}

	if !opts.Refresh {
		if r, ok := e.cached(d); ok {
			e.logger.Debug("cache hit", "domain", d, "format", opts.Format)
			e.recorder.AnalysisCompleted(OutcomeCached)
			return r, nil
		}
	}

	r, err := e.resolve(ctx, d)
	if err != nil {
		var unavailable *apperr.AnalysisUnavailableError
		if errors.As(err, &unavailable) {
			e.recorder.AnalysisCompleted(OutcomeUnavailable)
			e.logger.Warn("analysis unavailable", "domain", d, "error", err)
		} else {
			e.recorder.AnalysisCompleted(OutcomeCancelled)
		}
		return nil, err
	}

	outcome := OutcomeComplete
	if r.Partial() {
		outcome = OutcomePartial
	}
	e.recorder.AnalysisCompleted(outcome)
	return r, nil
}

// Invalidate drops the cached analysis of raw.
func (e *Engine) Invalidate(raw string) error {
	d, err := validate.Validate(raw)
	if err != nil {
		return err
	}
	removed := e.store.Invalidate(d)
	e.logger.Debug("cache invalidated", "domain", d, "removed", removed)
	return nil
}

func (e *Engine) cached(d validate.Domain) (*analysis.Result, bool) {
	r, err := e.store.Get(d)
	switch {
	case err == nil:
		e.recorder.CacheLookup(true)
		return r, true
	case !errors.Is(err, cache.ErrMiss):
		e.logger.Warn("cache read failed", "domain", d, "error", &apperr.CacheError{Op: "get", Err: err})
	}
	e.recorder.CacheLookup(false)
	return nil, false
}

// resolve coalesces concurrent lookups of d. A caller whose shared lookup
// was cancelled by another caller runs the lookup again while its own
// context is still live.
func (e *Engine) resolve(ctx context.Context, d validate.Domain) (*analysis.Result, error) {
	for {
		ch := e.group.DoChan(d.String(), func() (any, error) {
			return e.lookup(ctx, d)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if isContextErr(res.Err) && ctx.Err() == nil {
					e.logger.Debug("shared lookup cancelled, retrying", "domain", d)
					continue
				}
				return nil, res.Err
			}
			return res.Val.(*analysis.Result), nil
		}
	}
}

// lookup runs both sources, aggregates and stores the result.
func (e *Engine) lookup(ctx context.Context, d validate.Domain) (*analysis.Result, error) {
	var (
		mx    []analysis.MXRecord
		mxErr error
		obs   []analysis.TechObservation
		fpErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		start := time.Now()
		mx, mxErr = e.mx.Resolve(ctx, d, e.opts.MXTimeout)
		e.recorder.LookupDuration(analysis.SourceMX, time.Since(start))
	})
	wg.Go(func() {
		start := time.Now()
		obs, fpErr = e.fp.Fingerprint(ctx, d, e.opts.FingerprintTimeout)
		e.recorder.LookupDuration(analysis.SourceFingerprint, time.Since(start))
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mxErr != nil && fpErr != nil {
		e.recordFailure(analysis.SourceMX, mxErr)
		e.recordFailure(analysis.SourceFingerprint, fpErr)
		return nil, &apperr.AnalysisUnavailableError{Domain: d.String(), MX: mxErr, Fingerprint: fpErr}
	}

	var failures []analysis.Failure
	if mxErr != nil {
		e.recordFailure(analysis.SourceMX, mxErr)
		failures = append(failures, analysis.Failure{Source: analysis.SourceMX, Err: mxErr})
	}
	if fpErr != nil {
		e.recordFailure(analysis.SourceFingerprint, fpErr)
		failures = append(failures, analysis.Failure{Source: analysis.SourceFingerprint, Err: fpErr})
	}

	result := e.agg.Aggregate(d, mx, obs, failures)

	ttl := e.ttl(mxErr, fpErr)
	if err := e.store.Put(d, result, ttl); err != nil {
		e.logger.Warn("cache write failed", "domain", d, "error", &apperr.CacheError{Op: "put", Err: err})
	} else {
		e.logger.Debug("analysis cached", "domain", d, "ttl", ttl, "partial", result.Partial())
	}
	return result, nil
}

func (e *Engine) recordFailure(source string, err error) {
	kind := apperr.Kind(err)
	e.recorder.SourceFailed(source, kind)
	e.logger.Debug("source lookup failed", "source", source, "kind", kind, "error", err)
}

// ttl is the default TTL, shortened to the smallest retry-after hint of a
// rate limited source so the gap is retried sooner.
func (e *Engine) ttl(errs ...error) time.Duration {
	ttl := e.store.DefaultTTL()
	for _, err := range errs {
		var limited *apperr.RateLimitedError
		if errors.As(err, &limited) && limited.RetryAfter > 0 && limited.RetryAfter < ttl {
			ttl = limited.RetryAfter
		}
	}
	return ttl
}

// isContextErr reports whether err is a bare context error, as returned by
// a lookup whose own context ended. Wrapped deadlines inside source errors
// do not count.
func isContextErr(err error) bool {
	return err == context.Canceled || err == context.DeadlineExceeded //nolint:errorlint // wrapped context errors are source timeouts
}

type nopRecorder struct{}

func (nopRecorder) AnalysisCompleted(string) {}
func (nopRecorder) CacheLookup(bool) {}
func (nopRecorder) SourceFailed(string, string) {}
func (nopRecorder) LookupDuration(string, time.Duration) {}
