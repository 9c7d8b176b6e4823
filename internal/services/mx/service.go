// Package mx resolves and classifies the mail exchanges of a domain.
package mx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/output"
	"github.com/tbckr/domainlens/internal/services"
	"github.com/tbckr/domainlens/internal/validate"
)

// Name is the source identifier used in errors and logs.
const Name = analysis.SourceMX

// Locator maps a host to an ISO country code.
type Locator interface {
	Country(ctx context.Context, host string) (string, error)
}

// Service performs MX lookups using the injected resolver.
type Service struct {
	lookup  services.MXLookuper
	logger  *slog.Logger
	locator Locator
}

// Option configures a Service.
type Option func(*Service)

// WithLocator enables country enrichment of MX exchanges.
func WithLocator(l Locator) Option {
	return func(s *Service) { s.locator = l }
}

// NewService creates a new MX service with the given resolver and logger.
func NewService(lookup services.MXLookuper, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{lookup: lookup, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the service identifier.
func (s *Service) Name() string { return Name }

// Resolve returns the MX records of d ordered by priority and exchange.
//
// A domain without MX records yields an empty slice and no error. Failures
// are *apperr.LookupTimeoutError when timeout elapsed and
// *apperr.LookupFailedError otherwise. When ctx itself is cancelled its
// error is returned unchanged. A timeout <= 0 disables the per-lookup limit.
func (s *Service) Resolve(ctx context.Context, d validate.Domain, timeout time.Duration) ([]analysis.MXRecord, error) {
	lookupCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	mxs, err := s.lookup.LookupMX(lookupCtx, d.String())
	if err != nil {
		s.logger.Debug("MX lookup failed", "domain", d, "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var dnsErr *net.DNSError
		switch {
		case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
			return []analysis.MXRecord{}, nil
		case isTimeout(lookupCtx, err):
			return nil, &apperr.LookupTimeoutError{Source: Name, Timeout: timeout, Err: err}
		case len(mxs) == 0:
			return nil, &apperr.LookupFailedError{Source: Name, Err: err}
		}
		// net.Resolver returns the well-formed records alongside an error
		// when some answers carried invalid names; keep those.
	}

	records := make([]analysis.MXRecord, 0, len(mxs))
	for _, m := range mxs {
		host := strings.ToLower(strings.TrimSuffix(output.StripANSI(m.Host), "."))
		if host == "" {
			// Null MX (RFC 7505): the domain accepts no mail.
			continue
		}
		records = append(records, analysis.MXRecord{Exchange: host, Priority: m.Pref})
	}

	if s.locator != nil {
		s.locate(lookupCtx, records)
	}
	return analysis.NormalizeMX(records), nil
}

// locate fills in Country for each record. Failures only log.
func (s *Service) locate(ctx context.Context, records []analysis.MXRecord) {
	for i := range records {
		country, err := s.locator.Country(ctx, records[i].Exchange)
		if err != nil {
			s.logger.Debug("MX geolocation failed", "host", records[i].Exchange, "error", err)
			continue
		}
		records[i].Country = country
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
