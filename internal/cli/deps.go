package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/imroc/req/v3"
	"github.com/spf13/cobra"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/cache"
	"github.com/tbckr/domainlens/internal/config"
	"github.com/tbckr/domainlens/internal/detect"
	"github.com/tbckr/domainlens/internal/dnsclient"
	"github.com/tbckr/domainlens/internal/doh"
	"github.com/tbckr/domainlens/internal/engine"
	"github.com/tbckr/domainlens/internal/geo"
	"github.com/tbckr/domainlens/internal/httpclient"
	"github.com/tbckr/domainlens/internal/metrics"
	"github.com/tbckr/domainlens/internal/ratelimit"
	"github.com/tbckr/domainlens/internal/resolver"
	"github.com/tbckr/domainlens/internal/services"
	"github.com/tbckr/domainlens/internal/services/fingerprint"
	"github.com/tbckr/domainlens/internal/services/mx"
)

// deps holds fully-resolved runtime dependencies for a subcommand.
type deps struct {
	logger *slog.Logger
	cfg    *config.Config
}

// buildDeps resolves and validates the config and sets up the logger.
func buildDeps(cmd *cobra.Command, stderr io.Writer) (*deps, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(stderr, cfg.Verbose)
	logger.Debug("configuration loaded",
		"file", cfg.ConfigFile,
		"dns_transport", cfg.DNSTransport,
		"fingerprint_source", cfg.FingerprintSource,
	)
	return &deps{cfg: cfg, logger: logger}, nil
}

// newHTTPClient creates a new HTTP client configured with the proxy, user-agent,
// logger, and verbosity from the resolved config.
func (d *deps) newHTTPClient() (*req.Client, error) {
	client, err := httpclient.New(d.cfg.Proxy, d.cfg.UserAgent, d.logger, d.cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}
	return client, nil
}

// newResolver creates the system DNS resolver, tunnelled through a SOCKS5
// proxy when one is configured.
func (d *deps) newResolver() (*net.Resolver, error) {
	r, err := resolver.NewResolver(d.cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("creating DNS resolver: %w", err)
	}
	return r, nil
}

// loadPatterns loads the provider and technology patterns, preferring the
// configured override file, then the user pattern file, then the embedded
// defaults.
func (d *deps) loadPatterns() (detect.Patterns, error) {
	paths, err := detect.DefaultPatternPaths()
	if err != nil {
		return detect.Patterns{}, fmt.Errorf("resolving pattern paths: %w", err)
	}
	if d.cfg.PatternsFile != "" {
		paths = append([]string{d.cfg.PatternsFile}, paths...)
	}
	patterns, err := detect.LoadPatterns(paths...)
	if err != nil {
		return detect.Patterns{}, fmt.Errorf("loading detect patterns: %w", err)
	}
	return patterns, nil
}

// newMXLookuper returns the MX transport selected by dns_transport.
func (d *deps) newMXLookuper(sys *net.Resolver) (services.MXLookuper, error) {
	switch d.cfg.DNSTransport {
	case "", "system":
		return sys, nil
	case "udp", "tcp":
		c, err := dnsclient.New(d.cfg.DNSTransport, d.cfg.DNSServers, d.cfg.MXTimeout)
		if err != nil {
			return nil, fmt.Errorf("creating DNS client: %w", err)
		}
		d.logger.Debug("using direct DNS transport", "network", d.cfg.DNSTransport, "servers", c.Servers())
		return c, nil
	case "doh":
		client, err := d.newHTTPClient()
		if err != nil {
			return nil, err
		}
		return doh.New(client, d.cfg.DoHURL), nil
	default:
		return nil, fmt.Errorf("unsupported dns transport %q", d.cfg.DNSTransport)
	}
}

// newFingerprinter returns the technology source selected by
// fingerprint_source. Its outbound requests are paced by the configured
// rate limit.
func (d *deps) newFingerprinter(matcher fingerprint.Matcher) (fingerprint.Client, error) {
	source, err := fingerprint.ResolveSource(d.cfg.FingerprintSource, d.cfg.BuiltWithAPIKey)
	if err != nil {
		return nil, err
	}
	client, err := d.newHTTPClient()
	if err != nil {
		return nil, err
	}
	httpclient.AttachRateLimit(client, ratelimit.New(d.cfg.FingerprintRPS, d.cfg.FingerprintBurst))
	d.logger.Debug("fingerprint source selected", "source", source)

	if source == fingerprint.SourceBuiltWith {
		return fingerprint.NewBuiltWith(client, d.cfg.BuiltWithAPIKey, d.cfg.BuiltWithURL, d.logger), nil
	}
	// The probe fetches user-supplied hosts. Behind a proxy only redirects
	// can be checked, since the dial goes to the proxy.
	if httpclient.ResolveProxy(d.cfg.Proxy) == "" {
		httpclient.GuardPrivateNetworks(client)
	} else {
		httpclient.GuardRedirects(client)
		d.logger.Debug("probe dials through a proxy, private address check limited to redirects")
	}
	return fingerprint.NewProbe(client, matcher, d.logger), nil
}

// stack is the assembled analysis engine and the resources behind it.
type stack struct {
	engine  *engine.Engine
	cache   *cache.Cache
	metrics *metrics.Metrics
	closers []func() error
}

// Close releases the resources opened by newStack.
func (s *stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// newStack wires the engine from the resolved config.
func (d *deps) newStack() (*stack, error) {
	patterns, err := d.loadPatterns()
	if err != nil {
		return nil, err
	}
	detector, err := detect.NewDetector(patterns)
	if err != nil {
		return nil, fmt.Errorf("compiling detect patterns: %w", err)
	}

	sys, err := d.newResolver()
	if err != nil {
		return nil, err
	}
	lookuper, err := d.newMXLookuper(sys)
	if err != nil {
		return nil, err
	}
	fp, err := d.newFingerprinter(detector)
	if err != nil {
		return nil, err
	}

	s := &stack{metrics: metrics.New()}
	var mxOpts []mx.Option
	if d.cfg.GeoIPDatabase != "" {
		loc, err := geo.Open(d.cfg.GeoIPDatabase, sys)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, loc.Close)
		mxOpts = append(mxOpts, mx.WithLocator(loc))
	}

	s.cache, err = cache.New(cache.Options{DefaultTTL: d.cfg.CacheTTL, MaxEntries: d.cfg.CacheMaxEntries})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	s.engine = engine.New(
		mx.NewService(lookuper, d.logger, mxOpts...),
		fp,
		s.cache,
		d.logger,
		engine.Options{MXTimeout: d.cfg.MXTimeout, FingerprintTimeout: d.cfg.FingerprintTimeout},
		engine.WithRecorder(s.metrics),
		engine.WithAggregator(analysis.NewAggregator(analysis.WithMailDetector(detector))),
	)
	return s, nil
}
