// Package config resolves domainlens settings from flags, environment
// variables, the config file and built-in defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tbckr/domainlens/internal/appdir"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DOMAINLENS"

// Config is the fully resolved configuration.
type Config struct {
	// ConfigFile is the path of the config file that was loaded.
	ConfigFile string

	Verbose     bool
	Output      string
	Concurrency int
	Proxy       string
	UserAgent   string

	// Listen is the address the HTTP server binds to.
	Listen string

	MXTimeout          time.Duration
	FingerprintTimeout time.Duration

	CacheTTL           time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	DNSTransport string
	DNSServers   []string
	DoHURL       string

	FingerprintSource string
	BuiltWithAPIKey   string
	BuiltWithURL      string
	FingerprintRPS    float64
	FingerprintBurst  int

	PatternsFile  string
	GeoIPDatabase string
}

// Enumerated values.
var (
	OutputFormats      = []string{"text", "json", "table"}
	DNSTransports      = []string{"system", "udp", "tcp", "doh"}
	FingerprintSources = []string{"auto", "builtwith", "probe"}
)

// RegisterFlags registers every config key as a persistent flag. Flag names
// use hyphens where the config key uses underscores.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default: $XDG_CONFIG_HOME/domainlens/config.yaml)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.StringP("output", "o", "text", "output format: text, json or table")
	flags.IntP("concurrency", "c", 10, "number of domains analyzed in parallel")
	flags.String("proxy", "", "proxy URL (http://, https:// or socks5://)")
	flags.String("user-agent", "", "User-Agent header or browser preset (chrome, firefox, safari)")
	flags.String("listen", ":8080", "HTTP listen address for serve")
	flags.Duration("mx-timeout", 5*time.Second, "timeout of the MX lookup")
	flags.Duration("fingerprint-timeout", 5*time.Second, "timeout of the technology lookup")
	flags.Duration("cache-ttl", 15*time.Minute, "lifetime of a cached analysis")
	flags.Int("cache-max-entries", 1024, "maximum number of cached analyses")
	flags.Duration("cache-sweep-interval", time.Minute, "interval between expired-entry sweeps (0 disables)")
	flags.String("dns-transport", "system", "MX lookup transport: system, udp, tcp or doh")
	flags.StringSlice("dns-servers", nil, "DNS servers for the udp and tcp transports")
	flags.String("doh-url", "", "DNS-over-HTTPS endpoint (default: Quad9)")
	flags.String("fingerprint-source", "auto", "technology source: auto, builtwith or probe")
	flags.String("builtwith-api-key", "", "BuiltWith API key")
	flags.String("builtwith-url", "", "BuiltWith API endpoint")
	flags.Float64("fingerprint-rps", 1, "outbound technology lookups per second (0 disables pacing)")
	flags.Int("fingerprint-burst", 5, "burst of outbound technology lookups")
	flags.String("patterns-file", "", "provider and technology pattern override file")
	flags.String("geoip-database", "", "MaxMind GeoIP2/GeoLite2 country database for MX geolocation")
}

// DefaultConfigPath returns the platform config file location.
func DefaultConfigPath() (string, error) {
	dir, err := appdir.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load resolves the configuration. The config file is created (mode 0600)
// when it does not exist yet.
func Load(flags *pflag.FlagSet) (*Config, error) {
	path, err := flags.GetString("config")
	if err != nil || path == "" {
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	if err := appdir.EnsureFile(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range ValidKeys() {
		if f := flags.Lookup(flagName(key)); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %q: %w", f.Name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	return &Config{
		ConfigFile:         path,
		Verbose:            v.GetBool("verbose"),
		Output:             strings.ToLower(v.GetString("output")),
		Concurrency:        v.GetInt("concurrency"),
		Proxy:              v.GetString("proxy"),
		UserAgent:          v.GetString("user_agent"),
		Listen:             v.GetString("listen"),
		MXTimeout:          v.GetDuration("mx_timeout"),
		FingerprintTimeout: v.GetDuration("fingerprint_timeout"),
		CacheTTL:           v.GetDuration("cache_ttl"),
		CacheMaxEntries:    v.GetInt("cache_max_entries"),
		CacheSweepInterval: v.GetDuration("cache_sweep_interval"),
		DNSTransport:       strings.ToLower(v.GetString("dns_transport")),
		DNSServers:         splitList(v.GetStringSlice("dns_servers")),
		DoHURL:             v.GetString("doh_url"),
		FingerprintSource:  strings.ToLower(v.GetString("fingerprint_source")),
		BuiltWithAPIKey:    v.GetString("builtwith_api_key"),
		BuiltWithURL:       v.GetString("builtwith_url"),
		FingerprintRPS:     v.GetFloat64("fingerprint_rps"),
		FingerprintBurst:   v.GetInt("fingerprint_burst"),
		PatternsFile:       v.GetString("patterns_file"),
		GeoIPDatabase:      v.GetString("geoip_database"),
	}, nil
}

// Validate checks enumerations and numeric ranges.
func (c *Config) Validate() error {
	var errs []error
	check := func(key, value string, valid []string) {
		if !slices.Contains(valid, value) {
			errs = append(errs, fmt.Errorf("invalid %s %q: must be one of %s", key, value, strings.Join(valid, ", ")))
		}
	}
	check("output", c.Output, OutputFormats)
	check("dns_transport", c.DNSTransport, DNSTransports)
	check("fingerprint_source", c.FingerprintSource, FingerprintSources)

	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.CacheMaxEntries < 1 {
		errs = append(errs, fmt.Errorf("cache_max_entries must be at least 1, got %d", c.CacheMaxEntries))
	}
	if c.FingerprintBurst < 1 {
		errs = append(errs, fmt.Errorf("fingerprint_burst must be at least 1, got %d", c.FingerprintBurst))
	}
	if c.FingerprintRPS < 0 {
		errs = append(errs, fmt.Errorf("fingerprint_rps must not be negative, got %v", c.FingerprintRPS))
	}
	for key, d := range map[string]time.Duration{
		"mx_timeout":          c.MXTimeout,
		"fingerprint_timeout": c.FingerprintTimeout,
		"cache_ttl":           c.CacheTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}
	if c.CacheSweepInterval < 0 {
		errs = append(errs, fmt.Errorf("cache_sweep_interval must not be negative, got %s", c.CacheSweepInterval))
	}
	return errors.Join(errs...)
}

// flagName maps a config key to its flag name.
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// splitList flattens comma separated entries, as env vars and YAML strings
// deliver lists as a single value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for part := range strings.SplitSeq(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
