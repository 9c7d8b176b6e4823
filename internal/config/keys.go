package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownKey is returned for a key that is not a known config setting.
var ErrUnknownKey = errors.New("unknown config key")

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindDuration
	kindList
)

type keySpec struct {
	kind valueKind
	// enum restricts string values when non-empty.
	enum []string
	// min is the lowest accepted int or float value.
	min float64
	// positive rejects a zero duration.
	positive bool
}

var keySpecs = map[string]keySpec{
	"verbose":              {kind: kindBool},
	"output":               {kind: kindString, enum: OutputFormats},
	"concurrency":          {kind: kindInt, min: 1},
	"proxy":                {kind: kindString},
	"user_agent":           {kind: kindString},
	"listen":               {kind: kindString},
	"mx_timeout":           {kind: kindDuration, positive: true},
	"fingerprint_timeout":  {kind: kindDuration, positive: true},
	"cache_ttl":            {kind: kindDuration, positive: true},
	"cache_max_entries":    {kind: kindInt, min: 1},
	"cache_sweep_interval": {kind: kindDuration},
	"dns_transport":        {kind: kindString, enum: DNSTransports},
	"dns_servers":          {kind: kindList},
	"doh_url":              {kind: kindString},
	"fingerprint_source":   {kind: kindString, enum: FingerprintSources},
	"builtwith_api_key":    {kind: kindString},
	"builtwith_url":        {kind: kindString},
	"fingerprint_rps":      {kind: kindFloat, min: 0},
	"fingerprint_burst":    {kind: kindInt, min: 1},
	"patterns_file":        {kind: kindString},
	"geoip_database":       {kind: kindString},
}

// ValidKeys returns all config keys in sorted order.
func ValidKeys() []string {
	keys := make([]string, 0, len(keySpecs))
	for k := range keySpecs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// NormalizeKey maps a flag-style key ("cache-ttl") to its config key
// ("cache_ttl").
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), "-", "_")
}

// ValidateKey reports ErrUnknownKey for keys that are not config settings.
// Hyphenated flag names are accepted.
func ValidateKey(key string) error {
	if _, ok := keySpecs[NormalizeKey(key)]; !ok {
		return fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(ValidKeys(), ", "))
	}
	return nil
}

// KeyCompletions returns the shell completion candidates for the value of key.
func KeyCompletions(key string) []string {
	spec, ok := keySpecs[NormalizeKey(key)]
	if !ok {
		return nil
	}
	switch {
	case len(spec.enum) > 0:
		return slices.Clone(spec.enum)
	case spec.kind == kindBool:
		return []string{"true", "false"}
	}
	return nil
}

// ParseValue converts the string value for key into the type stored in the
// config file. Durations are kept in their canonical string form and lists
// are split on commas.
func ParseValue(key, value string) (any, error) {
	key = NormalizeKey(key)
	spec, ok := keySpecs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	switch spec.kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s: must be true or false", value, key)
		}
		return b, nil
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s: must be an integer", value, key)
		}
		if float64(n) < spec.min {
			return nil, fmt.Errorf("invalid value %d for %s: must be at least %v", n, key, spec.min)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s: must be a number", value, key)
		}
		if f < spec.min {
			return nil, fmt.Errorf("invalid value %v for %s: must be at least %v", f, key, spec.min)
		}
		return f, nil
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s: must be a duration such as 5s or 15m", value, key)
		}
		if d < 0 || (spec.positive && d == 0) {
			return nil, fmt.Errorf("invalid value %s for %s: must be positive", d, key)
		}
		return d.String(), nil
	case kindList:
		return splitList([]string{value}), nil
	}

	if len(spec.enum) > 0 {
		v := strings.ToLower(value)
		if !slices.Contains(spec.enum, v) {
			return nil, fmt.Errorf("invalid value %q for %s: must be one of %s", value, key, strings.Join(spec.enum, ", "))
		}
		return v, nil
	}
	return value, nil
}
