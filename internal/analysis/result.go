// Package analysis defines the analysis result model and the aggregator that
// merges MX and technology lookups into one immutable result.
package analysis

import (
	"time"

	"github.com/tbckr/domainlens/internal/validate"
)

// Lookup source identifiers used in SourceError.Source.
const (
	SourceMX          = "mx"
	SourceFingerprint = "fingerprint"
)

// UnspecifiedVariant labels a technology observation that carried no version
// or variant.
const UnspecifiedVariant = "unspecified"

// MXRecord is one mail exchange of a domain.
type MXRecord struct {
	Exchange string `json:"exchange"`
	Priority uint16 `json:"priority"`
	// Country is the ISO code of the exchange's first address, when known.
	Country string `json:"country,omitempty"`
}

// TechObservation is a raw technology hit as reported by a fingerprint source.
type TechObservation struct {
	Name     string
	Category string
	// Variant is a version or sub-location; empty when the source reported none.
	Variant string
	// Confidence is 0 when the source does not report one.
	Confidence int
	// Occurrences is how many times the source saw this exact observation.
	// Zero means once.
	Occurrences int
}

// Variant is a deduplicated detail of a TechGroup.
type Variant struct {
	Label      string `json:"label"`
	Confidence int    `json:"confidence,omitempty"`
}

// TechGroup aggregates all observations of one technology.
type TechGroup struct {
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Count    int       `json:"count"`
	Variants []Variant `json:"variants"`
}

// MailProvider is a mail hosting provider recognised from an MX exchange.
type MailProvider struct {
	Provider string `json:"provider"`
	Evidence string `json:"evidence"`
}

// SourceError records a lookup source that failed while the analysis as a
// whole still succeeded.
type SourceError struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// Result is the aggregate root of one analysis. A Result must not be
// modified once returned by the Aggregator; it is shared between the cache
// and concurrent readers.
type Result struct {
	Domain        validate.Domain `json:"domain"`
	GeneratedAt   time.Time       `json:"generatedAt"`
	MXRecords     []MXRecord      `json:"mxRecords"`
	TechGroups    []TechGroup     `json:"techGroups"`
	MailProviders []MailProvider  `json:"mailProviders"`
	SourceErrors  []SourceError   `json:"sourceErrors"`
}

// Partial reports whether at least one source failed.
func (r *Result) Partial() bool { return len(r.SourceErrors) > 0 }

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.MXRecords = append(make([]MXRecord, 0, len(r.MXRecords)), r.MXRecords...)
	c.MailProviders = append(make([]MailProvider, 0, len(r.MailProviders)), r.MailProviders...)
	c.SourceErrors = append(make([]SourceError, 0, len(r.SourceErrors)), r.SourceErrors...)
	c.TechGroups = make([]TechGroup, len(r.TechGroups))
	for i, g := range r.TechGroups {
		g.Variants = append(make([]Variant, 0, len(g.Variants)), g.Variants...)
		c.TechGroups[i] = g
	}
	return &c
}
