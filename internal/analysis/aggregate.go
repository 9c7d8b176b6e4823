package analysis

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/detect"
	"github.com/tbckr/domainlens/internal/validate"
)

// Failure is a lookup source that did not produce data.
type Failure struct {
	Source string
	Err    error
}

// MailDetector recognises mail hosting providers from MX exchanges.
type MailDetector interface {
	EmailProvider(mxHosts []string) []detect.Detection
}

// Aggregator merges lookup outcomes into a Result.
type Aggregator struct {
	now  func() time.Time
	mail MailDetector
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithMailDetector enables mail provider detection.
func WithMailDetector(d MailDetector) Option {
	return func(a *Aggregator) { a.mail = d }
}

// NewAggregator returns an Aggregator using the wall clock and no mail
// provider detection unless configured otherwise.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate builds the Result for d. The inputs are copied; the caller may
// reuse them afterwards.
//
// Technologies are grouped by exact name in first-seen order. A group's
// Count is the raw observation tally while its Variants collapse identical
// (label, confidence) details, so a repeated hit still raises the count
// without adding a duplicate variant.
func (a *Aggregator) Aggregate(d validate.Domain, mx []MXRecord, obs []TechObservation, failures []Failure) *Result {
	r := &Result{
		Domain:        d,
		GeneratedAt:   a.now().UTC(),
		MXRecords:     NormalizeMX(mx),
		TechGroups:    groupTechnologies(obs),
		MailProviders: []MailProvider{},
		SourceErrors:  make([]SourceError, 0, len(failures)),
	}

	if a.mail != nil && len(r.MXRecords) > 0 {
		hosts := make([]string, len(r.MXRecords))
		for i, rec := range r.MXRecords {
			hosts[i] = rec.Exchange
		}
		for _, det := range a.mail.EmailProvider(hosts) {
			r.MailProviders = append(r.MailProviders, MailProvider{Provider: det.Provider, Evidence: det.Evidence})
		}
	}

	for _, f := range failures {
		if f.Err == nil {
			continue
		}
		r.SourceErrors = append(r.SourceErrors, SourceError{
			Source: f.Source,
			Kind:   apperr.Kind(f.Err),
			Reason: f.Err.Error(),
		})
	}
	return r
}

// NormalizeMX returns a copy of records without exact duplicates, ordered by
// ascending priority with ties broken by exchange. The result is never nil.
func NormalizeMX(records []MXRecord) []MXRecord {
	out := make([]MXRecord, 0, len(records))
	type key struct {
		exchange string
		priority uint16
	}
	seen := make(map[key]bool, len(records))
	for _, rec := range records {
		k := key{rec.Exchange, rec.Priority}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, rec)
	}
	slices.SortStableFunc(out, func(a, b MXRecord) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return strings.Compare(a.Exchange, b.Exchange)
	})
	return out
}

func groupTechnologies(obs []TechObservation) []TechGroup {
	groups := make([]TechGroup, 0)
	index := map[string]int{}
	seenVariant := map[string]map[Variant]bool{}

	for _, o := range obs {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, TechGroup{Name: name, Variants: []Variant{}})
			seenVariant[name] = map[Variant]bool{}
		}
		g := &groups[i]
		if g.Category == "" {
			g.Category = strings.TrimSpace(o.Category)
		}
		g.Count += max(1, o.Occurrences)

		label := strings.TrimSpace(o.Variant)
		if label == "" {
			label = UnspecifiedVariant
		}
		v := Variant{Label: label, Confidence: o.Confidence}
		if !seenVariant[name][v] {
			seenVariant[name][v] = true
			g.Variants = append(g.Variants, v)
		}
	}
	return groups
}
