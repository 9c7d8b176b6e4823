// Package detect matches lookup results against known provider and
// technology patterns. Patterns are loaded from an embedded YAML file that
// users may override.
package detect

import (
	"fmt"
	"strings"
)

// ServiceType identifies the category of a detection.
type ServiceType string

// ServiceType constants for each detection category.
const (
	TypeEmail      ServiceType = "Email"
	TypeTechnology ServiceType = "Technology"
)

// Detection holds the result of matching a lookup record against known provider patterns.
type Detection struct {
	Type     ServiceType
	Provider string
	Evidence string // e.g. MX exchange
	Source   string // lookup that produced the evidence
}

// Detector matches records against a compiled set of Patterns.
// It is immutable after construction and safe for concurrent use.
type Detector struct {
	email []EmailPattern
	techs []compiledSignature
}

// NewDetector compiles p. It fails when a technology rule is not a valid
// regular expression.
func NewDetector(p Patterns) (*Detector, error) {
	techs := make([]compiledSignature, 0, len(p.Technologies))
	for _, sig := range p.Technologies {
		c, err := compileSignature(sig)
		if err != nil {
			return nil, fmt.Errorf("compiling signature %q: %w", sig.Name, err)
		}
		techs = append(techs, c)
	}
	return &Detector{email: p.Email, techs: techs}, nil
}

// matchSuffix returns true when host == suffix or host ends with "."+suffix.
func matchSuffix(host, suffix string) bool {
	h := strings.ToLower(strings.TrimSuffix(host, "."))
	s := strings.ToLower(strings.TrimPrefix(suffix, "."))
	return h == s || strings.HasSuffix(h, "."+s)
}
