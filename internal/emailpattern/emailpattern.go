// Package emailpattern derives the common corporate e-mail address formats
// for a person at a domain.
package emailpattern

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Pattern is one candidate address.
type Pattern struct {
	Label string `json:"label"`
	Local string `json:"local"`
	// Email is Local@domain, or just Local when no domain is known.
	Email string `json:"email"`
	// MatchesEmail marks the candidate equal to a known address.
	MatchesEmail bool `json:"matchesEmail"`
}

// Name reduces a personal name to lower-case ASCII letters. Diacritics are
// folded ("José" becomes "jose"); everything else is dropped.
func Name(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Generate returns the candidate addresses for first and last name at
// domain, most common formats first and unique by local part. With only one
// usable name a single "name" candidate is returned; with none, nil.
func Generate(first, last, domain string) []Pattern {
	first, last = Name(first), Name(last)
	if first == "" && last == "" {
		return nil
	}

	var candidates [][2]string
	add := func(label, local string) {
		candidates = append(candidates, [2]string{label, local})
	}

	if first != "" && last != "" {
		f, l := first[:1], last[:1]
		for _, sep := range []string{".", "_", "-"} {
			add("first"+sep+"last", first+sep+last)
			add("f"+sep+"last", f+sep+last)
			add("first"+sep+"l", first+sep+l)
		}
		add("firstlast", first+last)
		add("flast", f+last)
		add("firstl", first+l)
		add("first", first)
		add("last", last)
	} else {
		add("name", first+last)
	}

	seen := make(map[string]bool, len(candidates))
	patterns := make([]Pattern, 0, len(candidates))
	for _, c := range candidates {
		label, local := c[0], c[1]
		if seen[local] {
			continue
		}
		seen[local] = true
		email := local
		if domain != "" {
			email = local + "@" + domain
		}
		patterns = append(patterns, Pattern{Label: label, Local: local, Email: email})
	}
	return patterns
}

// MarkMatches flags the patterns whose address equals email, ignoring case.
// It reports whether any pattern matched.
func MarkMatches(patterns []Pattern, email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	matched := false
	for i := range patterns {
		if strings.EqualFold(patterns[i].Email, email) {
			patterns[i].MatchesEmail = true
			matched = true
		}
	}
	return matched
}
