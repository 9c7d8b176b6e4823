// Package validate normalizes and validates user-supplied domain names.
package validate

import (
	"regexp"
	"strings"

	"github.com/tbckr/domainlens/internal/apperr"
)

// maxDomainLength is the maximum length of a presentation-format domain name.
const maxDomainLength = 253

// domainRegexp validates lower-cased RFC 1123 hostnames with at least two
// labels. The TLD is alphabetic or an IDNA A-label.
var domainRegexp = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+([a-z]{2,63}|xn--[a-z0-9-]{1,59})$`)

// Domain is a normalized, lower-cased, validated host name. The zero value is
// not a valid Domain; obtain one through Validate.
type Domain string

func (d Domain) String() string { return string(d) }

// IsDomain reports whether s is already a valid normalized domain.
func IsDomain(s string) bool {
	return len(s) <= maxDomainLength && domainRegexp.MatchString(s)
}

// Validate normalizes raw and checks it against the domain grammar.
//
// Users paste all kinds of things into a search box, so the following are
// accepted and reduced to the host: surrounding whitespace, upper case, an
// e-mail address, an http:// or https:// URL with path, query or fragment,
// a :port suffix and leading or trailing dots.
//
// Validate is idempotent: Validate(string(d)) returns d for every valid d.
func Validate(raw string) (Domain, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", &apperr.ValidationError{Kind: apperr.KindEmpty, Input: raw}
	}

	host := normalize(s)
	if !IsDomain(host) {
		return "", &apperr.ValidationError{Kind: apperr.KindInvalidFormat, Input: raw}
	}
	return Domain(host), nil
}

// normalize reduces s to its host part. s must already be trimmed and
// lower-cased.
func normalize(s string) string {
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		s = s[i+1:]
	}
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, ".")
}
