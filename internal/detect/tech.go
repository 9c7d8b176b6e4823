package detect

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
)

// Page is the part of an HTTP response that technology signatures are
// matched against.
type Page struct {
	Headers http.Header
	// Cookies holds cookie names.
	Cookies []string
	// Meta maps a lower-cased <meta name> to its content values.
	Meta map[string][]string
	// Scripts holds <script src> values.
	Scripts []string
	HTML    string
}

// Match is a technology recognised on a Page.
type Match struct {
	Name       string
	Category   string
	Version    string
	Confidence int
}

type keyedRule struct {
	key string
	re  *regexp.Regexp
}

type compiledSignature struct {
	name       string
	category   string
	confidence int
	headers    []keyedRule
	cookies    []*regexp.Regexp
	meta       []keyedRule
	scripts    []*regexp.Regexp
	html       []*regexp.Regexp
}

func compileSignature(sig TechSignature) (compiledSignature, error) {
	c := compiledSignature{name: sig.Name, category: sig.Category, confidence: sig.Confidence}
	var err error
	if c.headers, err = compileKeyed(sig.Headers, http.CanonicalHeaderKey); err != nil {
		return c, err
	}
	if c.meta, err = compileKeyed(sig.Meta, strings.ToLower); err != nil {
		return c, err
	}
	if c.cookies, err = compileAll(sig.Cookies); err != nil {
		return c, err
	}
	if c.scripts, err = compileAll(sig.Scripts); err != nil {
		return c, err
	}
	if c.html, err = compileAll(sig.HTML); err != nil {
		return c, err
	}
	return c, nil
}

// compileKeyed compiles a key->regexp map. Keys are sorted so matching order
// and therefore the reported version are deterministic.
func compileKeyed(m map[string]string, canon func(string) string) ([]keyedRule, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rules := make([]keyedRule, 0, len(keys))
	for _, k := range keys {
		re, err := regexp.Compile("(?i)" + m[k])
		if err != nil {
			return nil, err
		}
		rules = append(rules, keyedRule{key: canon(k), re: re})
	}
	return rules, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Technologies returns one Match per signature that matches page, in
// signature order.
func (d *Detector) Technologies(page Page) []Match {
	var matches []Match
	for _, sig := range d.techs {
		if m, ok := sig.match(page); ok {
			matches = append(matches, m)
		}
	}
	return matches
}

func (s compiledSignature) match(page Page) (Match, bool) {
	var (
		matched bool
		version string
	)
	try := func(re *regexp.Regexp, value string) {
		sub := re.FindStringSubmatch(value)
		if sub == nil {
			return
		}
		matched = true
		if version == "" && len(sub) > 1 {
			version = sub[1]
		}
	}

	for _, r := range s.headers {
		for _, v := range page.Headers.Values(r.key) {
			try(r.re, v)
		}
	}
	for _, re := range s.cookies {
		for _, name := range page.Cookies {
			try(re, name)
		}
	}
	for _, r := range s.meta {
		for _, v := range page.Meta[r.key] {
			try(r.re, v)
		}
	}
	for _, re := range s.scripts {
		for _, src := range page.Scripts {
			try(re, src)
		}
	}
	for _, re := range s.html {
		try(re, page.HTML)
	}

	if !matched {
		return Match{}, false
	}
	return Match{
		Name:       s.name,
		Category:   s.category,
		Version:    version,
		Confidence: s.confidence,
	}, true
}
