package server

import (
	"html/template"
	"strings"
	"time"

	"github.com/tbckr/domainlens/internal/analysis"
)

var templateFuncs = template.FuncMap{
	"rfc3339": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"variants": func(vs []analysis.Variant) string {
		labels := make([]string, 0, len(vs))
		for _, v := range vs {
			labels = append(labels, v.Label)
		}
		return strings.Join(labels, ", ")
	},
}
