package analysis

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tbckr/domainlens/internal/output"
)

// Results is an ordered set of analyses, as produced by a bulk run.
type Results []*Result

// WriteText renders the result as plain text with one record per line. Each
// line starts with the domain and the record kind, e.g.
// "example.com mx 10 mx1.example.com DE".
func (r *Result) WriteText(w io.Writer) error {
	for _, row := range r.rows() {
		if _, err := fmt.Fprintln(w, strings.Join(nonEmpty(row), " ")); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders the result as a table grouped by record kind.
func (r *Result) WriteTable(w io.Writer) error {
	return Results{r}.WriteTable(w)
}

// WriteText renders every result in order, one record per line.
func (rs Results) WriteText(w io.Writer) error {
	for _, r := range rs {
		if err := r.WriteText(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders all results in one table. Domain and Kind cells are
// merged hierarchically.
func (rs Results) WriteTable(w io.Writer) error {
	var rows [][]string
	for _, r := range rs {
		for _, row := range r.rows() {
			rows = append(rows, []string{row[0], row[1], strings.Join(nonEmpty(row[2:]), " ")})
		}
	}
	table := output.NewTable(w, output.TableOptions{Grouped: true, MinWidth: 20, Overhead: 40})
	table.Header([]string{"Domain", "Kind", "Value"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// rows flattens r into [domain, kind, fields...] records.
func (r *Result) rows() [][]string {
	d := r.Domain.String()
	var rows [][]string
	for _, mx := range r.MXRecords {
		rows = append(rows, []string{d, "mx", strconv.Itoa(int(mx.Priority)), mx.Exchange, mx.Country})
	}
	for _, mp := range r.MailProviders {
		rows = append(rows, []string{d, "mail", mp.Provider, wrap("(", mp.Evidence, ")")})
	}
	for _, g := range r.TechGroups {
		rows = append(rows, []string{d, "tech", g.Name, wrap("[", g.Category, "]"), "x" + strconv.Itoa(g.Count), variantList(g.Variants)})
	}
	for _, se := range r.SourceErrors {
		rows = append(rows, []string{d, "error", se.Source, se.Kind + ":", se.Reason})
	}
	return rows
}

func variantList(vs []Variant) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		if v.Confidence > 0 {
			parts = append(parts, v.Label+"@"+strconv.Itoa(v.Confidence)+"%")
			continue
		}
		parts = append(parts, v.Label)
	}
	return strings.Join(parts, ",")
}

func nonEmpty(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func wrap(open, s, close string) string {
	if s == "" {
		return ""
	}
	return open + s + close
}
