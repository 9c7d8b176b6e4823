package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

const defaultTermWidth = 80

// TerminalWidth returns the terminal width for w, or defaultTermWidth if w is
// not a terminal or the width cannot be determined.
func TerminalWidth(w io.Writer) int {
	type fder interface{ Fd() uintptr }
	if f, ok := w.(fder); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 { //nolint:gosec // file descriptors fit in int
			return width
		}
	}
	return defaultTermWidth
}

// TableOptions controls the layout of tables created by NewTable.
type TableOptions struct {
	// Grouped merges repeated leading cells (e.g. the domain, then the
	// record kind) and draws a separator between rows.
	Grouped bool
	// MinWidth is the floor for the per-column maximum width.
	MinWidth int
	// Overhead is the number of characters taken by borders, padding and
	// columns that are not expected to wrap.
	Overhead int
}

// ColumnWidth returns the wrap width for a column of a table written to w.
func (o TableOptions) ColumnWidth(w io.Writer) int {
	return max(o.MinWidth, TerminalWidth(w)-o.Overhead)
}

// NewTable returns a tablewriter that wraps cell content to fit the terminal.
func NewTable(w io.Writer, opts TableOptions) *tablewriter.Table {
	formatting := tw.CellFormatting{AutoWrap: tw.WrapNormal}
	tableOpts := []tablewriter.Option{}
	if opts.Grouped {
		formatting.MergeMode = tw.MergeHierarchical
		tableOpts = append(tableOpts, tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenRows: tw.On},
			},
		})))
	}
	tableOpts = append(tableOpts, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Formatting:   formatting,
			ColMaxWidths: tw.CellWidth{Global: opts.ColumnWidth(w)},
		},
	}))
	return tablewriter.NewTable(w, tableOpts...)
}
