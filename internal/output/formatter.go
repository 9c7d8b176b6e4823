// Package output renders results for the terminal and for other programs.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format is the output format requested by the user.
type Format string

// Output format constants supported by the --output flag.
const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// TextFormattable results render as plain text, one record per line, for
// piping into other tools.
type TextFormattable interface {
	WriteText(w io.Writer) error
}

// TableFormattable results know how to render themselves as an ASCII table.
type TableFormattable interface {
	WriteTable(w io.Writer) error
}

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q: must be \"text\", \"json\", or \"table\"", s)
	}
}

// Write dispatches a result to the formatter for format. JSON is indented.
func Write(w io.Writer, format Format, result any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatText:
		tf, ok := result.(TextFormattable)
		if !ok {
			return fmt.Errorf("result type %T does not support text output", result)
		}
		return tf.WriteText(w)
	case FormatTable:
		tf, ok := result.(TableFormattable)
		if !ok {
			return fmt.Errorf("result type %T does not support table output", result)
		}
		return tf.WriteTable(w)
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}
}
