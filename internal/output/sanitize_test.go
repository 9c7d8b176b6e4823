package output_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tbckr/domainlens/internal/output"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean string", "hello world", "hello world"},
		{"red color", "\x1b[31mred\x1b[0m", "red"},
		{"bold", "\x1b[1mbold\x1b[0m", "bold"},
		{"multiple sequences", "\x1b[1m\x1b[31merror\x1b[0m", "error"},
		{"cursor hide", "\x1b[?25lmx1.example.com", "mx1.example.com"},
		{"osc hyperlink", "\x1b]8;;https://evil.example\x07click\x1b]8;;\x07", "click"},
		{"osc title with st", "\x1b]0;pwned\x1b\\React", "React"},
		{"control chars", "Ng\rinx\x00\x7f", "Nginx"},
		{"tab kept", "a\tb", "a\tb"},
		{"unicode kept", "Müller", "Müller"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, output.StripANSI(tc.input))
		})
	}
}
