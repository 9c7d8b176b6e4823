package output

import (
	"regexp"
	"strings"
)

var (
	// CSI sequences (colors, cursor movement) and OSC sequences (titles,
	// hyperlinks) terminated by BEL or ST.
	ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
)

// StripANSI removes terminal escape sequences and other control characters
// (except tab) from external data before it is stored or printed.
func StripANSI(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if r == '\t' || (r >= 0x20 && r != 0x7f) {
			return r
		}
		return -1
	}, s)
}
