package worker

import (
	"bufio"
	"io"
	"strings"
)

// maxLine bounds a single input line.
const maxLine = 64 * 1024

// ReadInputs reads one input per line from r. Surrounding whitespace is
// trimmed; blank lines and lines starting with '#' are skipped, as are
// repeats of an earlier line.
func ReadInputs(r io.Reader) ([]string, error) {
	var inputs []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return inputs, nil
}
