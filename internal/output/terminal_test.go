package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalWidth_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, defaultTermWidth, TerminalWidth(&buf))
}

func TestTableOptions_ColumnWidth(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 60, TableOptions{MinWidth: 10, Overhead: 20}.ColumnWidth(&buf))
	assert.Equal(t, 30, TableOptions{MinWidth: 30, Overhead: 70}.ColumnWidth(&buf))
}

func TestNewTable_Grouped(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, TableOptions{Grouped: true, MinWidth: 10, Overhead: 20})
	table.Header([]string{"Domain", "Kind", "Value"})
	require.NoError(t, table.Append([]string{"example.com", "mx", "mx1.example.com"}))
	require.NoError(t, table.Append([]string{"example.com", "mx", "mx2.example.com"}))
	require.NoError(t, table.Render())

	out := buf.String()
	assert.Contains(t, out, "mx1.example.com")
	assert.Contains(t, out, "mx2.example.com")
}
