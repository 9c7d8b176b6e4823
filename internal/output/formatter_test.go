package output_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/output"
)

type fakeResult struct {
	Name string `json:"name"`
}

func (f *fakeResult) WriteText(w io.Writer) error {
	_, err := w.Write([]byte("text:" + f.Name))
	return err
}

func (f *fakeResult) WriteTable(w io.Writer) error {
	_, err := w.Write([]byte("table:" + f.Name))
	return err
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := output.Write(&buf, output.FormatJSON, &fakeResult{Name: "test"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"test\"\n}\n", buf.String())
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	err := output.Write(&buf, output.FormatText, &fakeResult{Name: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "text:hello", buf.String())
}

func TestWrite_Table(t *testing.T) {
	var buf bytes.Buffer
	err := output.Write(&buf, output.FormatTable, &fakeResult{Name: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "table:hello", buf.String())
}

func TestWrite_NotFormattable(t *testing.T) {
	for _, f := range []output.Format{output.FormatText, output.FormatTable} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			err := output.Write(&buf, f, struct{ X int }{X: 1})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "does not support "+string(f)+" output")
		})
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := output.Write(&buf, output.Format("xml"), struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "json", "table"} {
		f, err := output.ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, output.Format(s), f)
	}
	_, err := output.ParseFormat("plain")
	require.Error(t, err)
}
