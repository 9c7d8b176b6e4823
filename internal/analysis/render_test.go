package analysis_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/output"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		Domain:    "example.com",
		MXRecords: []analysis.MXRecord{{Exchange: "mx1.example.com", Priority: 10, Country: "DE"}, {Exchange: "mx2.example.com", Priority: 20}},
		TechGroups: []analysis.TechGroup{
			{Name: "WordPress", Category: "CMS", Count: 2, Variants: []analysis.Variant{{Label: "6.4.2", Confidence: 100}, {Label: "unspecified"}}},
			{Name: "Plausible", Count: 1, Variants: []analysis.Variant{{Label: "unspecified"}}},
		},
		MailProviders: []analysis.MailProvider{{Provider: "Google Workspace", Evidence: "aspmx.l.google.com"}},
		SourceErrors:  []analysis.SourceError{{Source: "fingerprint", Kind: "timeout", Reason: "lookup timed out after 5s"}},
	}
}

func TestResult_WriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().WriteText(&buf))

	want := "example.com mx 10 mx1.example.com DE\n" +
		"example.com mx 20 mx2.example.com\n" +
		"example.com mail Google Workspace (aspmx.l.google.com)\n" +
		"example.com tech WordPress [CMS] x2 6.4.2@100%,unspecified\n" +
		"example.com tech Plausible x1 unspecified\n" +
		"example.com error fingerprint timeout: lookup timed out after 5s\n"
	assert.Equal(t, want, buf.String())
}

func TestResult_WriteText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&analysis.Result{Domain: "example.com"}).WriteText(&buf))
	assert.Empty(t, buf.String())
}

func TestResults_WriteTable(t *testing.T) {
	other := &analysis.Result{
		Domain:    "example.org",
		MXRecords: []analysis.MXRecord{{Exchange: "mail.example.org", Priority: 5}},
	}
	var buf bytes.Buffer
	require.NoError(t, output.Write(&buf, output.FormatTable, analysis.Results{sampleResult(), other}))

	out := buf.String()
	for _, s := range []string{"DOMAIN", "KIND", "example.com", "example.org", "mx1.example.com", "mail.example.org", "WordPress", "fingerprint"} {
		assert.Contains(t, out, s)
	}
}

func TestResults_WriteText_Order(t *testing.T) {
	a := &analysis.Result{Domain: "a.example", MXRecords: []analysis.MXRecord{{Exchange: "mx.a.example", Priority: 1}}}
	b := &analysis.Result{Domain: "b.example", MXRecords: []analysis.MXRecord{{Exchange: "mx.b.example", Priority: 1}}}
	var buf bytes.Buffer
	require.NoError(t, output.Write(&buf, output.FormatText, analysis.Results{b, a}))
	assert.Equal(t, "b.example mx 1 mx.b.example\na.example mx 1 mx.a.example\n", buf.String())
}
