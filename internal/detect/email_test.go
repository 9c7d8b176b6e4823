package detect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/detect"
)

func newDetector(t *testing.T) *detect.Detector {
	t.Helper()
	p, err := detect.EmbeddedPatterns()
	require.NoError(t, err)
	d, err := detect.NewDetector(p)
	require.NoError(t, err)
	return d
}

func TestEmailProvider_GoogleWorkspace(t *testing.T) {
	detections := newDetector(t).EmailProvider([]string{"aspmx.l.google.com"})
	require.Len(t, detections, 1)
	assert.Equal(t, detect.TypeEmail, detections[0].Type)
	assert.Equal(t, "Google Workspace", detections[0].Provider)
	assert.Equal(t, "aspmx.l.google.com", detections[0].Evidence)
	assert.Equal(t, "mx", detections[0].Source)
}

func TestEmailProvider_TrailingDotAndCase(t *testing.T) {
	detections := newDetector(t).EmailProvider([]string{"Contoso-com.MAIL.protection.outlook.com."})
	require.Len(t, detections, 1)
	assert.Equal(t, "Microsoft 365", detections[0].Provider)
}

func TestEmailProvider_UnknownHost(t *testing.T) {
	assert.Empty(t, newDetector(t).EmailProvider([]string{"mail.unknown-provider.example"}))
}

func TestEmailProvider_EmptyInput(t *testing.T) {
	d := newDetector(t)
	assert.Empty(t, d.EmailProvider(nil))
	assert.Empty(t, d.EmailProvider([]string{}))
}

func TestEmailProvider_DeduplicatesPerHost(t *testing.T) {
	detections := newDetector(t).EmailProvider([]string{
		"aspmx.l.google.com",
		"alt1.aspmx.l.google.com",
		"aspmx.l.google.com",
	})
	require.Len(t, detections, 2)
	assert.Equal(t, "aspmx.l.google.com", detections[0].Evidence)
	assert.Equal(t, "alt1.aspmx.l.google.com", detections[1].Evidence)
}

func TestEmailProvider_SuffixBoundary(t *testing.T) {
	// "notgoogle.com" must not match the "google.com" suffix.
	assert.Empty(t, newDetector(t).EmailProvider([]string{"mx.notgoogle.com"}))
}

func TestEmailProvider_KnownProviders(t *testing.T) {
	tests := []struct {
		host     string
		provider string
	}{
		{"example-com.mail.protection.outlook.com", "Microsoft 365"},
		{"mx0a-001.pphosted.com", "Proofpoint"},
		{"eu-smtp-inbound-1.mimecast.com", "Mimecast"},
		{"mx1.emailsrvr.com", "Rackspace Email"},
		{"cluster1.eu.messagelabs.com", "Broadcom Email Security"},
		{"mx.zoho.com", "ZOHO Mail"},
		{"mxa.mailgun.org", "Mailgun"},
	}
	d := newDetector(t)
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			detections := d.EmailProvider([]string{tt.host})
			require.Len(t, detections, 1)
			assert.Equal(t, tt.provider, detections[0].Provider)
		})
	}
}
