package fingerprint_test

import (
	"testing"

	"github.com/imroc/req/v3"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/services/fingerprint"
)

func newTestClient(t *testing.T) *req.Client {
	t.Helper()
	client := req.NewClient()
	httpmock.ActivateNonDefault(client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		apiKey  string
		want    string
		wantErr error
	}{
		{"auto with key", "auto", "k", fingerprint.SourceBuiltWith, nil},
		{"auto without key", "auto", "", fingerprint.SourceProbe, nil},
		{"empty means auto", "", "", fingerprint.SourceProbe, nil},
		{"builtwith with key", "builtwith", "k", fingerprint.SourceBuiltWith, nil},
		{"builtwith without key", "builtwith", "", "", fingerprint.ErrMissingAPIKey},
		{"probe ignores key", "Probe", "k", fingerprint.SourceProbe, nil},
		{"unknown", "wappalyzer", "", "", apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fingerprint.ResolveSource(tt.source, tt.apiKey)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
