package fingerprint_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/services/fingerprint"
	"github.com/tbckr/domainlens/internal/testutil"
)

const builtWithFixture = `{
  "Results": [{
    "Lookup": "example.com",
    "Result": {
      "Paths": [
        {
          "Domain": "example.com", "SubDomain": "", "Url": "",
          "Technologies": [
            {"Name": "React", "Tag": "javascript", "Categories": ["JavaScript Frameworks"]},
            {"Name": "Nginx", "Tag": "Web Server", "Categories": []},
            {"Name": "  ", "Tag": "empty"}
          ]
        },
        {
          "Domain": "example.com", "SubDomain": "shop", "Url": "/cart",
          "Technologies": [
            {"Name": "React", "Tag": "javascript", "Categories": ["JavaScript Frameworks"]}
          ]
        }
      ]
    }
  }],
  "Errors": []
}`

func jsonResponder(status int, body string) httpmock.Responder {
	return func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	}
}

func TestBuiltWith_Fingerprint(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, fingerprint.DefaultBuiltWithURL,
		func(r *http.Request) (*http.Response, error) {
			assert.Equal(t, "secret", r.URL.Query().Get("KEY"))
			assert.Equal(t, "example.com", r.URL.Query().Get("LOOKUP"))
			return jsonResponder(http.StatusOK, builtWithFixture)(r)
		})

	bw := fingerprint.NewBuiltWith(client, "secret", "", testutil.NopLogger())
	obs, err := bw.Fingerprint(context.Background(), "example.com", time.Second)
	require.NoError(t, err)

	assert.Equal(t, []analysis.TechObservation{
		{Name: "React", Category: "JavaScript Frameworks", Variant: "example.com"},
		{Name: "Nginx", Category: "Web Server", Variant: "example.com"},
		{Name: "React", Category: "JavaScript Frameworks", Variant: "shop.example.com/cart"},
	}, obs)
}

func TestBuiltWith_CustomURL(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, "https://builtwith.internal/api.json",
		jsonResponder(http.StatusOK, `{"Results":[]}`))

	bw := fingerprint.NewBuiltWith(client, "k", "https://builtwith.internal/api.json", testutil.NopLogger())
	obs, err := bw.Fingerprint(context.Background(), "example.com", time.Second)
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestBuiltWith_Errors(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		check     func(t *testing.T, err error)
	}{
		{
			name: "rate limited with retry-after",
			responder: func(*http.Request) (*http.Response, error) {
				resp := httpmock.NewStringResponse(http.StatusTooManyRequests, "")
				resp.Header.Set("Retry-After", "12")
				return resp, nil
			},
			check: func(t *testing.T, err error) {
				var limited *apperr.RateLimitedError
				require.ErrorAs(t, err, &limited)
				assert.Equal(t, 12*time.Second, limited.RetryAfter)
				assert.Equal(t, apperr.KindRateLimited, apperr.Kind(err))
			},
		},
		{
			name:      "server error",
			responder: httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"),
			check: func(t *testing.T, err error) {
				var unavailable *apperr.SourceUnavailableError
				require.ErrorAs(t, err, &unavailable)
				assert.Equal(t, http.StatusBadGateway, unavailable.Status)
				assert.ErrorIs(t, err, apperr.ErrRequestFailed)
				assert.Contains(t, err.Error(), "502")
				assert.NotContains(t, err.Error(), "upstream down")
			},
		},
		{
			name:      "forbidden",
			responder: httpmock.NewStringResponder(http.StatusForbidden, ""),
			check: func(t *testing.T, err error) {
				assert.Equal(t, apperr.KindUnavailable, apperr.Kind(err))
			},
		},
		{
			name:      "transport error",
			responder: httpmock.NewErrorResponder(errors.New("connection refused")),
			check: func(t *testing.T, err error) {
				assert.Equal(t, apperr.KindUnavailable, apperr.Kind(err))
				assert.ErrorIs(t, err, apperr.ErrRequestFailed)
			},
		},
		{
			name: "undecodable body",
			responder: jsonResponder(http.StatusOK, "<html>not json</html>"),
			check: func(t *testing.T, err error) {
				assert.Equal(t, apperr.KindUnavailable, apperr.Kind(err))
			},
		},
		{
			name: "api level error",
			responder: jsonResponder(http.StatusOK,
				`{"Results":[],"Errors":[{"Lookup":"example.com","Message":"Invalid API key","Code":-1}]}`),
			check: func(t *testing.T, err error) {
				assert.Equal(t, apperr.KindUnavailable, apperr.Kind(err))
				assert.Contains(t, err.Error(), "Invalid API key")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t)
			httpmock.RegisterResponder(http.MethodGet, fingerprint.DefaultBuiltWithURL, tt.responder)

			bw := fingerprint.NewBuiltWith(client, "k", "", testutil.NopLogger())
			obs, err := bw.Fingerprint(context.Background(), "example.com", time.Second)
			require.Error(t, err)
			assert.Nil(t, obs)
			tt.check(t, err)
			assert.Equal(t, 1, httpmock.GetTotalCallCount(), "no retries")
		})
	}
}

func TestBuiltWith_Timeout(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, fingerprint.DefaultBuiltWithURL,
		func(r *http.Request) (*http.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		})

	bw := fingerprint.NewBuiltWith(client, "k", "", testutil.NopLogger())
	_, err := bw.Fingerprint(context.Background(), "example.com", 20*time.Millisecond)
	require.Error(t, err)

	var timeout *apperr.LookupTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, fingerprint.Name, timeout.Source)
	assert.Equal(t, 20*time.Millisecond, timeout.Timeout)
}

func TestBuiltWith_CallerCancelled(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, fingerprint.DefaultBuiltWithURL,
		func(r *http.Request) (*http.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bw := fingerprint.NewBuiltWith(client, "k", "", testutil.NopLogger())
	_, err := bw.Fingerprint(ctx, "example.com", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var timeout *apperr.LookupTimeoutError
	assert.False(t, errors.As(err, &timeout))
}

func TestBuiltWith_TransportErrorHidesAPIKey(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, fingerprint.DefaultBuiltWithURL,
		httpmock.NewErrorResponder(errors.New("connection refused")))

	bw := fingerprint.NewBuiltWith(client, "supersecretkey", "", testutil.NopLogger())
	_, err := bw.Fingerprint(context.Background(), "example.com", time.Second)
	require.Error(t, err)

	assert.NotContains(t, err.Error(), "supersecretkey")
	assert.Contains(t, err.Error(), "KEY=REDACTED")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, apperr.ErrRequestFailed)

	agg := analysis.NewAggregator()
	result := agg.Aggregate("example.com", nil, nil, []analysis.Failure{{Source: fingerprint.Name, Err: err}})
	require.Len(t, result.SourceErrors, 1)
	assert.NotContains(t, result.SourceErrors[0].Reason, "supersecretkey")
}
