package validate_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/validate"
)

func TestValidate_Normalizes(t *testing.T) {
	tests := []struct {
		raw  string
		want validate.Domain
	}{
		{"example.com", "example.com"},
		{"  Example.COM \n", "example.com"},
		{"https://www.example.com/path?q=1#frag", "www.example.com"},
		{"http://example.com", "example.com"},
		{"example.com:8443", "example.com"},
		{"example.com.", "example.com"},
		{"john.doe@Example.org", "example.org"},
		{"sub-domain.example.co.uk", "sub-domain.example.co.uk"},
		{"xn--bcher-kva.example", "xn--bcher-kva.example"},
		{"example.xn--p1ai", "example.xn--p1ai"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := validate.Validate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := validate.Validate(raw)
		var verr *apperr.ValidationError
		require.True(t, errors.As(err, &verr), "input %q", raw)
		assert.Equal(t, apperr.KindEmpty, verr.Kind)
		assert.Equal(t, "Please provide a domain to analyze", err.Error())
	}
}

func TestValidate_InvalidFormat(t *testing.T) {
	tests := []string{
		"invalid-domain",
		"localhost",
		"-example.com",
		"example-.com",
		"exa_mple.com",
		"example.c",
		"example.123",
		"example..com",
		"http://",
		"@",
		strings.Repeat("a", 64) + ".com",
		strings.Repeat(strings.Repeat("a", 60)+".", 5) + "com",
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := validate.Validate(raw)
			var verr *apperr.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, apperr.KindInvalidFormat, verr.Kind)
			assert.Equal(t, "Invalid domain format", err.Error())
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	for _, raw := range []string{"example.com", "HTTPS://Mail.Example.org/x", "a@b.example.net", "example.com."} {
		first, err := validate.Validate(raw)
		require.NoError(t, err)
		second, err := validate.Validate(string(first))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestIsDomain(t *testing.T) {
	assert.True(t, validate.IsDomain("example.com"))
	assert.False(t, validate.IsDomain("Example.com"))
	assert.False(t, validate.IsDomain("example.com."))
	assert.False(t, validate.IsDomain(""))
}
