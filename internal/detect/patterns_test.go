package detect_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/detect"
)

func TestLoadPatterns_Embedded(t *testing.T) {
	p, err := detect.LoadPatterns()
	require.NoError(t, err)
	assert.NotEmpty(t, p.Email)
	assert.NotEmpty(t, p.Technologies)

	// Every embedded signature must compile.
	_, err = detect.NewDetector(p)
	require.NoError(t, err)
}

func TestLoadPatterns_OverrideFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "patterns.yaml")
	content := `email:
  - suffix: "mail.example.net"
    provider: "ExampleMail"
technologies:
  - name: Acme
    category: CMS
    html: ['acme-cms']
`
	require.NoError(t, os.WriteFile(f, []byte(content), 0o600))

	p, err := detect.LoadPatterns(f)
	require.NoError(t, err)
	require.Len(t, p.Email, 1)
	assert.Equal(t, "ExampleMail", p.Email[0].Provider)
	require.Len(t, p.Technologies, 1)
	assert.Equal(t, "Acme", p.Technologies[0].Name)
}

func TestLoadPatterns_MissingFilesFallBackToEmbedded(t *testing.T) {
	p, err := detect.LoadPatterns("", filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, p.Technologies)
}

func TestLoadPatterns_InvalidYAML(t *testing.T) {
	f := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(f, []byte("email: [unterminated"), 0o600))

	_, err := detect.LoadPatterns(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing patterns file")
}

func TestNewDetector_InvalidRegexp(t *testing.T) {
	_, err := detect.NewDetector(detect.Patterns{
		Technologies: []detect.TechSignature{{Name: "Broken", HTML: []string{"(unclosed"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")
}

func TestDefaultPatternPaths(t *testing.T) {
	paths, err := detect.DefaultPatternPaths()
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "patterns.yaml", filepath.Base(paths[0]))
	assert.Equal(t, "domainlens", filepath.Base(filepath.Dir(paths[0])))
}
