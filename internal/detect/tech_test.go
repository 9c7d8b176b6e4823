package detect_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/detect"
)

func findMatch(matches []detect.Match, name string) (detect.Match, bool) {
	for _, m := range matches {
		if m.Name == name {
			return m, true
		}
	}
	return detect.Match{}, false
}

func TestTechnologies_MetaGeneratorVersion(t *testing.T) {
	page := detect.Page{
		Meta: map[string][]string{"generator": {"WordPress 6.4.2"}},
	}
	m, ok := findMatch(newDetector(t).Technologies(page), "WordPress")
	require.True(t, ok)
	assert.Equal(t, "CMS", m.Category)
	assert.Equal(t, "6.4.2", m.Version)
	assert.Equal(t, 100, m.Confidence)
}

func TestTechnologies_Headers(t *testing.T) {
	h := http.Header{}
	h.Set("Server", "nginx/1.25.3")
	h.Set("X-Powered-By", "PHP/8.2.1")
	matches := newDetector(t).Technologies(detect.Page{Headers: h})

	nginx, ok := findMatch(matches, "Nginx")
	require.True(t, ok)
	assert.Equal(t, "1.25.3", nginx.Version)

	php, ok := findMatch(matches, "PHP")
	require.True(t, ok)
	assert.Equal(t, "8.2.1", php.Version)

	_, ok = findMatch(matches, "Apache HTTP Server")
	assert.False(t, ok)
}

func TestTechnologies_HeaderPresence(t *testing.T) {
	h := http.Header{}
	h.Set("Cf-Ray", "8123abc-FRA")
	m, ok := findMatch(newDetector(t).Technologies(detect.Page{Headers: h}), "Cloudflare")
	require.True(t, ok)
	assert.Empty(t, m.Version)
}

func TestTechnologies_ScriptsAndCookies(t *testing.T) {
	page := detect.Page{
		Scripts: []string{"https://code.jquery.com/jquery-3.7.1.min.js"},
		Cookies: []string{"PHPSESSID"},
	}
	matches := newDetector(t).Technologies(page)

	jq, ok := findMatch(matches, "jQuery")
	require.True(t, ok)
	assert.Equal(t, "3.7.1", jq.Version)

	_, ok = findMatch(matches, "PHP")
	assert.True(t, ok)
}

func TestTechnologies_SignatureOrder(t *testing.T) {
	d, err := detect.NewDetector(detect.Patterns{Technologies: []detect.TechSignature{
		{Name: "Second", Category: "B", HTML: []string{"beta"}},
		{Name: "First", Category: "A", HTML: []string{"alpha"}},
	}})
	require.NoError(t, err)

	matches := d.Technologies(detect.Page{HTML: "alpha beta"})
	require.Len(t, matches, 2)
	assert.Equal(t, "Second", matches[0].Name)
	assert.Equal(t, "First", matches[1].Name)
}

func TestTechnologies_NoMatch(t *testing.T) {
	assert.Empty(t, newDetector(t).Technologies(detect.Page{HTML: "<html><body>plain</body></html>"}))
}
