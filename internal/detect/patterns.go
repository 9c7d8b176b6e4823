package detect

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tbckr/domainlens/internal/appdir"
)

//go:embed patterns.yaml
var embeddedPatterns []byte

// EmailPattern maps an MX exchange suffix to an email provider name.
type EmailPattern struct {
	Suffix   string `yaml:"suffix"`
	Provider string `yaml:"provider"`
}

// TechSignature describes how to recognise one technology in an HTTP
// response. Every rule is a regular expression; see patterns.yaml.
type TechSignature struct {
	Name       string            `yaml:"name"`
	Category   string            `yaml:"category"`
	Confidence int               `yaml:"confidence"`
	Headers    map[string]string `yaml:"headers"`
	Cookies    []string          `yaml:"cookies"`
	Meta       map[string]string `yaml:"meta"`
	Scripts    []string          `yaml:"scripts"`
	HTML       []string          `yaml:"html"`
}

// Patterns holds all detection patterns.
type Patterns struct {
	Email        []EmailPattern  `yaml:"email"`
	Technologies []TechSignature `yaml:"technologies"`
}

// LoadPatterns tries each path in order; the first file that exists is used.
// Falls back to the embedded patterns.yaml when no override file is found.
func LoadPatterns(paths ...string) (Patterns, error) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Patterns{}, fmt.Errorf("reading patterns file %q: %w", path, err)
		}
		var p Patterns
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Patterns{}, fmt.Errorf("parsing patterns file %q: %w", path, err)
		}
		return p, nil
	}
	return EmbeddedPatterns()
}

// EmbeddedPatterns returns the compiled-in default patterns.
func EmbeddedPatterns() (Patterns, error) {
	var p Patterns
	if err := yaml.Unmarshal(embeddedPatterns, &p); err != nil {
		return Patterns{}, fmt.Errorf("parsing embedded patterns: %w", err)
	}
	return p, nil
}

// DefaultPatternPaths returns the user override path derived from
// appdir.ConfigDir().
func DefaultPatternPaths() ([]string, error) {
	dir, err := appdir.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	return []string{filepath.Join(dir, "patterns.yaml")}, nil
}
