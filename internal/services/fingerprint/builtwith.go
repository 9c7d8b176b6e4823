package fingerprint

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/validate"
)

// DefaultBuiltWithURL is the BuiltWith domain API endpoint.
const DefaultBuiltWithURL = "https://api.builtwith.com/v21/api.json"

type builtWithResponse struct {
	Results []struct {
		Lookup string `json:"Lookup"`
		Result struct {
			Paths []builtWithPath `json:"Paths"`
		} `json:"Result"`
	} `json:"Results"`
	Errors []struct {
		Lookup  string `json:"Lookup"`
		Message string `json:"Message"`
		Code    int    `json:"Code"`
	} `json:"Errors"`
}

type builtWithPath struct {
	Domain       string                `json:"Domain"`
	SubDomain    string                `json:"SubDomain"`
	URL          string                `json:"Url"`
	Technologies []builtWithTechnology `json:"Technologies"`
}

type builtWithTechnology struct {
	Name       string   `json:"Name"`
	Tag        string   `json:"Tag"`
	Categories []string `json:"Categories"`
}

// BuiltWith queries the BuiltWith domain API.
type BuiltWith struct {
	client *req.Client
	logger *slog.Logger
	apiKey string
	url    string
	now    func() time.Time
}

// NewBuiltWith creates a BuiltWith client. An empty url selects
// DefaultBuiltWithURL.
func NewBuiltWith(client *req.Client, apiKey, url string, logger *slog.Logger) *BuiltWith {
	if url == "" {
		url = DefaultBuiltWithURL
	}
	return &BuiltWith{client: client, logger: logger, apiKey: apiKey, url: url, now: time.Now}
}

// Fingerprint returns one observation per technology per site path reported
// by BuiltWith. The path label is carried as the variant.
func (b *BuiltWith) Fingerprint(ctx context.Context, d validate.Domain, timeout time.Duration) ([]analysis.TechObservation, error) {
	lookupCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	var body builtWithResponse
	resp, err := b.client.R().
		SetContext(lookupCtx).
		SetQueryParam("KEY", b.apiKey).
		SetQueryParam("LOOKUP", d.String()).
		SetSuccessResult(&body).
		Get(b.url)
	if err != nil {
		// req also reports an undecodable success body here.
		err = classifyTransport(ctx, lookupCtx, timeout, err)
		b.logger.Debug("builtwith request failed", "domain", d, "error", err)
		return nil, err
	}
	if err := classifyStatus(resp, b.now()); err != nil {
		b.logger.Debug("builtwith returned error status", "domain", d, "status", resp.StatusCode, "body", snippet(resp.String()))
		return nil, err
	}
	if len(body.Errors) > 0 {
		msgs := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			msgs = append(msgs, clean(e.Message))
		}
		return nil, &apperr.SourceUnavailableError{
			Source: Name,
			Status: resp.StatusCode,
			Err:    errors.New("api error: " + strings.Join(msgs, "; ")),
		}
	}

	var obs []analysis.TechObservation
	for _, r := range body.Results {
		for _, p := range r.Result.Paths {
			label := pathLabel(p)
			for _, t := range p.Technologies {
				name := clean(t.Name)
				if name == "" {
					continue
				}
				obs = append(obs, analysis.TechObservation{
					Name:     name,
					Category: category(t),
					Variant:  label,
				})
			}
		}
	}
	b.logger.Debug("builtwith lookup complete", "domain", d, "observations", len(obs))
	return obs, nil
}

// pathLabel renders a BuiltWith path as host plus URL path, e.g.
// "shop.example.com/cart".
func pathLabel(p builtWithPath) string {
	host := clean(p.Domain)
	if sub := clean(p.SubDomain); sub != "" {
		host = sub + "." + host
	}
	return clean(host + clean(p.URL))
}

func category(t builtWithTechnology) string {
	for _, c := range t.Categories {
		if c = clean(c); c != "" {
			return c
		}
	}
	return clean(t.Tag)
}

// snippet shortens an upstream body for debug logs.
func snippet(body string) string {
	const limit = 512
	if len(body) > limit {
		return body[:limit]
	}
	return body
}
