package fingerprint

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/imroc/req/v3"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/detect"
	"github.com/tbckr/domainlens/internal/validate"
)

// maxProbeBody bounds how much of a page is inspected.
const maxProbeBody = 2 << 20

// Matcher recognises technologies on a fetched page.
type Matcher interface {
	Technologies(page detect.Page) []detect.Match
}

// Probe fetches the domain's landing page and matches it against the
// technology signatures.
type Probe struct {
	client  *req.Client
	matcher Matcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewProbe creates a Probe that fetches pages with client.
func NewProbe(client *req.Client, matcher Matcher, logger *slog.Logger) *Probe {
	return &Probe{client: client, matcher: matcher, logger: logger, now: time.Now}
}

// Fingerprint fetches https://d/, falling back to http://d/ when the TLS
// request fails at the transport level, and returns one observation per
// matching signature.
func (p *Probe) Fingerprint(ctx context.Context, d validate.Domain, timeout time.Duration) ([]analysis.TechObservation, error) {
	lookupCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.fetch(lookupCtx, "https://"+d.String()+"/")
	if err != nil && lookupCtx.Err() == nil {
		p.logger.Debug("https probe failed, retrying over http", "domain", d, "error", err)
		resp, err = p.fetch(lookupCtx, "http://"+d.String()+"/")
	}
	if err != nil {
		p.logger.Debug("probe request failed", "domain", d, "error", err)
		return nil, classifyTransport(ctx, lookupCtx, timeout, err)
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp, p.now()); err != nil {
		p.logger.Debug("probe returned error status", "domain", d, "status", resp.StatusCode)
		return nil, err
	}

	page, err := pageFromResponse(resp)
	if err != nil {
		p.logger.Debug("probe body unreadable", "domain", d, "error", err)
		if lookupCtx.Err() != nil {
			return nil, classifyTransport(ctx, lookupCtx, timeout, err)
		}
		return nil, &apperr.SourceUnavailableError{Source: Name, Status: resp.StatusCode}
	}

	matches := p.matcher.Technologies(page)
	obs := make([]analysis.TechObservation, 0, len(matches))
	for _, m := range matches {
		obs = append(obs, analysis.TechObservation{
			Name:       clean(m.Name),
			Category:   clean(m.Category),
			Variant:    clean(m.Version),
			Confidence: m.Confidence,
		})
	}
	p.logger.Debug("probe complete", "domain", d, "observations", len(obs))
	return obs, nil
}

// fetch leaves the body unread so pageFromResponse can bound it.
func (p *Probe) fetch(ctx context.Context, url string) (*req.Response, error) {
	return p.client.R().SetContext(ctx).DisableAutoReadResponse().Get(url)
}

// pageFromResponse extracts the signature inputs from at most maxProbeBody
// bytes of resp.
func pageFromResponse(resp *req.Response) (detect.Page, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return detect.Page{}, err
	}
	body := string(raw)

	page := detect.Page{
		Headers: resp.Header,
		Meta:    make(map[string][]string),
		HTML:    body,
	}
	for _, c := range resp.Cookies() {
		page.Cookies = append(page.Cookies, c.Name)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return page, err
	}
	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		key := strings.ToLower(strings.TrimSpace(name))
		page.Meta[key] = append(page.Meta[key], content)
	})
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			page.Scripts = append(page.Scripts, src)
		}
	})
	return page, nil
}
