// Package doh resolves MX records over DNS-over-HTTPS (RFC 8484 wire format).
package doh

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"

	"github.com/imroc/req/v3"
	"github.com/miekg/dns"

	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/dnsclient"
)

const (
	// DefaultURL is the Quad9 DNS-over-HTTPS endpoint.
	DefaultURL = "https://dns.quad9.net/dns-query"

	mediaType = "application/dns-message"
)

// Client performs DoH queries through a shared *req.Client.
type Client struct {
	http *req.Client
	url  string
}

// New returns a Client posting queries to url (DefaultURL when empty).
func New(client *req.Client, url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{http: client, url: url}
}

// LookupMX implements services.MXLookuper.
func (c *Client) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeMX)

	resp, err := c.Exchange(ctx, msg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &net.DNSError{Err: err.Error(), Name: name, Server: c.url}
	}
	if err := dnsclient.RcodeError(name, c.url, resp); err != nil {
		return nil, err
	}
	return dnsclient.ExtractMX(resp), nil
}

// Exchange sends msg as a GET request with the "dns" query parameter and
// decodes the wire-format answer.
func (c *Client) Exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	// RFC 8484 §4.1: use ID 0 so responses are cache friendly.
	q := msg.Copy()
	q.Id = 0
	wire, err := q.Pack()
	if err != nil {
		return nil, fmt.Errorf("%w: packing DNS query: %w", apperr.ErrRequestFailed, err)
	}

	httpResp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", mediaType).
		SetQueryParam("dns", base64.RawURLEncoding.EncodeToString(wire)).
		Get(c.url)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: doh request: %w", apperr.ErrRequestFailed, err)
	}
	if !httpResp.IsSuccessState() {
		body := httpResp.String()
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		return nil, fmt.Errorf("%w: doh server returned HTTP %d: %q", apperr.ErrRequestFailed, httpResp.StatusCode, body)
	}

	out := new(dns.Msg)
	if err := out.Unpack(httpResp.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: parsing DNS response: %w", apperr.ErrRequestFailed, err)
	}
	return out, nil
}
