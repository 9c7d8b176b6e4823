// Package dnsclient resolves MX records by querying DNS servers directly over
// UDP or TCP, bypassing the system resolver.
package dnsclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DefaultServers are queried when no servers are configured and
// /etc/resolv.conf cannot be read.
var DefaultServers = []string{"9.9.9.9:53", "1.1.1.1:53"}

const (
	defaultTimeout = 5 * time.Second
	ednsBufSize    = 4096
)

// Client sends MX queries to a list of servers, in order, until one answers.
type Client struct {
	servers []string
	udp     *dns.Client
	tcp     *dns.Client
	network string
}

// New returns a Client for network ("udp" or "tcp"). servers are host or
// host:port values; an empty list uses the nameservers from
// /etc/resolv.conf, falling back to DefaultServers.
func New(network string, servers []string, timeout time.Duration) (*Client, error) {
	if network != "udp" && network != "tcp" {
		return nil, fmt.Errorf("unsupported DNS network %q: must be \"udp\" or \"tcp\"", network)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if len(servers) == 0 {
		servers = systemServers()
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		addr, err := normalizeServer(s)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, addr)
	}
	return &Client{
		servers: normalized,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
		network: network,
	}, nil
}

// Servers returns the servers queried, in order.
func (c *Client) Servers() []string { return append([]string(nil), c.servers...) }

// LookupMX implements services.MXLookuper.
func (c *Client) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeMX)
	msg.SetEdns0(ednsBufSize, false)

	var lastErr error
	for _, server := range c.servers {
		resp, err := c.exchange(ctx, msg, server)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = toDNSError(name, server, err)
			continue
		}
		if resp.Rcode == dns.RcodeServerFailure || resp.Rcode == dns.RcodeRefused {
			lastErr = RcodeError(name, server, resp)
			continue
		}
		return mxOrError(name, server, resp)
	}
	if lastErr == nil {
		lastErr = &net.DNSError{Err: "no DNS servers configured", Name: name}
	}
	return nil, lastErr
}

// exchange sends msg to server and retries over TCP when a UDP answer was
// truncated.
func (c *Client) exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	client := c.udp
	if c.network == "tcp" {
		client = c.tcp
	}
	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err == nil && resp.Truncated && client == c.udp {
		resp, _, err = c.tcp.ExchangeContext(ctx, msg, server)
	}
	return resp, err
}

func mxOrError(name, server string, resp *dns.Msg) ([]*net.MX, error) {
	if err := RcodeError(name, server, resp); err != nil {
		return nil, err
	}
	return ExtractMX(resp), nil
}

// RcodeError returns the *net.DNSError matching the response code of resp, or
// nil when resp carries at least one MX answer. NXDOMAIN and empty answers
// are reported with IsNotFound set.
func RcodeError(name, server string, resp *dns.Msg) error {
	switch resp.Rcode {
	case dns.RcodeSuccess:
		if len(ExtractMX(resp)) == 0 {
			return &net.DNSError{Err: "no such host", Name: name, Server: server, IsNotFound: true}
		}
		return nil
	case dns.RcodeNameError:
		return &net.DNSError{Err: "no such host", Name: name, Server: server, IsNotFound: true}
	default:
		return &net.DNSError{
			Err:         "server responded with " + dns.RcodeToString[resp.Rcode],
			Name:        name,
			Server:      server,
			IsTemporary: resp.Rcode == dns.RcodeServerFailure,
		}
	}
}

// ExtractMX converts the MX answers of resp into net.MX values.
func ExtractMX(resp *dns.Msg) []*net.MX {
	var out []*net.MX
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			out = append(out, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	return out
}

func toDNSError(name, server string, err error) error {
	var netErr net.Error
	timeout := errors.As(err, &netErr) && netErr.Timeout()
	return &net.DNSError{Err: err.Error(), Name: name, Server: server, IsTimeout: timeout}
}

func normalizeServer(s string) (string, error) {
	if _, _, err := net.SplitHostPort(s); err == nil {
		return s, nil
	}
	if net.ParseIP(s) == nil {
		return "", fmt.Errorf("invalid DNS server %q: must be an IP address or IP:port", s)
	}
	return net.JoinHostPort(s, "53"), nil
}

func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return DefaultServers
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}
