package resolver

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/net/proxy"
)

// NewResolver returns a *net.Resolver appropriate for the given proxy URL.
//
// When proxyURL is empty, ALL_PROXY (or all_proxy) is consulted instead.
// When the effective URL is not a socks5:// URL the system resolver is
// returned (nil Dial field, Go uses the platform resolver).
//
// For a socks5:// URL, MX and address queries are tunnelled through the
// proxy using DNS-over-TCP so lookups do not leak to the local network.
func NewResolver(proxyURL string) (*net.Resolver, error) {
	if proxyURL == "" {
		proxyURL = firstEnv("ALL_PROXY", "all_proxy")
	}
	if !strings.HasPrefix(proxyURL, "socks5://") {
		return &net.Resolver{}, nil
	}

	host := strings.TrimSuffix(strings.TrimPrefix(proxyURL, "socks5://"), "/")

	dialer, err := proxy.SOCKS5("tcp", host, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("creating SOCKS5 dialer for DNS: %w", err)
	}

	ctxDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer does not implement ContextDialer")
	}

	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, _, address string) (net.Conn, error) {
			return ctxDialer.DialContext(ctx, "tcp", address)
		},
	}, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
