package httpclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/imroc/req/v3"
)

// ErrPrivateAddress is returned when a request would reach a loopback,
// private or link-local address.
var ErrPrivateAddress = errors.New("private network address blocked")

// maxRedirects matches the net/http default.
const maxRedirects = 10

// IsPublicAddr reports whether addr is routable on the public internet.
func IsPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsInterfaceLocalMulticast() &&
		!addr.IsMulticast() &&
		!addr.IsUnspecified()
}

// GuardPrivateNetworks stops client from connecting to non-public addresses,
// both on the initial dial and when following redirects. The dial check runs
// on the resolved address, so hostnames that resolve to internal ranges are
// rejected too.
//
// The dial check also applies to proxy connections. Clients that route
// through a proxy should use GuardRedirects instead.
func GuardPrivateNetworks(client *req.Client) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   checkDialAddress,
	}
	client.SetDial(dialer.DialContext)
	GuardRedirects(client)
}

// GuardRedirects rejects redirects to internal IP literals and localhost
// names.
func GuardRedirects(client *req.Client) {
	client.SetRedirectPolicy(req.MaxRedirectPolicy(maxRedirects), publicRedirectPolicy)
}

func checkDialAddress(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s %s", ErrPrivateAddress, network, address)
	}
	if !IsPublicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ap.Addr())
	}
	return nil
}

// publicRedirectPolicy rejects redirects whose host is an internal IP
// literal or a localhost name before any connection is attempted.
func publicRedirectPolicy(r *http.Request, _ []*http.Request) error {
	host := strings.ToLower(strings.TrimSuffix(r.URL.Hostname(), "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: redirect to %s", ErrPrivateAddress, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && !IsPublicAddr(addr) {
		return fmt.Errorf("%w: redirect to %s", ErrPrivateAddress, addr)
	}
	return nil
}
