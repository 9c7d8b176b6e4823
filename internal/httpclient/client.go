// Package httpclient builds the outbound *req.Client shared by the HTTP
// based lookup sources.
package httpclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/imroc/req/v3"

	"github.com/tbckr/domainlens/internal/version"
)

// DefaultUserAgent is the User-Agent sent when no explicit value is configured.
// It identifies domainlens honestly so server operators can recognise its traffic.
// var (not const) because version.Version is a link-time variable.
var DefaultUserAgent = "domainlens/" + version.Version + " (+https://github.com/tbckr/domainlens)"

// impersonatePresets are user_agent values for which req provides a full
// ImpersonateXxx() method that sets TLS fingerprint, HTTP/2 settings, header
// order and User-Agent atomically.
var impersonatePresets = map[string]bool{
	"chrome":  true,
	"firefox": true,
	"safari":  true,
}

// PresetNames returns a sorted slice of the browser preset names accepted as
// user_agent. Suitable for shell completion functions.
func PresetNames() []string {
	names := make([]string, 0, len(impersonatePresets))
	for name := range impersonatePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveUserAgent returns the User-Agent value for display in config show/get.
func ResolveUserAgent(userAgent string) string {
	if userAgent != "" {
		return userAgent
	}
	return DefaultUserAgent
}

// ResolveProxy returns the proxy value that will actually be used.
// If proxy is explicitly configured, it is returned as-is. Otherwise the
// standard proxy env vars are checked and "<from environment>" is returned
// when any is set.
func ResolveProxy(proxy string) string {
	if proxy != "" {
		return proxy
	}
	for _, env := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy", "ALL_PROXY", "all_proxy"} {
		if os.Getenv(env) != "" {
			return "<from environment>"
		}
	}
	return ""
}

// New builds a *req.Client with optional proxy and user-agent configuration.
//
// userAgent is either a custom string, a browser preset (chrome, firefox,
// safari) that impersonates that browser, or empty for DefaultUserAgent.
// proxy supports http://, https:// and socks5:// URLs; when empty the
// HTTP_PROXY / HTTPS_PROXY / NO_PROXY environment variables are honoured.
// When debug is true and logger is non-nil, every response is logged at
// DEBUG level.
func New(proxy, userAgent string, logger *slog.Logger, debug bool) (*req.Client, error) {
	client := req.NewClient()

	switch {
	case userAgent == "chrome":
		client.ImpersonateChrome()
	case userAgent == "firefox":
		client.ImpersonateFirefox()
	case userAgent == "safari":
		client.ImpersonateSafari()
	case userAgent != "":
		client.SetUserAgent(userAgent)
	default:
		client.SetUserAgent(DefaultUserAgent)
	}

	if proxy != "" {
		if err := validateProxy(proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxy, err)
		}
		// A socks5:// URL forwards hostnames (not pre-resolved IPs) through
		// the proxy. The system MX transport uses resolver.NewResolver instead.
		client.SetProxyURL(proxy)
	} else {
		client.SetProxy(http.ProxyFromEnvironment)
	}

	if debug && logger != nil {
		attachDebugHook(client, logger)
	}

	return client, nil
}

// attachDebugHook registers an OnAfterResponse hook that logs the HTTP method,
// URL, and status code at DEBUG level, and logs a body snippet on non-2xx responses.
func attachDebugHook(client *req.Client, logger *slog.Logger) {
	client.OnAfterResponse(func(_ *req.Client, resp *req.Response) error {
		if resp.Request == nil || resp.Request.RawRequest == nil {
			return nil
		}
		logger.Debug("http response",
			"method", resp.Request.RawRequest.Method,
			"url", RedactURL(resp.Request.RawRequest.URL.String()),
			"status", resp.StatusCode,
		)
		if resp.Response != nil && !resp.IsSuccessState() {
			body := resp.String()
			if len(body) > 512 {
				body = body[:512]
			}
			logger.Debug("http error body", "status", resp.StatusCode, "body", body)
		}
		return nil
	})
}

// validateProxy performs a basic check that the proxy URL has a recognised scheme.
func validateProxy(proxy string) error {
	for _, scheme := range []string{"http://", "https://", "socks5://"} {
		if len(proxy) >= len(scheme) && proxy[:len(scheme)] == scheme {
			return nil
		}
	}
	return fmt.Errorf("proxy scheme must be http://, https://, or socks5://")
}

// secretParams are query parameters whose values never reach the logs.
var secretParams = []string{"key", "apikey", "api_key", "token"}

// RedactURL masks secret query parameter values in raw.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for name := range q {
		for _, secret := range secretParams {
			if strings.EqualFold(name, secret) {
				q.Set(name, "REDACTED")
				changed = true
			}
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactError masks secret query parameters in the URL carried by a
// *url.Error, which net/http reports verbatim. Other errors are returned
// unchanged. The wrapped cause is kept so errors.Is still matches it.
func RedactError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	redacted := RedactURL(uerr.URL)
	if redacted == uerr.URL {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: redacted, Err: uerr.Err}
}
