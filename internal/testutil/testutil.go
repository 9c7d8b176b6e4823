// Package testutil provides shared test helpers for unit tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/tbckr/domainlens/internal/services"
)

// MockResolver implements services.DNSResolverInterface for testing.
// Each field is a function so tests can set only the methods they need.
type MockResolver struct {
	LookupIPAddrFn func(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupMXFn     func(ctx context.Context, name string) ([]*net.MX, error)

	mxCalls atomic.Int32
}

var _ services.DNSResolverInterface = (*MockResolver)(nil)

// LookupIPAddr implements DNSResolverInterface.
func (m *MockResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	if m.LookupIPAddrFn != nil {
		return m.LookupIPAddrFn(ctx, host)
	}
	return nil, nil
}

// LookupMX implements DNSResolverInterface.
func (m *MockResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	m.mxCalls.Add(1)
	if m.LookupMXFn != nil {
		return m.LookupMXFn(ctx, name)
	}
	return nil, nil
}

// MXCalls returns how many times LookupMX was called.
func (m *MockResolver) MXCalls() int { return int(m.mxCalls.Load()) }

// NotFound returns the error net.Resolver reports for a name without records.
func NotFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
