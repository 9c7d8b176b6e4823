// Package services holds the contracts shared by the lookup sources of an
// analysis. Concrete sources live in the sub-packages.
package services

import (
	"context"
	"net"
)

// MXLookuper resolves MX records. *net.Resolver, dnsclient.Client and
// doh.Client satisfy it.
//
// Implementations report a domain without MX records (NXDOMAIN or an empty
// answer) as a *net.DNSError with IsNotFound set.
type MXLookuper interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// IPLookuper resolves host addresses. *net.Resolver satisfies it.
type IPLookuper interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// DNSResolverInterface is the subset of *net.Resolver used by the
// application.
type DNSResolverInterface interface {
	MXLookuper
	IPLookuper
}

var _ DNSResolverInterface = (*net.Resolver)(nil)
