// Package geo maps MX exchanges to countries using a MaxMind GeoIP2 or
// GeoLite2 country database.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/tbckr/domainlens/internal/services"
)

// ErrNoAddress is returned when a host has no addresses to locate.
var ErrNoAddress = errors.New("host has no addresses")

// CountryReader is the part of *geoip2.Reader used by Locator.
type CountryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
}

// Locator resolves a host and looks up the country of its first address.
type Locator struct {
	db       CountryReader
	resolver services.IPLookuper
	closer   func() error
}

// Open opens the database at path.
func Open(path string, resolver services.IPLookuper) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening GeoIP database %q: %w", path, err)
	}
	l := NewLocator(db, resolver)
	l.closer = db.Close
	return l, nil
}

// NewLocator wraps an already opened database.
func NewLocator(db CountryReader, resolver services.IPLookuper) *Locator {
	return &Locator{db: db, resolver: resolver}
}

// Country returns the ISO 3166-1 alpha-2 code for host.
func (l *Locator) Country(ctx context.Context, host string) (string, error) {
	addrs, err := l.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", ErrNoAddress
	}
	rec, err := l.db.Country(addrs[0].IP)
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", addrs[0].IP, err)
	}
	return rec.Country.IsoCode, nil
}

// Close releases the database when it was opened by Open.
func (l *Locator) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}
