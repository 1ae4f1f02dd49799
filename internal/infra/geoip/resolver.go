// Package geoip maps client addresses to ISO country codes so the storefront
// can guess a shopper's language when the browser does not say.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned by lookups on a reader without a database.
var ErrUnavailable = errors.New("geoip: database unavailable")

// Reader looks up countries in a MaxMind GeoLite2/GeoIP2 country database.
type Reader struct {
	db *geoip2.Reader
}

// Open loads the database at path. An empty path yields a nil reader, which
// answers every lookup with ErrUnavailable.
func Open(path string) (*Reader, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

// Country returns the upper-case ISO 3166 code for ip. Private, loopback and
// unspecified addresses resolve to "" without consulting the database.
func (r *Reader) Country(ip string) (string, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	if parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsUnspecified() {
		return "", nil
	}
	if r == nil || r.db == nil {
		return "", ErrUnavailable
	}
	record, err := r.db.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup %s: %w", ip, err)
	}
	return strings.ToUpper(record.Country.IsoCode), nil
}

func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
