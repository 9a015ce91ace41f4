// Package geoip resolves client addresses to ISO country codes for
// region-scoped watch-provider lookups.
package geoip

import (
	"log"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Resolver wraps a MaxMind database. A Resolver without a database is valid
// and simply never resolves; callers fall back to their own default region.
type Resolver struct {
	db *maxminddb.Reader
}

type mmdbRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open loads the database at path. An empty path or an unreadable file yields
// a disabled resolver rather than an error so the service runs without GeoIP.
func Open(path string) *Resolver {
	if path == "" {
		return &Resolver{}
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		log.Printf("geoip: failed to open %s: %v", path, err)
		return &Resolver{}
	}
	return &Resolver{db: db}
}

func (r *Resolver) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Enabled reports whether a database is loaded.
func (r *Resolver) Enabled() bool {
	return r.db != nil
}

// Country returns the ISO 3166-1 code for ip. Private, loopback, and
// unresolvable addresses report false.
func (r *Resolver) Country(ip net.IP) (string, bool) {
	if ip == nil || r.db == nil || ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() {
		return "", false
	}
	var record mmdbRecord
	if err := r.db.Lookup(ip, &record); err != nil || record.Country.ISOCode == "" {
		return "", false
	}
	return record.Country.ISOCode, true
}
