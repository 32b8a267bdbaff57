/*
Copyright 2026 PeppolKit Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package certinfo decodes Peppol access point certificates and
// memoizes the parse results by fingerprint, since bulk resolution
// sees the same handful of certificates over and over.
package certinfo

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
)

var (
	// popSeatRegexp matches explicit POP-prefixed seat identifiers at
	// the start of a CN.
	popSeatRegexp = regexp.MustCompile(`^POP\d{3,}`)
	// plainSeatRegexp matches bare alphanumeric seat identifiers
	// filling the whole CN.
	plainSeatRegexp = regexp.MustCompile(`(?i)^[A-Z0-9]{4,20}$`)
)

// Info is the operationally useful subset of an access point
// certificate. Values are immutable once returned.
type Info struct {
	// Fingerprint is the uppercase hex SHA-256 of the DER encoding.
	Fingerprint string
	// Subject and Issuer are the displayable distinguished names.
	Subject string
	Issuer  string
	// SerialNumber is the decimal serial.
	SerialNumber string
	// NotBefore and NotAfter bound the validity window.
	NotBefore time.Time
	NotAfter  time.Time
	// IsExpired is derived against the clock at parse time.
	IsExpired bool
	// SeatID is the Peppol access point identifier from the CN, when
	// the CN matches the known seat patterns.
	SeatID string
	// Base64 is the original input string.
	Base64 string
}

// Cache parses certificates and memoizes the results keyed by DER
// fingerprint. The cache is unbounded within process lifetime and safe
// for concurrent use.
type Cache struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	entries map[string]*Info
}

// NewCache returns an empty certificate cache. A nil clock means wall
// clock.
func NewCache(clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		clock:   clock,
		entries: make(map[string]*Info),
	}
}

// Parse decodes a base64 or PEM-wrapped certificate. Repeated calls
// with the same certificate return the cached Info.
func (c *Cache) Parse(encoded string) (*Info, error) {
	der, err := decodeDER(encoded)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	digest := sha256.Sum256(der)
	fingerprint := strings.ToUpper(hex.EncodeToString(digest[:]))

	c.mu.RLock()
	cached, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, trace.BadParameter("parsing certificate: %v", err)
	}
	info := &Info{
		Fingerprint:  fingerprint,
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		SerialNumber: cert.SerialNumber.String(),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		IsExpired:    c.clock.Now().After(cert.NotAfter),
		SeatID:       seatID(cert.Subject.CommonName),
		Base64:       encoded,
	}

	c.mu.Lock()
	// Another goroutine may have parsed the same certificate in the
	// meantime; keep the first entry so callers always see one value.
	if existing, ok := c.entries[fingerprint]; ok {
		info = existing
	} else {
		c.entries[fingerprint] = info
	}
	c.mu.Unlock()
	return info, nil
}

// Fingerprint computes the cache key for a certificate without parsing
// it.
func Fingerprint(encoded string) (string, error) {
	der, err := decodeDER(encoded)
	if err != nil {
		return "", trace.Wrap(err)
	}
	digest := sha256.Sum256(der)
	return strings.ToUpper(hex.EncodeToString(digest[:])), nil
}

// Len returns the number of memoized certificates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all memoized certificates. Invoked at resolver shutdown.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Info)
}

// decodeDER strips PEM armor lines and all whitespace, then base64
// decodes the remainder.
func decodeDER(encoded string) ([]byte, error) {
	var b strings.Builder
	for _, line := range strings.Split(encoded, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "-----") {
			continue
		}
		b.WriteString(line)
	}
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, b.String())
	if compact == "" {
		return nil, trace.BadParameter("certificate payload is empty")
	}
	der, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, trace.BadParameter("certificate payload is not valid base64: %v", err)
	}
	return der, nil
}

// seatID derives the access point seat identifier from a certificate
// CN. POP-prefixed identifiers win; otherwise a bare 4-20 character
// alphanumeric CN is accepted. Both forms are reported uppercased.
func seatID(cn string) string {
	if cn == "" {
		return ""
	}
	if popSeatRegexp.MatchString(cn) || plainSeatRegexp.MatchString(cn) {
		return strings.ToUpper(cn)
	}
	return ""
}
