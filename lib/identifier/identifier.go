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

// Package identifier canonicalizes Peppol participant identifiers and
// computes the SML DNS hash label derived from them.
package identifier

import (
	"crypto/sha256"
	"encoding/base32"
	"regexp"
	"strings"

	"github.com/gravitational/trace"
)

// Category is the Peppol identifier category prefixed to participant
// identifiers in SMP URLs and SML query names.
const Category = "iso6523-actorid-upis"

var (
	schemeRegexp = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	valueRegexp  = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)
)

// ID is a Peppol participant identifier: an ICD scheme code paired with
// an issuer-local value, e.g. 0208:0843766574.
type ID struct {
	// Scheme is the ICD scheme code, e.g. "0208" or "9925".
	Scheme string
	// Value is the issuer-local identifier.
	Value string
}

// Parse splits a "scheme:value" string on the first colon and validates
// both sides. Values containing further colons are preserved verbatim,
// although such values fail validation.
func Parse(s string) (ID, error) {
	scheme, value, found := strings.Cut(s, ":")
	if !found || scheme == "" || value == "" {
		return ID{}, trace.BadParameter("participant identifier %q is not in scheme:value form", s)
	}
	id := ID{Scheme: scheme, Value: value}
	if err := id.Check(); err != nil {
		return ID{}, trace.Wrap(err)
	}
	return id, nil
}

// Check validates the identifier: the scheme must be alphanumeric and
// the value must be a legal DNS label (letters, digits, internal
// hyphens).
func (id ID) Check() error {
	if !schemeRegexp.MatchString(id.Scheme) {
		return trace.BadParameter("participant scheme %q is not alphanumeric", id.Scheme)
	}
	if !valueRegexp.MatchString(id.Value) {
		return trace.BadParameter("participant value %q is not a valid DNS label", id.Value)
	}
	return nil
}

// String returns the scheme:value form.
func (id ID) String() string {
	return id.Scheme + ":" + id.Value
}

// URN returns the full Peppol identifier form used when constructing
// SMP URLs: iso6523-actorid-upis::scheme:value.
func (id ID) URN() string {
	return Category + "::" + id.String()
}

// Hash computes the SML DNS label for the identifier: the SHA-256 of
// the UTF-8 bytes of "scheme:value", base32 encoded with the RFC 4648
// alphabet, lowercased, with trailing padding stripped. The result is
// always 52 characters.
//
// Hashing is case sensitive on both sides: callers must supply the
// Peppol-canonical form (lowercase country prefixes for 9925 VAT
// identifiers, for example). No case folding happens here.
func (id ID) Hash() string {
	digest := sha256.Sum256([]byte(id.String()))
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(digest[:])
	return strings.ToLower(encoded)
}
