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

package resolver

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/peppolkit/smp-resolver-ng/lib/smpxml"
)

var (
	// ublRegexp matches UBL document type values such as
	// urn:...:ubl:schema:xsd:Invoice-2::Invoice##urn:... and captures
	// the document name.
	ublRegexp = regexp.MustCompile(`xsd:[A-Za-z0-9]+-\d+::([^#:]+)##`)
	// ciiRegexp matches CII document type values such as
	// urn:...:standard:CrossIndustryInvoice:100::... and captures the
	// standard name.
	ciiRegexp = regexp.MustCompile(`standard:([A-Za-z0-9]+):\d+::`)
)

// serviceReferenceMarker separates the participant segment from the
// document type segment in ServiceMetadataReference hrefs.
const serviceReferenceMarker = "/services/"

// parseServiceReferences extracts document identifiers from
// ServiceMetadataReference hrefs, preserving document order. Hrefs
// without a recognizable document segment are skipped.
func parseServiceReferences(hrefs []string) []smpxml.Identifier {
	var docIDs []smpxml.Identifier
	for _, href := range hrefs {
		idx := strings.LastIndex(href, serviceReferenceMarker)
		if idx < 0 {
			continue
		}
		segment := href[idx+len(serviceReferenceMarker):]
		if unescaped, err := url.QueryUnescape(segment); err == nil {
			segment = unescaped
		}
		scheme, value, found := strings.Cut(segment, "::")
		if !found || scheme == "" || value == "" {
			continue
		}
		docIDs = append(docIDs, smpxml.Identifier{Scheme: scheme, Value: value})
	}
	return docIDs
}

// documentTypeName renders a display name for a document type value.
// The configured code list wins; otherwise the UBL and CII naming
// patterns are tried, and failing those the substring after the last
// :: separator is used.
func (r *Resolver) documentTypeName(value string) string {
	if r.cfg.CodeList != nil {
		if name, ok := r.cfg.CodeList(value); ok {
			return name
		}
	}
	if m := ublRegexp.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	if m := ciiRegexp.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	if idx := strings.LastIndex(value, "::"); idx >= 0 {
		return value[idx+2:]
	}
	return value
}
