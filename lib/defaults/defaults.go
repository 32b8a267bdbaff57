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

// Package defaults contains default constants set in various parts of
// the resolver codebase.
package defaults

import "time"

// Version is the semantic version of this module, reported in the
// default User-Agent header.
const Version = "2.1.0"

// UserAgent is the default User-Agent header sent with every outbound
// HTTP request.
const UserAgent = "smp-resolver-ng/" + Version

const (
	// SMLDomain is the production SML zone operated by the European
	// Commission. All participant NAPTR records hang off this zone.
	SMLDomain = "edelivery.tech.ec.europa.eu"

	// DNSTimeout bounds a single NAPTR query.
	DNSTimeout = 5 * time.Second

	// HTTPTimeout bounds a single main SMP fetch, headers and body
	// combined.
	HTTPTimeout = 30 * time.Second

	// ProbeTimeout bounds a single business card probe request. Probes
	// hit many SMPs that never answer on the probed port, so this is
	// deliberately much shorter than HTTPTimeout.
	ProbeTimeout = 5 * time.Second
)

const (
	// HTTPMaxConnsPerHost caps concurrent connections per SMP origin.
	HTTPMaxConnsPerHost = 10

	// HTTPMaxIdleConns caps idle keep-alive connections across all
	// origins.
	HTTPMaxIdleConns = 100

	// HTTPIdleTimeout is how long an idle keep-alive connection is
	// retained in the pool.
	HTTPIdleTimeout = 90 * time.Second

	// MaxRedirects is the number of HTTP redirects followed per
	// request. The Peppol SMP profile permits exactly one.
	MaxRedirects = 1

	// MaxResponseBytes caps the size of an SMP response body.
	MaxResponseBytes = 10 * 1024 * 1024
)
