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
	"time"

	"github.com/peppolkit/smp-resolver-ng/lib/certinfo"
	"github.com/peppolkit/smp-resolver-ng/lib/smpxml"
)

// RegistrationStatus classifies a participant's standing in the Peppol
// network.
type RegistrationStatus string

const (
	// StatusUnregistered means the participant is absent from the SML,
	// or resolution failed before the SMP answered.
	StatusUnregistered RegistrationStatus = "unregistered"
	// StatusParked means the participant exists in DNS and the SMP
	// responded, but no functional endpoint is advertised.
	StatusParked RegistrationStatus = "parked"
	// StatusActive means an endpoint was discovered for at least one
	// document type.
	StatusActive RegistrationStatus = "active"
)

// Diagnostic records a non-fatal failure encountered during an
// auxiliary fetch. A zero StatusCode marks a transport-level failure
// rather than an HTTP response.
type Diagnostic struct {
	URL        string
	StatusCode int
	Message    string
}

// Options selects the optional work performed for one resolution.
type Options struct {
	// FetchDocumentTypes includes the friendly document type names and
	// the selected endpoint descriptor in the result.
	FetchDocumentTypes bool
	// IncludeBusinessCard probes the SMP for a business card.
	IncludeBusinessCard bool
	// ParseCertificate decodes the selected endpoint's certificate.
	ParseCertificate bool
	// Timeout bounds this resolution's total wall time. Zero means no
	// per-resolution bound beyond the per-request timeouts.
	Timeout time.Duration
}

// Result is the outcome of one resolution. It is always well formed:
// invalid input and unreachable SMPs are reported through Status and
// Error, never as a panic or a nil result.
type Result struct {
	// Participant is the input identifier as given.
	Participant string
	// IsRegistered is true iff Status is not unregistered.
	IsRegistered bool
	// Status is the tri-state registration classification.
	Status RegistrationStatus
	// HasActiveEndpoints is true iff Status is active.
	HasActiveEndpoints bool
	// SMPHostname is the host component of the discovered SMP base
	// URL, never rewritten.
	SMPHostname string
	// DocumentTypes holds friendly names for the document types the
	// participant supports, when requested.
	DocumentTypes []string
	// Endpoint is the selected endpoint descriptor, when requested and
	// discovered.
	Endpoint *smpxml.Endpoint
	// Certificate describes the endpoint certificate, when requested
	// and parseable.
	Certificate *certinfo.Info
	// BusinessEntity is the probed business card identity, when
	// requested and published.
	BusinessEntity *smpxml.BusinessEntity
	// Diagnostics records non-fatal auxiliary fetch failures.
	Diagnostics []Diagnostic
	// Error carries a short description when resolution failed.
	Error string
}
