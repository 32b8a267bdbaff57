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

package smpxml

import "time"

// Identifier is a scheme-qualified identifier as it appears throughout
// the SMP document families: participant, document, process, and
// business entity identifiers all share this shape.
type Identifier struct {
	Scheme string
	Value  string
}

// String returns the scheme::value form used in SMP URLs.
func (id Identifier) String() string {
	return id.Scheme + "::" + id.Value
}

// ServiceGroup is a participant's catalog: its identifier and the
// ordered hrefs of the per-document-type metadata documents. An empty
// href list is legal and signals a parked registration.
type ServiceGroup struct {
	Participant       Identifier
	ServiceReferences []string
}

// Endpoint describes one transport endpoint advertised for a process.
type Endpoint struct {
	// TransportProfile names the wire protocol, e.g.
	// peppol-transport-as4-v2_0.
	TransportProfile string
	// URL is the endpoint address, from EndpointURI or the legacy
	// Address element.
	URL string
	// Certificate is the base64 access point certificate, when
	// published.
	Certificate string
	// ServiceDescription is free-text, when published.
	ServiceDescription string
	// TechnicalContactURL and TechnicalInformationURL point at the
	// operator's support surfaces, when published.
	TechnicalContactURL     string
	TechnicalInformationURL string
	// RequireBusinessLevelSignature is false when the element is
	// absent.
	RequireBusinessLevelSignature bool
	// ServiceActivationDate and ServiceExpirationDate bound the
	// endpoint's validity window. Zero when absent or unparsable.
	ServiceActivationDate time.Time
	ServiceExpirationDate time.Time
}

// Process is one business process and its endpoints.
type Process struct {
	ID        Identifier
	Endpoints []Endpoint
}

// ServiceMetadata is the per-document-type record. Either RedirectHref
// is set and the rest is empty, or DocumentID and Processes carry the
// record.
type ServiceMetadata struct {
	RedirectHref string
	DocumentID   Identifier
	Processes    []Process
}

// Contact is a business card contact entry.
type Contact struct {
	Type  string
	Name  string
	Phone string
	Email string
}

// BusinessEntity is the organizational identity published through the
// optional business card SMP extension.
type BusinessEntity struct {
	Name             string
	CountryCode      string
	Identifiers      []Identifier
	GeographicalInfo string
	Websites         []string
	Contacts         []Contact
}
