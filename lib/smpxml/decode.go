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

// Package smpxml decodes the three SMP XML document families:
// ServiceGroup, ServiceMetadata, and BusinessCard. SMPs in the wild
// emit these under arbitrary namespace prefixes, so all element and
// attribute matching here is by local name only.
package smpxml

import (
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/gravitational/trace"
)

// ParseServiceGroup decodes a ServiceGroup document: the participant
// identifier (mandatory) and the ordered ServiceMetadataReference
// hrefs (possibly none).
func ParseServiceGroup(data []byte) (*ServiceGroup, error) {
	root, err := parseRoot(data, "ServiceGroup")
	if err != nil {
		return nil, trace.Wrap(err)
	}

	pi := findFirst(root, "ParticipantIdentifier")
	if pi == nil {
		return nil, trace.BadParameter("ServiceGroup document is missing a ParticipantIdentifier")
	}
	participant := Identifier{Scheme: attrValue(pi, "scheme"), Value: text(pi)}
	if participant.Scheme == "" || participant.Value == "" {
		return nil, trace.BadParameter("ServiceGroup document carries an incomplete ParticipantIdentifier")
	}

	group := &ServiceGroup{Participant: participant}
	for _, ref := range findAll(root, "ServiceMetadataReference") {
		if href := attrValue(ref, "href"); href != "" {
			group.ServiceReferences = append(group.ServiceReferences, href)
		}
	}
	return group, nil
}

// ParseServiceMetadata decodes a ServiceMetadata or
// SignedServiceMetadata document. A top-level Redirect supersedes the
// record: only its href is returned. Endpoints missing a transport
// profile or an address are skipped, as are processes with an
// incomplete identifier.
func ParseServiceMetadata(data []byte) (*ServiceMetadata, error) {
	root, err := parseRoot(data, "ServiceMetadata", "SignedServiceMetadata")
	if err != nil {
		return nil, trace.Wrap(err)
	}

	if redirect := findFirst(root, "Redirect"); redirect != nil {
		if href := attrValue(redirect, "href"); href != "" {
			return &ServiceMetadata{RedirectHref: href}, nil
		}
	}

	info := findFirst(root, "ServiceInformation")
	if info == nil {
		return nil, trace.BadParameter("ServiceMetadata document carries neither ServiceInformation nor Redirect")
	}
	di := findFirst(info, "DocumentIdentifier")
	if di == nil {
		return nil, trace.BadParameter("ServiceMetadata document is missing a DocumentIdentifier")
	}
	docID := Identifier{Scheme: attrValue(di, "scheme"), Value: text(di)}
	if docID.Scheme == "" || docID.Value == "" {
		return nil, trace.BadParameter("ServiceMetadata document carries an incomplete DocumentIdentifier")
	}

	meta := &ServiceMetadata{DocumentID: docID}
	for _, proc := range findAll(info, "Process") {
		pi := findFirst(proc, "ProcessIdentifier")
		if pi == nil {
			continue
		}
		procID := Identifier{Scheme: attrValue(pi, "scheme"), Value: text(pi)}
		if procID.Scheme == "" || procID.Value == "" {
			continue
		}
		p := Process{ID: procID}
		for _, ep := range findAll(proc, "Endpoint") {
			endpoint, ok := parseEndpoint(ep)
			if !ok {
				continue
			}
			p.Endpoints = append(p.Endpoints, endpoint)
		}
		meta.Processes = append(meta.Processes, p)
	}
	return meta, nil
}

// ParseBusinessCard decodes a BusinessCard document into its first
// BusinessEntity. A document without a BusinessCard or BusinessEntity
// element yields (nil, nil): absence is not an error.
func ParseBusinessCard(data []byte) (*BusinessEntity, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, trace.BadParameter("malformed BusinessCard XML: %v", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, trace.BadParameter("BusinessCard document has no root element")
	}
	card := root
	if card.Tag != "BusinessCard" {
		if card = findFirst(root, "BusinessCard"); card == nil {
			return nil, nil
		}
	}
	be := findFirst(card, "BusinessEntity")
	if be == nil {
		return nil, nil
	}

	// Contacts carry their own Name children, so the entity fields are
	// read from direct children only.
	entity := &BusinessEntity{}
	for _, child := range be.ChildElements() {
		switch child.Tag {
		case "Name":
			if entity.Name == "" {
				entity.Name = text(child)
			}
		case "CountryCode":
			entity.CountryCode = text(child)
		case "Identifier":
			entity.Identifiers = append(entity.Identifiers, Identifier{
				Scheme: attrValue(child, "scheme"),
				Value:  text(child),
			})
		case "GeographicalInformation":
			entity.GeographicalInfo = text(child)
		case "WebsiteURI":
			if uri := text(child); uri != "" {
				entity.Websites = append(entity.Websites, uri)
			}
		case "Contact":
			entity.Contacts = append(entity.Contacts, Contact{
				Type:  childText(child, "TypeCode"),
				Name:  childText(child, "Name"),
				Phone: childText(child, "PhoneNumber"),
				Email: childText(child, "Email"),
			})
		}
	}
	return entity, nil
}

func parseEndpoint(ep *etree.Element) (Endpoint, bool) {
	endpoint := Endpoint{
		TransportProfile: attrValue(ep, "transportProfile"),
		URL:              childText(ep, "EndpointURI"),
	}
	if endpoint.URL == "" {
		// Legacy SMPs publish the address under Address instead.
		endpoint.URL = childText(ep, "Address")
	}
	if endpoint.TransportProfile == "" || endpoint.URL == "" {
		return Endpoint{}, false
	}
	endpoint.Certificate = childText(ep, "Certificate")
	endpoint.ServiceDescription = childText(ep, "ServiceDescription")
	endpoint.TechnicalContactURL = childText(ep, "TechnicalContactUrl")
	endpoint.TechnicalInformationURL = childText(ep, "TechnicalInformationUrl")
	endpoint.RequireBusinessLevelSignature = parseBool(childText(ep, "RequireBusinessLevelSignature"))
	endpoint.ServiceActivationDate = parseTime(childText(ep, "ServiceActivationDate"))
	endpoint.ServiceExpirationDate = parseTime(childText(ep, "ServiceExpirationDate"))
	return endpoint, true
}

// parseRoot decodes the document and locates the first element whose
// local name matches one of the accepted root names, at any depth.
func parseRoot(data []byte, names ...string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, trace.BadParameter("malformed %v XML: %v", names[0], err)
	}
	root := doc.Root()
	if root == nil {
		return nil, trace.BadParameter("%v document has no root element", names[0])
	}
	for _, name := range names {
		if root.Tag == name {
			return root, nil
		}
		if el := findFirst(root, name); el != nil {
			return el, nil
		}
	}
	return nil, trace.BadParameter("document root is not a %v element", strings.Join(names, " or "))
}

// findFirst returns the first descendant with the given local name, in
// document order.
func findFirst(e *etree.Element, local string) *etree.Element {
	for _, child := range e.ChildElements() {
		if child.Tag == local {
			return child
		}
		if found := findFirst(child, local); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns all descendants with the given local name, in
// document order.
func findAll(e *etree.Element, local string) []*etree.Element {
	var found []*etree.Element
	for _, child := range e.ChildElements() {
		if child.Tag == local {
			found = append(found, child)
		}
		found = append(found, findAll(child, local)...)
	}
	return found
}

// childText returns the trimmed text of the first direct child with the
// given local name.
func childText(e *etree.Element, local string) string {
	for _, child := range e.ChildElements() {
		if child.Tag == local {
			return text(child)
		}
	}
	return ""
}

func text(e *etree.Element) string {
	return strings.TrimSpace(e.Text())
}

// attrValue matches attributes by local name, ignoring any prefix.
func attrValue(e *etree.Element, local string) string {
	for _, attr := range e.Attr {
		if attr.Key == local {
			return attr.Value
		}
	}
	return ""
}

func parseBool(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}

// iso8601Formats lists the timestamp shapes seen on SMP validity
// dates, most specific first.
var iso8601Formats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime decodes a validity date best effort: anything unparsable
// yields the zero time rather than an error.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range iso8601Formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
