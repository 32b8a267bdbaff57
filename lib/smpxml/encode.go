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

import (
	"time"

	"github.com/beevik/etree"
	"github.com/gravitational/trace"
)

// publishingNamespace is the busdox SMP publishing namespace emitted on
// encoded documents.
const publishingNamespace = "http://busdox.org/serviceMetadata/publishing/1.0/"

// Encode serializes the metadata back into a ServiceMetadata document.
// Used to build fixtures and to verify decode round-trips; production
// resolution never writes SMP documents.
func (m *ServiceMetadata) Encode() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("ServiceMetadata")
	root.CreateAttr("xmlns", publishingNamespace)

	if m.RedirectHref != "" {
		redirect := root.CreateElement("Redirect")
		redirect.CreateAttr("href", m.RedirectHref)
		data, err := doc.WriteToBytes()
		return data, trace.Wrap(err)
	}

	info := root.CreateElement("ServiceInformation")
	di := info.CreateElement("DocumentIdentifier")
	di.CreateAttr("scheme", m.DocumentID.Scheme)
	di.SetText(m.DocumentID.Value)

	processList := info.CreateElement("ProcessList")
	for _, p := range m.Processes {
		proc := processList.CreateElement("Process")
		pi := proc.CreateElement("ProcessIdentifier")
		pi.CreateAttr("scheme", p.ID.Scheme)
		pi.SetText(p.ID.Value)
		endpointList := proc.CreateElement("ServiceEndpointList")
		for _, ep := range p.Endpoints {
			encodeEndpoint(endpointList, ep)
		}
	}

	data, err := doc.WriteToBytes()
	return data, trace.Wrap(err)
}

func encodeEndpoint(parent *etree.Element, ep Endpoint) {
	el := parent.CreateElement("Endpoint")
	el.CreateAttr("transportProfile", ep.TransportProfile)
	el.CreateElement("EndpointURI").SetText(ep.URL)
	if ep.RequireBusinessLevelSignature {
		el.CreateElement("RequireBusinessLevelSignature").SetText("true")
	}
	if !ep.ServiceActivationDate.IsZero() {
		el.CreateElement("ServiceActivationDate").SetText(ep.ServiceActivationDate.Format(time.RFC3339))
	}
	if !ep.ServiceExpirationDate.IsZero() {
		el.CreateElement("ServiceExpirationDate").SetText(ep.ServiceExpirationDate.Format(time.RFC3339))
	}
	if ep.Certificate != "" {
		el.CreateElement("Certificate").SetText(ep.Certificate)
	}
	if ep.ServiceDescription != "" {
		el.CreateElement("ServiceDescription").SetText(ep.ServiceDescription)
	}
	if ep.TechnicalContactURL != "" {
		el.CreateElement("TechnicalContactUrl").SetText(ep.TechnicalContactURL)
	}
	if ep.TechnicalInformationURL != "" {
		el.CreateElement("TechnicalInformationUrl").SetText(ep.TechnicalInformationURL)
	}
}
