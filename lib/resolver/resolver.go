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

// Package resolver stages the Peppol resolution pipeline: SML DNS
// discovery, ServiceGroup and ServiceMetadata retrieval, endpoint
// selection, and the optional certificate parse and business card
// probe.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/peppolkit/smp-resolver-ng/lib/certinfo"
	"github.com/peppolkit/smp-resolver-ng/lib/defaults"
	"github.com/peppolkit/smp-resolver-ng/lib/fetch"
	"github.com/peppolkit/smp-resolver-ng/lib/identifier"
	"github.com/peppolkit/smp-resolver-ng/lib/sml"
	"github.com/peppolkit/smp-resolver-ng/lib/smpxml"
)

// SMPLocator resolves a participant hash to an SMP base URL. An empty
// URL with a nil error means the participant is not registered.
type SMPLocator interface {
	LookupSMP(ctx context.Context, hash string) (string, error)
}

// Config configures a Resolver. The configuration is immutable after
// New returns.
type Config struct {
	// SMLDomain is the SML root zone queried for NAPTR records.
	SMLDomain string
	// DNSServers overrides the system recursive resolvers.
	DNSServers []string
	// HTTPTimeout bounds each main SMP request.
	HTTPTimeout time.Duration
	// ProbeTimeout bounds each business card probe request.
	ProbeTimeout time.Duration
	// CacheTTL is accepted for configuration compatibility. The
	// in-memory caches documented on Resolver ignore it.
	CacheTTL time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// CodeList translates a full document type value to a friendly
	// name. Consulted before the built-in UBL and CII patterns.
	CodeList func(documentType string) (string, bool)
	// SML overrides DNS-based SMP discovery.
	SML SMPLocator
	// Clock overrides wall clock, used for certificate expiry.
	Clock clockwork.Clock
	// Log emits per-stage debug records.
	Log *slog.Logger
}

// CheckAndSetDefaults checks and sets defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.SMLDomain == "" {
		c.SMLDomain = defaults.SMLDomain
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaults.HTTPTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaults.ProbeTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	if c.SML == nil {
		client, err := sml.NewClient(sml.ClientConfig{
			Domain:  c.SMLDomain,
			Servers: c.DNSServers,
			Log:     c.Log,
		})
		if err != nil {
			return trace.Wrap(err)
		}
		c.SML = client
	}
	return nil
}

// Resolver drives the resolution pipeline. It is safe for concurrent
// use: collaborators are injected at construction and never mutated,
// and the shared HTTP pool and certificate cache synchronize
// internally. Close releases pooled connections and the cache.
type Resolver struct {
	cfg     Config
	sml     SMPLocator
	fetcher *fetch.Client
	certs   *certinfo.Cache
	log     *slog.Logger
}

// New returns a Resolver from the given configuration.
func New(cfg Config) (*Resolver, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	fetcher, err := fetch.New(fetch.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &Resolver{
		cfg:     cfg,
		sml:     cfg.SML,
		fetcher: fetcher,
		certs:   certinfo.NewCache(cfg.Clock),
		log:     cfg.Log,
	}, nil
}

// Close drains the HTTP connection pool and clears the certificate
// cache. The resolver must not be used afterwards.
func (r *Resolver) Close() error {
	err := r.fetcher.Close()
	r.certs.Clear()
	return trace.Wrap(err)
}

// Resolve runs the full pipeline for one participant identifier. The
// returned result is always well formed; resolution failures are
// reported through Status and Error rather than returned as errors.
func (r *Resolver) Resolve(ctx context.Context, participant string, opts Options) *Result {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	result := &Result{
		Participant: participant,
		Status:      StatusUnregistered,
	}

	id, err := identifier.Parse(participant)
	if err != nil {
		result.Error = "Invalid participant ID format"
		return result
	}

	smpBase, err := r.sml.LookupSMP(ctx, id.Hash())
	if err != nil {
		result.Error = fmt.Sprintf("DNS lookup failed: %v", err)
		return result
	}
	if smpBase == "" {
		result.Error = "No SMP found via DNS lookup"
		return result
	}
	base, err := url.Parse(smpBase)
	if err != nil {
		result.Error = fmt.Sprintf("invalid SMP base URL %q", smpBase)
		return result
	}
	result.SMPHostname = base.Hostname()
	r.log.DebugContext(ctx, "discovered SMP", "participant", participant, "smp", smpBase)

	group, failure := r.fetchServiceGroup(ctx, smpBase, id)
	if failure != "" {
		result.Error = failure
		return result
	}

	// The SMP answered: the participant is at least parked from here
	// on, whatever the auxiliary fetches do.
	result.IsRegistered = true
	result.Status = StatusParked

	docIDs := parseServiceReferences(group.ServiceReferences)
	if opts.FetchDocumentTypes {
		for _, docID := range docIDs {
			result.DocumentTypes = append(result.DocumentTypes, r.documentTypeName(docID.Value))
		}
	}

	var endpoint *smpxml.Endpoint
	if len(docIDs) > 0 {
		endpoint = r.fetchFirstEndpoint(ctx, smpBase, id, docIDs[0], result)
	}
	if endpoint != nil {
		result.Status = StatusActive
		result.HasActiveEndpoints = true
		if opts.FetchDocumentTypes {
			result.Endpoint = endpoint
		}
		if opts.ParseCertificate && endpoint.Certificate != "" {
			info, err := r.certs.Parse(endpoint.Certificate)
			if err != nil {
				r.log.DebugContext(ctx, "endpoint certificate failed to parse",
					"participant", participant, "error", err)
			} else {
				result.Certificate = info
			}
		}
	}

	if opts.IncludeBusinessCard {
		result.BusinessEntity = r.probeBusinessCard(ctx, base.Host, id)
	}
	return result
}

// fetchServiceGroup retrieves and decodes the participant's catalog. A
// 404 classifies as parked and yields a synthetic empty group; any
// other failure is terminal and returned as the failure message.
func (r *Resolver) fetchServiceGroup(ctx context.Context, smpBase string, id identifier.ID) (*smpxml.ServiceGroup, string) {
	groupURL := smpBase + "/" + id.URN()
	resp, err := r.fetcher.Get(ctx, groupURL)
	if err != nil {
		return nil, fmt.Sprintf("fetching service group: %v", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &smpxml.ServiceGroup{}, ""
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Sprintf("SMP returned status %d for service group", resp.StatusCode)
	}
	group, err := smpxml.ParseServiceGroup(resp.Body)
	if err != nil {
		return nil, fmt.Sprintf("parsing service group: %v", err)
	}
	return group, ""
}

// fetchFirstEndpoint retrieves the metadata for the first referenced
// document type and selects the first endpoint of its first process.
// Every failure here is non-fatal: the status stays parked and a
// diagnostic entry records what happened.
func (r *Resolver) fetchFirstEndpoint(ctx context.Context, smpBase string, id identifier.ID, docID smpxml.Identifier, result *Result) *smpxml.Endpoint {
	metaURL := smpBase + "/" + id.URN() + "/services/" + url.QueryEscape(docID.String())

	resp, err := r.fetcher.Get(ctx, metaURL)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			URL: metaURL, StatusCode: 0, Message: err.Error(),
		})
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			URL:        metaURL,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("service metadata fetch returned status %d", resp.StatusCode),
		})
		return nil
	}

	meta, err := smpxml.ParseServiceMetadata(resp.Body)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			URL: metaURL, StatusCode: resp.StatusCode, Message: err.Error(),
		})
		return nil
	}
	if meta.RedirectHref != "" {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			URL:        metaURL,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("service metadata redirects to %v", meta.RedirectHref),
		})
		return nil
	}
	if len(meta.Processes) == 0 || len(meta.Processes[0].Endpoints) == 0 {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			URL:        metaURL,
			StatusCode: resp.StatusCode,
			Message:    "service metadata advertises no endpoints",
		})
		return nil
	}
	endpoint := meta.Processes[0].Endpoints[0]
	return &endpoint
}
