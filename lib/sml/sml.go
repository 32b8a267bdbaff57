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

// Package sml discovers the SMP authoritative for a Peppol participant
// by querying NAPTR records in the SML DNS zone.
package sml

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gravitational/trace"
	"github.com/miekg/dns"

	"github.com/peppolkit/smp-resolver-ng/lib/defaults"
	"github.com/peppolkit/smp-resolver-ng/lib/identifier"
)

// metaSMPService is the NAPTR service tag that marks a record as
// carrying an SMP URL. Matching is case insensitive.
const metaSMPService = "Meta:SMP"

// resolvConfPath is where system recursive resolvers are read from
// when no servers are configured explicitly.
const resolvConfPath = "/etc/resolv.conf"

// exchangeFunc sends a single DNS message to the given server address
// and returns the response. Overridden in tests.
type exchangeFunc func(ctx context.Context, m *dns.Msg, server string) (*dns.Msg, error)

// ClientConfig configures the SML lookup client.
type ClientConfig struct {
	// Domain is the SML root zone. Defaults to the production
	// edelivery zone.
	Domain string
	// Servers is an ordered list of recursive resolvers as host or
	// host:port. When empty the system resolvers from /etc/resolv.conf
	// are used.
	Servers []string
	// Timeout bounds a single NAPTR query.
	Timeout time.Duration
	// Log emits per-lookup debug records.
	Log *slog.Logger
}

// CheckAndSetDefaults checks and sets defaults.
func (c *ClientConfig) CheckAndSetDefaults() error {
	if c.Domain == "" {
		c.Domain = defaults.SMLDomain
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.DNSTimeout
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return nil
}

// Client resolves participant hashes to SMP base URLs via NAPTR
// queries. Client is safe for concurrent use.
type Client struct {
	cfg      ClientConfig
	exchange exchangeFunc

	// serversOnce lazily resolves the server list so that reading
	// resolv.conf failures surface as lookup errors, not construction
	// errors.
	serversOnce sync.Once
	servers     []string
	serversErr  error
}

// NewClient returns an SML lookup client from the given configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	dnsClient := &dns.Client{Timeout: cfg.Timeout}
	c := &Client{cfg: cfg}
	c.exchange = func(ctx context.Context, m *dns.Msg, server string) (*dns.Msg, error) {
		r, _, err := dnsClient.ExchangeContext(ctx, m, server)
		return r, err
	}
	return c, nil
}

// LookupSMP resolves a participant hash to a validated SMP base URL.
// An empty URL with a nil error means the participant is not registered
// in the SML (NXDOMAIN, no Meta:SMP record, or no record carrying a
// valid URL). A non-nil error means the lookup itself failed and
// nothing can be concluded about registration.
func (c *Client) LookupSMP(ctx context.Context, hash string) (string, error) {
	servers, err := c.resolverAddrs()
	if err != nil {
		return "", trace.Wrap(err)
	}

	name := dns.Fqdn(hash + "." + identifier.Category + "." + c.cfg.Domain)
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeNAPTR)
	m.RecursionDesired = true

	r, err := c.exchangeAny(ctx, m, servers)
	if err != nil {
		return "", trace.Wrap(err, "NAPTR query for %v failed", name)
	}

	switch r.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		// Authoritative absence: the participant is not registered.
		c.cfg.Log.DebugContext(ctx, "SML query returned NXDOMAIN", "name", name)
		return "", nil
	default:
		return "", trace.Errorf("NAPTR query for %v returned rcode %v", name, dns.RcodeToString[r.Rcode])
	}

	records := filterMetaSMP(r.Answer)
	if len(records) == 0 {
		c.cfg.Log.DebugContext(ctx, "SML answer carried no Meta:SMP records", "name", name, "answers", len(r.Answer))
		return "", nil
	}

	// Order ascending, then preference ascending; document order
	// breaks remaining ties.
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Order != records[j].Order {
			return records[i].Order < records[j].Order
		}
		return records[i].Preference < records[j].Preference
	})

	for _, rec := range records {
		if u := ExtractSMPURL(rec.Regexp); u != "" {
			c.cfg.Log.DebugContext(ctx, "resolved SMP base URL", "name", name, "url", u)
			return u, nil
		}
	}
	return "", nil
}

// exchangeAny tries the configured servers in order and returns the
// first response. Transport errors on one server fall through to the
// next; if every server fails the last error is returned.
func (c *Client) exchangeAny(ctx context.Context, m *dns.Msg, servers []string) (*dns.Msg, error) {
	var lastErr error
	for _, server := range servers {
		r, err := c.exchange(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		return r, nil
	}
	return nil, trace.Wrap(lastErr)
}

func (c *Client) resolverAddrs() ([]string, error) {
	c.serversOnce.Do(func() {
		configured := c.cfg.Servers
		if len(configured) == 0 {
			conf, err := dns.ClientConfigFromFile(resolvConfPath)
			if err != nil {
				c.serversErr = trace.Wrap(err, "reading system resolvers from %v", resolvConfPath)
				return
			}
			configured = conf.Servers
		}
		for _, s := range configured {
			c.servers = append(c.servers, withDefaultPort(s))
		}
		if len(c.servers) == 0 {
			c.serversErr = trace.NotFound("no DNS servers configured")
		}
	})
	return c.servers, c.serversErr
}

// withDefaultPort appends :53 to a server address that has no port.
func withDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}

// filterMetaSMP keeps NAPTR answers whose service tag is Meta:SMP,
// compared case insensitively. Non-NAPTR answers (CNAMEs and the like)
// are dropped.
func filterMetaSMP(answers []dns.RR) []*dns.NAPTR {
	var records []*dns.NAPTR
	for _, rr := range answers {
		naptr, ok := rr.(*dns.NAPTR)
		if !ok {
			continue
		}
		if !strings.EqualFold(naptr.Service, metaSMPService) {
			continue
		}
		records = append(records, naptr)
	}
	return records
}

// ExtractSMPURL pulls the SMP base URL out of a NAPTR regexp payload of
// the delimiter-bounded form !PATTERN!REPLACEMENT!. For Peppol the
// pattern is ^.*$ and is never evaluated; the replacement is the URL
// itself. The URL must be absolute http or https with no userinfo,
// query, or fragment; one trailing slash is stripped. Anything else
// yields the empty string.
func ExtractSMPURL(payload string) string {
	parts := strings.Split(payload, "!")
	if len(parts) != 4 || parts[0] != "" || parts[3] != "" {
		return ""
	}
	raw := parts[2]
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return ""
	}
	return strings.TrimSuffix(raw, "/")
}
