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

package sml

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func naptrRecord(order, pref uint16, service, regexp string) *dns.NAPTR {
	return &dns.NAPTR{
		Hdr: dns.RR_Header{
			Name:   "test.",
			Rrtype: dns.TypeNAPTR,
			Class:  dns.ClassINET,
		},
		Order:       order,
		Preference:  pref,
		Flags:       "U",
		Service:     service,
		Regexp:      regexp,
		Replacement: ".",
	}
}

// newFakeClient returns a client whose exchange function replies with
// the given rcode and answer section.
func newFakeClient(t *testing.T, rcode int, answer []dns.RR) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{Servers: []string{"127.0.0.1"}})
	require.NoError(t, err)
	c.exchange = func(ctx context.Context, m *dns.Msg, server string) (*dns.Msg, error) {
		r := new(dns.Msg)
		r.SetReply(m)
		r.Rcode = rcode
		r.Answer = answer
		return r, nil
	}
	return c
}

func TestLookupSMP(t *testing.T) {
	ctx := context.Background()
	const hash = "cmorzb6cpx7e4wldnu4zxrmczeqaiacq4qds2x7zi5ki4nsxxfma"

	t.Run("registered", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeSuccess, []dns.RR{
			naptrRecord(100, 10, "Meta:SMP", "!^.*$!http://smp.example.com!"),
		})
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, "http://smp.example.com", u)
	})

	t.Run("NXDOMAIN means not registered", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeNameError, nil)
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Empty(t, u)
	})

	t.Run("empty answer means not registered", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeSuccess, nil)
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Empty(t, u)
	})

	t.Run("non Meta:SMP records are ignored", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeSuccess, []dns.RR{
			naptrRecord(10, 10, "Meta:Other", "!^.*$!http://smp.example.com!"),
		})
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Empty(t, u)
	})

	t.Run("service tag matching is case insensitive", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeSuccess, []dns.RR{
			naptrRecord(10, 10, "meta:smp", "!^.*$!https://smp.example.com!"),
		})
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, "https://smp.example.com", u)
	})

	t.Run("lowest order wins", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeSuccess, []dns.RR{
			naptrRecord(20, 10, "Meta:SMP", "!^.*$!http://second.example.com!"),
			naptrRecord(10, 50, "Meta:SMP", "!^.*$!http://first.example.com!"),
		})
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, "http://first.example.com", u)
	})

	t.Run("preference breaks order ties", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeSuccess, []dns.RR{
			naptrRecord(10, 20, "Meta:SMP", "!^.*$!http://second.example.com!"),
			naptrRecord(10, 10, "Meta:SMP", "!^.*$!http://first.example.com!"),
		})
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, "http://first.example.com", u)
	})

	t.Run("document order breaks full ties", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeSuccess, []dns.RR{
			naptrRecord(10, 10, "Meta:SMP", "!^.*$!http://first.example.com!"),
			naptrRecord(10, 10, "Meta:SMP", "!^.*$!http://second.example.com!"),
		})
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, "http://first.example.com", u)
	})

	t.Run("malformed best record falls through to next", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeSuccess, []dns.RR{
			naptrRecord(10, 10, "Meta:SMP", "!^.*$!ftp://bad.example.com!"),
			naptrRecord(20, 10, "Meta:SMP", "!^.*$!http://good.example.com!"),
		})
		u, err := c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, "http://good.example.com", u)
	})

	t.Run("SERVFAIL is a hard failure", func(t *testing.T) {
		c := newFakeClient(t, dns.RcodeServerFailure, nil)
		_, err := c.LookupSMP(ctx, hash)
		require.Error(t, err)
	})

	t.Run("transport error is a hard failure", func(t *testing.T) {
		c, err := NewClient(ClientConfig{Servers: []string{"127.0.0.1"}})
		require.NoError(t, err)
		c.exchange = func(ctx context.Context, m *dns.Msg, server string) (*dns.Msg, error) {
			return nil, context.DeadlineExceeded
		}
		_, err = c.LookupSMP(ctx, hash)
		require.Error(t, err)
	})

	t.Run("query name embeds hash, category, and domain", func(t *testing.T) {
		c, err := NewClient(ClientConfig{Servers: []string{"127.0.0.1"}, Domain: "acc.edelivery.tech.ec.europa.eu"})
		require.NoError(t, err)
		var question string
		c.exchange = func(ctx context.Context, m *dns.Msg, server string) (*dns.Msg, error) {
			question = m.Question[0].Name
			r := new(dns.Msg)
			r.SetReply(m)
			r.Rcode = dns.RcodeNameError
			return r, nil
		}
		_, err = c.LookupSMP(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, hash+".iso6523-actorid-upis.acc.edelivery.tech.ec.europa.eu.", question)
	})
}

func TestExtractSMPURL(t *testing.T) {
	testCases := []struct {
		desc     string
		payload  string
		expected string
	}{
		{desc: "plain http", payload: "!^.*$!http://smp.example.com!", expected: "http://smp.example.com"},
		{desc: "plain https", payload: "!^.*$!https://smp.example.com!", expected: "https://smp.example.com"},
		{desc: "trailing slash stripped", payload: "!^.*$!http://smp.example.com/!", expected: "http://smp.example.com"},
		{desc: "path preserved", payload: "!^.*$!https://smp.example.com/smp!", expected: "https://smp.example.com/smp"},
		{desc: "userinfo rejected", payload: "!^.*$!http://user:pw@smp.example.com!", expected: ""},
		{desc: "query rejected", payload: "!^.*$!http://smp.example.com?x=1!", expected: ""},
		{desc: "fragment rejected", payload: "!^.*$!http://smp.example.com#frag!", expected: ""},
		{desc: "non http scheme rejected", payload: "!^.*$!ftp://smp.example.com!", expected: ""},
		{desc: "relative URL rejected", payload: "!^.*$!/just/a/path!", expected: ""},
		{desc: "missing trailing delimiter", payload: "!^.*$!http://smp.example.com", expected: ""},
		{desc: "missing leading delimiter", payload: "^.*$!http://smp.example.com!", expected: ""},
		{desc: "too many fields", payload: "!^.*$!http://a!http://b!", expected: ""},
		{desc: "empty payload", payload: "", expected: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			require.Equal(t, tc.expected, ExtractSMPURL(tc.payload))
		})
	}
}
