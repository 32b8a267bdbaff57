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
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/peppolkit/smp-resolver-ng/lib/fetch"
	"github.com/peppolkit/smp-resolver-ng/lib/identifier"
	"github.com/peppolkit/smp-resolver-ng/lib/smpxml"
)

// businessCardPaths returns the URL paths probed for a business card,
// in the fixed order SMPs in the wild have been observed to serve them.
func businessCardPaths(id identifier.ID) []string {
	urn := id.URN()
	encoded := url.QueryEscape(urn)
	return []string{
		"/businesscard/" + urn,
		"/" + encoded + "/businesscard",
		"/smp/businesscard/" + encoded,
		"/api/businesscard/" + encoded,
		"/rest/businesscard/" + encoded,
	}
}

// probeBusinessCard tries the known business card URL shapes against
// the SMP host, HTTPS first and then HTTP, with a short per-request
// timeout. It never fails the outer resolution: every outcome other
// than a parsed card is reported as nil.
//
// Fast fail: a transport-level failure (timeout, refused connection,
// TLS failure) on HTTPS means the origin does not serve that scheme, so
// the remaining HTTPS patterns are skipped; the same failure on HTTP
// ends the probe entirely. HTTP status responses such as 404 prove the
// server is reachable and do not short circuit. The probe therefore
// issues at most ten requests.
func (r *Resolver) probeBusinessCard(ctx context.Context, host string, id identifier.ID) *smpxml.BusinessEntity {
	paths := businessCardPaths(id)

	for _, scheme := range []string{"https", "http"} {
		for _, path := range paths {
			if ctx.Err() != nil {
				return nil
			}
			probeURL := scheme + "://" + host + path

			resp, err := r.fetcher.GetWithTimeout(ctx, probeURL, r.cfg.ProbeTimeout)
			if err != nil {
				if fetch.IsTransportError(err) {
					r.log.DebugContext(ctx, "business card probe hit unreachable scheme",
						"url", probeURL, "scheme", scheme)
					if scheme == "https" {
						break
					}
					return nil
				}
				continue
			}
			if resp.StatusCode != http.StatusOK {
				continue
			}
			body := bytes.TrimSpace(resp.Body)
			if len(body) == 0 || body[0] != '<' {
				continue
			}
			entity, err := smpxml.ParseBusinessCard(body)
			if err != nil || entity == nil {
				continue
			}
			r.log.DebugContext(ctx, "business card found", "url", probeURL)
			return entity
		}
	}
	return nil
}
