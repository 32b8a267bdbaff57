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

package fetch

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/peppolkit/smp-resolver-ng/lib/defaults"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetSendsProfileHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<ok/>"))
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte("<ok/>"), resp.Body)
	require.Equal(t, defaults.UserAgent, gotUA)
	require.Equal(t, "application/xml, text/xml", gotAccept)
	require.Zero(t, resp.Redirects)
	require.Equal(t, srv.URL, resp.FinalURL)
}

func TestGetFollowsOneRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			// Relative Location must be resolved against the previous URL.
			w.Header().Set("Location", "/final")
			w.WriteHeader(http.StatusFound)
		case "/final":
			w.Write([]byte("arrived"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Get(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte("arrived"), resp.Body)
	require.Equal(t, 1, resp.Redirects)
	require.Equal(t, srv.URL+"/final", resp.FinalURL)
}

func TestGetRejectsSecondRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			w.Header().Set("Location", "/b")
			w.WriteHeader(http.StatusFound)
		case "/b":
			w.Header().Set("Location", "/c")
			w.WriteHeader(http.StatusFound)
		default:
			w.Write([]byte("should not get here"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t)
	_, err := c.Get(context.Background(), srv.URL+"/a")
	require.Error(t, err)
	require.True(t, trace.IsLimitExceeded(err))
}

func TestGetRejectsRedirectWithoutLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	c := newTestClient(t)
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, trace.IsBadParameter(err))
}

func TestGetWithTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t)
	start := time.Now()
	_, err := c.GetWithTimeout(context.Background(), srv.URL, 50*time.Millisecond)
	require.Error(t, err)
	require.True(t, IsTransportError(err))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestGetConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := newTestClient(t)
	_, err = c.Get(context.Background(), "http://"+addr)
	require.Error(t, err)
	require.True(t, IsTransportError(err))
}

func TestGetHonorsCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	c := newTestClient(t)
	_, err := c.Get(ctx, srv.URL)
	require.Error(t, err)
	require.True(t, IsTransportError(err))
}

func TestNonSuccessStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nothing here", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
