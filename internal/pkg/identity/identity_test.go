// Copyright 2022 Metrika Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockSource struct {
	name     string
	running  bool
	hostname string
	err      error
	calls    int
}

func (m *mockSource) Name() string {
	return m.name
}

func (m *mockSource) IsRunningOn(ctx context.Context) bool {
	return m.running
}

func (m *mockSource) Hostname(ctx context.Context) (string, error) {
	m.calls++
	return m.hostname, m.err
}

func lookupHostMock(addrs []string, err error) func(context.Context, string) ([]string, error) {
	return func(ctx context.Context, host string) ([]string, error) {
		return addrs, err
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("Resolve/first_running_source_wins", func(t *testing.T) {
		notCloud := &mockSource{name: "gce", running: false, hostname: "gce-host"}
		cloud := &mockSource{name: "ec2", running: true, hostname: "ip-10-0-0-7.ec2.internal"}
		os := &mockSource{name: "os", running: true, hostname: "localhost"}

		r := NewResolver(ResolverConf{
			Sources:    []HostnameSource{notCloud, cloud, os},
			LookupHost: lookupHostMock([]string{"10.0.0.7"}, nil),
		})

		node := r.Resolve(context.Background())
		require.Equal(t, Node{Name: "ip-10-0-0-7.ec2.internal", Address: "10.0.0.7"}, node)
		require.Equal(t, 0, notCloud.calls)
		require.Equal(t, 0, os.calls)
	})

	t.Run("Resolve/falls_through_failing_source", func(t *testing.T) {
		r := NewResolver(ResolverConf{
			Sources: []HostnameSource{
				&mockSource{name: "do", running: true, err: errors.New("metadata timeout")},
				&mockSource{name: "os", running: true, hostname: "eth-node-01"},
			},
			LookupHost: lookupHostMock([]string{"fe80::1", "192.168.1.20"}, nil),
		})

		node := r.Resolve(context.Background())
		require.Equal(t, Node{Name: "eth-node-01", Address: "192.168.1.20"}, node)
	})

	t.Run("Resolve/ipv6_only", func(t *testing.T) {
		r := NewResolver(ResolverConf{
			Sources:    []HostnameSource{&mockSource{name: "os", running: true, hostname: "eth-node-01"}},
			LookupHost: lookupHostMock([]string{"2001:db8::1"}, nil),
		})

		require.Equal(t, "2001:db8::1", r.Resolve(context.Background()).Address)
	})

	t.Run("Resolve/hostname_failure", func(t *testing.T) {
		r := NewResolver(ResolverConf{
			Sources:    []HostnameSource{&mockSource{name: "os", running: true, err: errors.New("uname failed")}},
			LookupHost: lookupHostMock([]string{"10.0.0.1"}, nil),
		})

		require.Equal(t, UnknownNode, r.Resolve(context.Background()))
	})

	t.Run("Resolve/no_source", func(t *testing.T) {
		r := NewResolver(ResolverConf{
			Sources:    []HostnameSource{&mockSource{name: "gce", running: false}},
			LookupHost: lookupHostMock(nil, nil),
		})

		require.Equal(t, UnknownNode, r.Resolve(context.Background()))
	})

	t.Run("Resolve/address_failure", func(t *testing.T) {
		r := NewResolver(ResolverConf{
			Sources:    []HostnameSource{&mockSource{name: "os", running: true, hostname: "eth-node-01"}},
			LookupHost: lookupHostMock(nil, errors.New("no such host")),
		})

		require.Equal(t, Node{Name: "eth-node-01", Address: Unknown}, r.Resolve(context.Background()))
	})

	t.Run("Resolve/os_default", func(t *testing.T) {
		r := NewResolver(ResolverConf{LookupHost: lookupHostMock([]string{"127.0.0.1"}, nil)})

		node := r.Resolve(context.Background())
		require.NotEqual(t, Unknown, node.Name)
		require.Equal(t, "127.0.0.1", node.Address)
	})
}

func TestWithContext(t *testing.T) {
	t.Run("withContext/returns_value", func(t *testing.T) {
		v, err := withContext(context.Background(), func() (string, error) { return "ok", nil })
		require.NoError(t, err)
		require.Equal(t, "ok", v)
	})

	t.Run("withContext/deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		block := make(chan struct{})
		defer close(block)

		_, err := withContext(ctx, func() (string, error) {
			<-block
			return "late", nil
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestMetadataEndpoint(t *testing.T) {
	t.Run("MetadataEndpoint/azure_header", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Metadata") != "true" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte("d4b7a1f2-6c1e-4a8e-9f3b-2b5c7e9a0d11\n"))
		}))
		defer ts.Close()

		src := NewAzure()
		src.url = ts.URL

		require.Equal(t, "azure", src.Name())
		require.True(t, src.IsRunningOn(context.Background()))

		name, err := src.Hostname(context.Background())
		require.NoError(t, err)
		require.Equal(t, "d4b7a1f2-6c1e-4a8e-9f3b-2b5c7e9a0d11", name)
	})

	t.Run("MetadataEndpoint/otc_not_found", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		src := NewOTC()
		src.url = ts.URL

		require.False(t, src.IsRunningOn(context.Background()))

		_, err := src.Hostname(context.Background())
		require.ErrorIs(t, err, ErrMetadataStatus)
	})

	t.Run("MetadataEndpoint/empty_hostname", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer ts.Close()

		src := NewOTC()
		src.url = ts.URL

		_, err := src.Hostname(context.Background())
		require.ErrorIs(t, err, ErrEmptyHostname)
	})

	t.Run("MetadataEndpoint/resolver_chain", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ecs-eth-node-01"))
		}))
		defer ts.Close()

		otc := NewOTC()
		otc.url = ts.URL

		r := NewResolver(ResolverConf{
			Sources:    []HostnameSource{otc, OSHostname{}},
			LookupHost: lookupHostMock([]string{"10.1.0.4"}, nil),
		})
		require.Equal(t, Node{Name: "ecs-eth-node-01", Address: "10.1.0.4"}, r.Resolve(context.Background()))
	})
}
