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
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// Unknown sentinel used for identity fields that could not be resolved.
const Unknown = "unknown"

const defaultTimeout = 3 * time.Second

// Node host identity shown in alert messages.
type Node struct {
	Name    string
	Address string
}

// UnknownNode identity used when nothing could be resolved.
var UnknownNode = Node{Name: Unknown, Address: Unknown}

// HostnameSource is an interface to retrieve the host name from a
// metadata provider.
type HostnameSource interface {
	// Name returns the source name
	Name() string

	// IsRunningOn returns true if the host runs on this source's provider.
	IsRunningOn(ctx context.Context) bool

	// Hostname returns the hostname as reported by the source.
	Hostname(ctx context.Context) (string, error)
}

// ResolverConf Resolver configuration struct.
type ResolverConf struct {
	// Sources tried in order, the first to answer wins.
	// Defaults to the OS hostname only.
	Sources []HostnameSource

	// Timeout bounds every source lookup and the address lookup.
	Timeout time.Duration

	// LookupHost overrides net.DefaultResolver.LookupHost (only used by tests)
	LookupHost func(ctx context.Context, host string) ([]string, error)
}

// Resolver resolves the host identity.
type Resolver struct {
	ResolverConf
}

// NewResolver Resolver constructor.
func NewResolver(conf ResolverConf) *Resolver {
	if len(conf.Sources) == 0 {
		conf.Sources = []HostnameSource{OSHostname{}}
	}

	if conf.Timeout == 0 {
		conf.Timeout = defaultTimeout
	}

	if conf.LookupHost == nil {
		conf.LookupHost = net.DefaultResolver.LookupHost
	}

	return &Resolver{ResolverConf: conf}
}

// Resolve returns the host name and address. Fields that cannot be
// resolved are set to Unknown; it never fails.
func (r *Resolver) Resolve(ctx context.Context) Node {
	log := zap.S()

	name, err := r.hostname(ctx)
	if err != nil {
		log.Errorw("failed to get node info", zap.Error(err))

		return UnknownNode
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	addrs, err := r.LookupHost(ctx, name)
	if err != nil || len(addrs) == 0 {
		log.Errorw("failed to resolve node address", "hostname", name, zap.Error(err))

		return Node{Name: name, Address: Unknown}
	}

	return Node{Name: name, Address: pickAddress(addrs)}
}

func (r *Resolver) hostname(ctx context.Context) (string, error) {
	var lastErr error = ErrNoHostname

	for _, src := range r.Sources {
		sctx, cancel := context.WithTimeout(ctx, r.Timeout)
		if !src.IsRunningOn(sctx) {
			cancel()
			continue
		}

		name, err := src.Hostname(sctx)
		cancel()
		if err != nil {
			zap.S().Warnw("hostname lookup failed", "source", src.Name(), zap.Error(err))
			lastErr = err

			continue
		}

		if name == "" {
			continue
		}

		zap.S().Debugw("hostname resolved", "source", src.Name(), "hostname", name)

		return name, nil
	}

	return "", lastErr
}

// pickAddress prefers the first IPv4 address.
func pickAddress(addrs []string) string {
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}

	return addrs[0]
}

// OSHostname reads the kernel hostname.
type OSHostname struct{}

// Name returns the source name
func (OSHostname) Name() string {
	return "os"
}

// IsRunningOn always true.
func (OSHostname) IsRunningOn(ctx context.Context) bool {
	return true
}

// Hostname returns os.Hostname.
func (OSHostname) Hostname(ctx context.Context) (string, error) {
	return os.Hostname()
}
