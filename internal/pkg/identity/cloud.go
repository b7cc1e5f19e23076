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
	"fmt"
	"io"
	"net/http"
	"strings"

	gcemetadata "cloud.google.com/go/compute/metadata"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	dometadata "github.com/digitalocean/go-metadata"
	equinixmetadata "github.com/packethost/packngo/metadata"
	vultrmetadata "github.com/vultr/metadata"
)

var (
	// ErrNoHostname no source returned a hostname
	ErrNoHostname = errors.New("no hostname source available")

	// ErrEmptyHostname provider answered with an empty hostname
	ErrEmptyHostname = errors.New("empty hostname")

	// ErrMetadataStatus metadata endpoint answered with a non-200 status
	ErrMetadataStatus = errors.New("non-200 response from metadata store")
)

const (
	azureMetadataURL = "http://169.254.169.254/metadata/instance/compute/vmId?api-version=2017-08-01&format=text"
	otcMetadataURL   = "http://169.254.169.254/latest/meta-data/hostname"
)

// CloudSources returns the cloud metadata sources followed by the OS
// hostname, in detection order.
func CloudSources() []HostnameSource {
	return []HostnameSource{
		&GCE{client: gcemetadata.NewClient(&http.Client{Transport: http.DefaultTransport})},
		&DigitalOcean{client: dometadata.NewClient(dometadata.WithHTTPClient(&http.Client{Transport: http.DefaultTransport}))},
		&EC2{client: imds.New(imds.Options{})},
		NewAzure(),
		NewOTC(),
		&Vultr{client: vultrmetadata.NewClient()},
		&Equinix{},
		OSHostname{},
	}
}

// withContext runs fn and gives up when ctx is done. Used for metadata
// clients without context support; fn keeps running in the background.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}

	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case res := <-ch:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// GCE Google Compute Engine metadata server.
type GCE struct {
	client *gcemetadata.Client
}

func (g *GCE) Name() string {
	return "gce"
}

func (g *GCE) IsRunningOn(ctx context.Context) bool {
	on, err := withContext(ctx, func() (bool, error) {
		return gcemetadata.OnGCE(), nil
	})

	return err == nil && on
}

func (g *GCE) Hostname(ctx context.Context) (string, error) {
	return withContext(ctx, g.client.Hostname)
}

// DigitalOcean droplet metadata service.
type DigitalOcean struct {
	client *dometadata.Client
}

func (d *DigitalOcean) Name() string {
	return "digitalocean"
}

func (d *DigitalOcean) IsRunningOn(ctx context.Context) bool {
	md, err := withContext(ctx, d.client.Metadata)

	return err == nil && md != nil && md.DropletID != 0
}

func (d *DigitalOcean) Hostname(ctx context.Context) (string, error) {
	md, err := withContext(ctx, d.client.Metadata)
	if err != nil {
		return "", err
	}

	if len(md.Hostname) == 0 {
		return "", ErrEmptyHostname
	}

	return md.Hostname, nil
}

// EC2 AWS instance metadata service.
type EC2 struct {
	client *imds.Client
}

func (e *EC2) Name() string {
	return "ec2"
}

func (e *EC2) IsRunningOn(ctx context.Context) bool {
	_, err := e.client.GetMetadata(ctx, &imds.GetMetadataInput{Path: "instance-id"})

	return err == nil
}

func (e *EC2) Hostname(ctx context.Context) (string, error) {
	// 'public-hostname' may not exist
	out, err := e.client.GetMetadata(ctx, &imds.GetMetadataInput{Path: "internal-hostname"})
	if err != nil {
		return "", err
	}
	defer out.Content.Close()

	b, err := io.ReadAll(out.Content)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Vultr instance metadata service.
type Vultr struct {
	client *vultrmetadata.Client
}

func (v *Vultr) Name() string {
	return "vultr"
}

func (v *Vultr) IsRunningOn(ctx context.Context) bool {
	_, err := withContext(ctx, v.client.Metadata)

	return err == nil
}

// Hostname returns the instance id, the metadata hostname is user set
// and often left empty.
func (v *Vultr) Hostname(ctx context.Context) (string, error) {
	md, err := withContext(ctx, v.client.Metadata)
	if err != nil {
		return "", err
	}

	if md.InstanceID == "" {
		return "", ErrEmptyHostname
	}

	return md.InstanceID, nil
}

// Equinix Equinix Metal metadata service.
// Layer 3 or Hybrid Bonded networking modes only.
type Equinix struct{}

func (e *Equinix) Name() string {
	return "equinix"
}

func (e *Equinix) IsRunningOn(ctx context.Context) bool {
	device, err := withContext(ctx, equinixmetadata.GetMetadata)

	return err == nil && device != nil
}

func (e *Equinix) Hostname(ctx context.Context) (string, error) {
	device, err := withContext(ctx, equinixmetadata.GetMetadata)
	if err != nil {
		return "", err
	}

	if device == nil || device.ID == "" {
		return "", fmt.Errorf("equinix: %w", ErrEmptyHostname)
	}

	return device.ID, nil
}

// MetadataEndpoint hostname source backed by a plain HTTP metadata
// endpoint returning the hostname as text.
type MetadataEndpoint struct {
	name   string
	url    string
	header http.Header
	client *http.Client
}

// NewAzure Azure instance metadata service, reports the VM id.
func NewAzure() *MetadataEndpoint {
	return &MetadataEndpoint{
		name:   "azure",
		url:    azureMetadataURL,
		header: http.Header{"Metadata": []string{"true"}},
		client: &http.Client{},
	}
}

// NewOTC Open Telekom Cloud metadata service.
func NewOTC() *MetadataEndpoint {
	return &MetadataEndpoint{
		name:   "otc",
		url:    otcMetadataURL,
		client: &http.Client{},
	}
}

func (m *MetadataEndpoint) Name() string {
	return m.name
}

func (m *MetadataEndpoint) IsRunningOn(ctx context.Context) bool {
	_, err := m.fetch(ctx)

	return err == nil
}

func (m *MetadataEndpoint) Hostname(ctx context.Context) (string, error) {
	name, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}

	if name == "" {
		return "", fmt.Errorf("%s: %w", m.name, ErrEmptyHostname)
	}

	return name, nil
}

func (m *MetadataEndpoint) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return "", err
	}
	for k, v := range m.header {
		req.Header[k] = v
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %w: %d", m.name, ErrMetadataStatus, resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}
