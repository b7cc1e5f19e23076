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

package utils

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	dt "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
)

var (
	// ErrDockerUnavailable docker daemon could not be reached
	ErrDockerUnavailable = errors.New("docker daemon unavailable")

	// DefaultDockerHost host docker daemon address to connect to
	DefaultDockerHost = ""

	// DefaultDockerAdapter default docker adapter for container listing.
	DefaultDockerAdapter = DockerAdapter(&DockerProductionAdapter{})
)

// DockerAdapter container listing interface.
type DockerAdapter interface {
	// GetRunningContainers returns a slice of all
	// currently running Docker containers
	GetRunningContainers(ctx context.Context) ([]dt.Container, error)
}

// DockerProductionAdapter adapter for accessing the host docker daemon
type DockerProductionAdapter struct{}

// GetRunningContainers returns a slice of all
// currently running Docker containers
func (a *DockerProductionAdapter) GetRunningContainers(ctx context.Context) ([]dt.Container, error) {
	cli, err := getDockerClient()
	if err != nil {
		return nil, errors.Wrap(ErrDockerUnavailable, err.Error())
	}

	containers, err := cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, err
	}

	return containers, nil
}

// GetRunningContainers convenience wrapper to the default adapter for
// getting running containers.
func GetRunningContainers(ctx context.Context) ([]dt.Container, error) {
	return DefaultDockerAdapter.GetRunningContainers(ctx)
}

// RunningContainerNames lists the names of running containers, one entry
// per name, without the leading slash the daemon reports.
func RunningContainerNames(ctx context.Context) ([]string, error) {
	containers, err := GetRunningContainers(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(containers))
	for _, c := range containers {
		for _, name := range c.Names {
			names = append(names, strings.TrimPrefix(name, "/"))
		}
	}

	return names, nil
}

var dockerCLI *client.Client

func getDockerClient() (*client.Client, error) {
	if dockerCLI != nil {
		return dockerCLI, nil
	}

	defaultOpts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}

	if DefaultDockerHost != "" {
		defaultOpts = append(defaultOpts,
			client.WithHost(DefaultDockerHost),
			client.WithHTTPClient(
				&http.Client{
					Transport: &http.Transport{
						DialContext: (&net.Dialer{Timeout: time.Second}).DialContext,
					},
				}))
	}

	var err error
	dockerCLI, err = client.NewClientWithOpts(defaultOpts...)
	if err != nil {
		return nil, err
	}

	return dockerCLI, nil
}
