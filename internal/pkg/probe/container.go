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

package probe

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// SourceCLI list containers with the configured command
	SourceCLI = "cli"

	// SourceDocker list containers through the docker daemon API
	SourceDocker = "docker"
)

var (
	// DefaultRequiredContainers execution and consensus clients of a mainnet node
	DefaultRequiredContainers = []string{"mainnet-prysm-1", "mainnet-geth-1"}

	// DefaultContainerCommand container listing command
	DefaultContainerCommand = []string{"docker", "ps"}
)

// ContainerConf Container configuration struct.
type ContainerConf struct {
	// Required names that must be running
	Required []string

	// Match how names are looked up in the listing, defaults to MatchSubstring
	Match MatchMode

	// Timeout bounds the listing
	Timeout time.Duration

	// Lister source of the listing, defaults to a CommandLister
	// running DefaultContainerCommand
	Lister Lister
}

// Container checks that every required container is running.
type Container struct {
	ContainerConf
}

// NewContainer Container constructor.
func NewContainer(conf ContainerConf) *Container {
	if conf.Required == nil {
		conf.Required = DefaultRequiredContainers
	}

	if conf.Match == "" {
		conf.Match = MatchSubstring
	}

	if conf.Timeout == 0 {
		conf.Timeout = defaultCommandTimeout
	}

	if conf.Lister == nil {
		conf.Lister = &CommandLister{Command: DefaultContainerCommand}
	}

	return &Container{ContainerConf: conf}
}

// Name returns the check key.
func (c *Container) Name() string {
	return NameContainers
}

// Probe lists running containers and passes if none of the required
// ones is missing.
func (c *Container) Probe(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	listing, err := c.Lister.List(ctx)
	if err != nil {
		zap.S().Errorw("container check failed", zap.Error(err))

		return Failure(err)
	}

	running, missing := MatchContainers(listing, c.Required, c.Match)
	if len(missing) > 0 {
		zap.S().Warnw("required containers not running", "missing", missing)
	}

	return Success(len(missing) == 0, ContainerDetails{Running: running, Missing: missing})
}
