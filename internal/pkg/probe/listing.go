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
	"strings"

	"nodecheck/internal/pkg/discover/utils"
)

// MatchMode selects how required container names are found in a listing.
type MatchMode string

const (
	// MatchSubstring a name is running if it appears anywhere in the
	// listing. mainnet-geth-1 also matches a running mainnet-geth-10.
	MatchSubstring MatchMode = "substring"

	// MatchExact a name is running if it equals one of the names found
	// in the last column of the listing.
	MatchExact MatchMode = "exact"
)

// listingHeaderPrefix first column header printed by docker ps.
const listingHeaderPrefix = "CONTAINER ID"

// MatchContainers splits required into running and missing names,
// preserving the order of required. Both slices are non-nil.
func MatchContainers(listing string, required []string, mode MatchMode) (running, missing []string) {
	running, missing = []string{}, []string{}

	var names map[string]bool
	if mode == MatchExact {
		names = ListingNames(listing)
	}

	for _, name := range required {
		var found bool
		if mode == MatchExact {
			found = names[name]
		} else {
			found = strings.Contains(listing, name)
		}

		if found {
			running = append(running, name)
		} else {
			missing = append(missing, name)
		}
	}

	return running, missing
}

// ListingNames extracts container names from a docker ps style listing:
// the last whitespace separated column of every non-header line, split
// on commas. A one-name-per-line listing works the same way.
func ListingNames(listing string) map[string]bool {
	names := map[string]bool{}

	for _, line := range strings.Split(listing, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), listingHeaderPrefix) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		for _, name := range strings.Split(fields[len(fields)-1], ",") {
			if name != "" {
				names[name] = true
			}
		}
	}

	return names
}

// Lister returns the raw text listing of running containers.
type Lister interface {
	List(ctx context.Context) (string, error)
}

// CommandLister lists containers by running a host command (docker ps).
type CommandLister struct {
	Command []string
	Runner  utils.CommandRunner
}

// List runs the listing command.
func (c *CommandLister) List(ctx context.Context) (string, error) {
	runner := c.Runner
	if runner == nil {
		runner = utils.DefaultCommandRunner
	}

	out, err := runner.Run(ctx, c.Command[0], c.Command[1:]...)
	if err != nil {
		return "", &listingError{err: err}
	}

	return string(out), nil
}

// DockerLister lists containers through the docker daemon API, one name
// per line.
type DockerLister struct{}

// List queries the docker daemon for running containers.
func (DockerLister) List(ctx context.Context) (string, error) {
	names, err := utils.RunningContainerNames(ctx)
	if err != nil {
		return "", &listingError{err: err}
	}

	return strings.Join(names, "\n"), nil
}
