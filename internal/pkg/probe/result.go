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
)

const (
	// NameBlockSync block sync check key
	NameBlockSync = "block_sync"

	// NameDiskSpace disk space check key
	NameDiskSpace = "disk_space"

	// NameContainers containers check key
	NameContainers = "containers"
)

// Prober is implemented by every health check.
type Prober interface {
	// Name returns the check key used in reports and metrics.
	Name() string

	// Probe runs the check once. Implementations never return errors,
	// failures are reported through Result.
	Probe(ctx context.Context) Result
}

// Details is the success payload of a probe. Implemented by
// BlockSyncDetails, DiskSpaceDetails and ContainerDetails.
type Details interface {
	details()
}

// Result is the outcome of a single probe run. Exactly one of Details
// and Err is set; use Success or Failure to build one.
type Result struct {
	Passed  bool
	Details Details
	Err     string
}

// Success returns a result carrying the probe details.
func Success(passed bool, details Details) Result {
	if details == nil {
		return Failure(ErrNoDetails)
	}

	return Result{Passed: passed, Details: details}
}

// Failure returns a non-passing result carrying the error message.
func Failure(err error) Result {
	if err == nil || err.Error() == "" {
		err = ErrUnknown
	}

	return Result{Err: err.Error()}
}

// Failed returns true if the probe could not complete.
func (r Result) Failed() bool {
	return r.Err != ""
}

// BlockSyncDetails block heights compared by the block sync probe.
type BlockSyncDetails struct {
	BlockDifference uint64 `json:"block_difference"`
	LocalBlock      uint64 `json:"local_block"`
	ReferenceBlock  uint64 `json:"chainstack_block"`
}

// DiskSpaceDetails available space as found on the matched mount.
type DiskSpaceDetails struct {
	AvailableGB float64 `json:"available_space_gb"`
	RequiredGB  float64 `json:"required_min_gb"`
}

// ContainerDetails required containers split by presence.
type ContainerDetails struct {
	Running []string `json:"running_containers"`
	Missing []string `json:"missing_containers"`
}

func (BlockSyncDetails) details() {}
func (DiskSpaceDetails) details() {}
func (ContainerDetails) details() {}
