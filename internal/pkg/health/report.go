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

package health

import "nodecheck/internal/pkg/probe"

// Report aggregated result of one run. It is only built by NewReport and
// never modified afterwards.
type Report struct {
	healthy    bool
	blockSync  probe.Result
	diskSpace  probe.Result
	containers probe.Result
}

// NewReport builds a report; the node is healthy iff every probe passed.
func NewReport(blockSync, diskSpace, containers probe.Result) Report {
	return Report{
		healthy:    blockSync.Passed && diskSpace.Passed && containers.Passed,
		blockSync:  blockSync,
		diskSpace:  diskSpace,
		containers: containers,
	}
}

func (r Report) IsHealthy() bool {
	return r.healthy
}

func (r Report) BlockSync() probe.Result {
	return r.blockSync
}

func (r Report) DiskSpace() probe.Result {
	return r.diskSpace
}

func (r Report) Containers() probe.Result {
	return r.containers
}

// Check a probe result with its key.
type Check struct {
	Name   string
	Result probe.Result
}

// Checks returns the probe results in report order.
func (r Report) Checks() []Check {
	return []Check{
		{Name: probe.NameBlockSync, Result: r.blockSync},
		{Name: probe.NameDiskSpace, Result: r.diskSpace},
		{Name: probe.NameContainers, Result: r.containers},
	}
}

// Status "ok" for a passed probe, "error" otherwise.
func Status(res probe.Result) string {
	if res.Passed {
		return "ok"
	}

	return "error"
}
