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

package alert

import (
	"fmt"
	"strings"
	"time"

	"nodecheck/internal/pkg/health"
	"nodecheck/internal/pkg/identity"
	"nodecheck/internal/pkg/probe"
)

const (
	mentionEveryone = "<at>everyone</at>\n"
	timestampLayout = "2006-01-02 15:04:05"
)

// FormatMessage builds the chat message for a report. The message is
// built from the report alone and does not depend on the terminal
// rendering.
func FormatMessage(r health.Report, node identity.Node, mentionAll bool, ts time.Time) string {
	status := "[HEALTHY]"
	if !r.IsHealthy() {
		status = "[UNHEALTHY]"
	}

	parts := make([]string, 0, 9)
	if mentionAll {
		parts = append(parts, mentionEveryone)
	}

	parts = append(parts,
		"ETH FullNode Health Check Report - "+ts.Format(timestampLayout),
		"\nNode: "+node.Name,
		"\nIP: "+node.Address,
		"\nStatus: "+status,
		"\n\nDetails:",
		blockSyncLine(r.BlockSync()),
		diskSpaceLine(r.DiskSpace()),
		containersLine(r.Containers()),
	)

	return strings.Join(parts, "\n")
}

func mark(passed bool) string {
	if passed {
		return "[OK]"
	}

	return "[FAIL]"
}

func errorLine(label string, res probe.Result) string {
	return fmt.Sprintf("* %s: [FAIL] Error - %s", label, res.Err)
}

func blockSyncLine(res probe.Result) string {
	if res.Failed() {
		return errorLine("Block Sync", res)
	}

	d, _ := res.Details.(probe.BlockSyncDetails)

	return fmt.Sprintf("* Block Sync: %s Difference: %d blocks", mark(res.Passed), d.BlockDifference)
}

func diskSpaceLine(res probe.Result) string {
	if res.Failed() {
		return errorLine("Disk Space", res)
	}

	d, _ := res.Details.(probe.DiskSpaceDetails)

	return fmt.Sprintf("* Disk Space: %s Available: %sG", mark(res.Passed), health.FormatGB(d.AvailableGB))
}

func containersLine(res probe.Result) string {
	if res.Failed() {
		return errorLine("Containers", res)
	}

	if res.Passed {
		return "* Containers: [OK] All running"
	}

	d, _ := res.Details.(probe.ContainerDetails)

	return "* Containers: [FAIL] Missing: " + strings.Join(d.Missing, ", ")
}
