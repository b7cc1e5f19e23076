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

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"nodecheck/internal/pkg/probe"
)

// Document machine readable report. Field order is the output key order.
type Document struct {
	IsHealthy bool           `json:"is_healthy"`
	Checks    ChecksDocument `json:"checks"`
}

// ChecksDocument per-probe section of Document.
type ChecksDocument struct {
	BlockSync  CheckDocument `json:"block_sync"`
	DiskSpace  CheckDocument `json:"disk_space"`
	Containers CheckDocument `json:"containers"`
}

// CheckDocument status and details of a single probe. Details holds the
// probe's success details or an ErrorDetails.
type CheckDocument struct {
	Status  string      `json:"status"`
	Details interface{} `json:"details"`
}

// ErrorDetails details of a probe that could not complete.
type ErrorDetails struct {
	Error string `json:"error"`
}

// Structured converts the report into its machine readable form.
func Structured(r Report) Document {
	return Document{
		IsHealthy: r.IsHealthy(),
		Checks: ChecksDocument{
			BlockSync:  checkDocument(r.BlockSync()),
			DiskSpace:  checkDocument(r.DiskSpace()),
			Containers: checkDocument(r.Containers()),
		},
	}
}

func checkDocument(res probe.Result) CheckDocument {
	doc := CheckDocument{Status: Status(res)}
	if res.Failed() {
		doc.Details = ErrorDetails{Error: res.Err}
	} else {
		doc.Details = res.Details
	}

	return doc
}

// WriteJSON writes the report as an indented JSON document.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(Structured(r))
}

const (
	reportTitle = "ETH FullNode Health Check Report:"
	okMark      = "[OK]"
	failMark    = "[FAIL]"
)

var banner = strings.Repeat("=", 50)

func mark(passed bool) string {
	if passed {
		return okMark
	}

	return failMark
}

// WriteText writes the human readable report.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n%s\n", reportTitle, banner)

	b.WriteString("\n1. Block Sync Status:\n")
	writeBlockSync(&b, r.BlockSync())

	b.WriteString("\n2. Disk Space Status:\n")
	writeDiskSpace(&b, r.DiskSpace())

	b.WriteString("\n3. Container Status:\n")
	writeContainers(&b, r.Containers())

	fmt.Fprintf(&b, "\nOverall Status:\n%s\n%s\n\n", mark(r.IsHealthy()), banner)

	_, err := io.WriteString(w, b.String())

	return err
}

func writeFailure(b *strings.Builder, res probe.Result) bool {
	if !res.Failed() {
		return false
	}

	fmt.Fprintf(b, "%s Check failed: %s\n", failMark, res.Err)

	return true
}

func writeBlockSync(b *strings.Builder, res probe.Result) {
	if writeFailure(b, res) {
		return
	}

	d, _ := res.Details.(probe.BlockSyncDetails)
	fmt.Fprintf(b, "%s (Difference: %d blocks)\n", mark(res.Passed), d.BlockDifference)
	fmt.Fprintf(b, "   Local block: %d\n", d.LocalBlock)
	fmt.Fprintf(b, "   Remote block: %d\n", d.ReferenceBlock)
}

func writeDiskSpace(b *strings.Builder, res probe.Result) {
	if writeFailure(b, res) {
		return
	}

	d, _ := res.Details.(probe.DiskSpaceDetails)
	fmt.Fprintf(b, "%s (Available: %sG, Required: >=%sG)\n",
		mark(res.Passed), FormatGB(d.AvailableGB), strconv.FormatFloat(d.RequiredGB, 'f', -1, 64))
}

func writeContainers(b *strings.Builder, res probe.Result) {
	if writeFailure(b, res) {
		return
	}

	if res.Passed {
		fmt.Fprintf(b, "%s (All required containers are running)\n", okMark)
		return
	}

	d, _ := res.Details.(probe.ContainerDetails)
	fmt.Fprintf(b, "%s (Missing containers: %s)\n", failMark, strings.Join(d.Missing, ", "))
}

// FormatGB formats a gigabyte amount keeping one decimal for whole
// numbers: 150 => "150.0", 0.5 => "0.5".
func FormatGB(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}
