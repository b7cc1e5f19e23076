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
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// availableColumn zero-based index of the available space column
// in a disk usage report line (Filesystem Size Used Avail Use% Mounted).
const availableColumn = 3

// ParseDiskReport returns the available space column of the first line
// containing rootPath. Matching is a plain substring match against the raw
// line, so a root path that is a prefix of another device (e.g. /dev/sda
// and /dev/sda1) matches whichever line comes first.
//
// df prints long device names on a line of their own with the numbers on
// the following line; such a pair is treated as a single line.
func ParseDiskReport(report, rootPath string) (string, error) {
	lines := strings.Split(report, "\n")

	for i, line := range lines {
		if !strings.Contains(line, rootPath) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 1 && i+1 < len(lines) {
			fields = append(fields, strings.Fields(lines[i+1])...)
		}

		if len(fields) <= availableColumn {
			return "", errors.Wrapf(ErrMalformedDiskLine, "%q", line)
		}

		return fields[availableColumn], nil
	}

	return "", errors.Wrap(ErrRootPathNotFound, rootPath)
}

// ParseSizeGB converts a human readable size into gigabytes.
// The suffix is case-insensitive: T is multiplied by 1024, M is divided
// by 1024 and anything else, including a bare number, is taken as
// gigabytes.
func ParseSizeGB(size string) (float64, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, errors.Wrap(ErrInvalidSize, "empty size")
	}

	num, unit := size, byte('G')
	if last := rune(size[len(size)-1]); unicode.IsLetter(last) {
		num, unit = size[:len(size)-1], byte(unicode.ToUpper(last))
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, errors.Wrapf(ErrInvalidSize, "%q", size)
	}

	switch unit {
	case 'T':
		return v * 1024, nil
	case 'M':
		return v / 1024, nil
	default:
		return v, nil
	}
}

// roundGB rounds to two decimals.
func roundGB(v float64) float64 {
	return math.Round(v*100) / 100
}
