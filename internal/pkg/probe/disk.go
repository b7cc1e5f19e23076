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

	"nodecheck/internal/pkg/discover/utils"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultMinAvailableGB minimum free space on the root mount
	DefaultMinAvailableGB = 100

	defaultCommandTimeout = 10 * time.Second
)

// DefaultDiskCommand disk usage report command.
var DefaultDiskCommand = []string{"df", "-h"}

// DiskSpaceConf DiskSpace configuration struct.
type DiskSpaceConf struct {
	// RootPath substring identifying the mount line, usually the device
	RootPath string

	// Command disk usage report command, defaults to DefaultDiskCommand
	Command []string

	// MinAvailableGB pass threshold, inclusive
	MinAvailableGB float64

	// Timeout bounds the command execution
	Timeout time.Duration

	// Runner overrides utils.DefaultCommandRunner
	Runner utils.CommandRunner
}

// DiskSpace checks the available space of the root mount.
type DiskSpace struct {
	DiskSpaceConf
}

// NewDiskSpace DiskSpace constructor.
func NewDiskSpace(conf DiskSpaceConf) *DiskSpace {
	if len(conf.Command) == 0 {
		conf.Command = DefaultDiskCommand
	}

	if conf.Timeout == 0 {
		conf.Timeout = defaultCommandTimeout
	}

	if conf.Runner == nil {
		conf.Runner = utils.DefaultCommandRunner
	}

	return &DiskSpace{DiskSpaceConf: conf}
}

// Name returns the check key.
func (d *DiskSpace) Name() string {
	return NameDiskSpace
}

// Probe runs the disk usage report and compares the available space
// against MinAvailableGB.
func (d *DiskSpace) Probe(ctx context.Context) Result {
	log := zap.S().With("root_path", d.RootPath)

	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	out, err := d.Runner.Run(ctx, d.Command[0], d.Command[1:]...)
	if err != nil {
		log.Errorw("disk space check failed", zap.Error(err))

		return Failure(errors.Wrap(err, "disk usage report"))
	}

	avail, err := ParseDiskReport(string(out), d.RootPath)
	if err != nil {
		log.Errorw("disk space check failed", zap.Error(err))

		return Failure(err)
	}

	gb, err := ParseSizeGB(avail)
	if err != nil {
		log.Errorw("disk space check failed", zap.Error(err))

		return Failure(err)
	}

	return Success(gb >= d.MinAvailableGB, DiskSpaceDetails{
		AvailableGB: roundGB(gb),
		RequiredGB:  d.MinAvailableGB,
	})
}
