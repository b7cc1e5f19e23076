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
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// ErrCommandTimeout command did not finish before its deadline
var ErrCommandTimeout = errors.New("command timed out")

// CommandRunner executes a host command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host. Env is appended to the
// current process environment.
type ExecRunner struct {
	Env []string
}

// DefaultCommandRunner runner used by probes unless overridden.
var DefaultCommandRunner = CommandRunner(&ExecRunner{Env: []string{"LC_ALL=C"}})

// Run executes the command and returns its stdout. A non-zero exit
// status is an error carrying the command's stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		cmdline := strings.Join(append([]string{name}, args...), " ")
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(ErrCommandTimeout, cmdline)
		}

		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(err, "%s: %s", cmdline, msg)
		}

		return nil, errors.Wrap(err, cmdline)
	}

	return stdout.Bytes(), nil
}
