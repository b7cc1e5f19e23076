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
	"errors"
	"testing"
	"time"

	dt "github.com/docker/docker/api/types"
	"github.com/stretchr/testify/require"
)

type dockerMockAdapter struct {
	containers []dt.Container
	err        error
}

func (d *dockerMockAdapter) GetRunningContainers(ctx context.Context) ([]dt.Container, error) {
	return d.containers, d.err
}

func overrideDockerAdapter(mock DockerAdapter) func() {
	defaultDockerAdapterWas := DefaultDockerAdapter
	DefaultDockerAdapter = mock

	return func() {
		DefaultDockerAdapter = defaultDockerAdapterWas
	}
}

func TestRunningContainerNames(t *testing.T) {
	t.Run("RunningContainerNames/strips_slash", func(t *testing.T) {
		defer overrideDockerAdapter(&dockerMockAdapter{containers: []dt.Container{
			{Names: []string{"/mainnet-geth-1"}},
			{Names: []string{"/mainnet-prysm-1", "/beacon"}},
		}})()

		names, err := RunningContainerNames(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"mainnet-geth-1", "mainnet-prysm-1", "beacon"}, names)
	})

	t.Run("RunningContainerNames/empty", func(t *testing.T) {
		defer overrideDockerAdapter(&dockerMockAdapter{})()

		names, err := RunningContainerNames(context.Background())
		require.NoError(t, err)
		require.Empty(t, names)
	})

	t.Run("RunningContainerNames/daemon_error", func(t *testing.T) {
		daemonErr := errors.New("cannot connect to the docker daemon")
		defer overrideDockerAdapter(&dockerMockAdapter{err: daemonErr})()

		_, err := RunningContainerNames(context.Background())
		require.ErrorIs(t, err, daemonErr)
	})
}

func TestExecRunner_Run(t *testing.T) {
	r := &ExecRunner{Env: []string{"LC_ALL=C", "NODECHECK_TEST=foo"}}

	t.Run("Run/stdout", func(t *testing.T) {
		out, err := r.Run(context.Background(), "sh", "-c", "echo $NODECHECK_TEST")
		require.NoError(t, err)
		require.Equal(t, "foo\n", string(out))
	})

	t.Run("Run/exit_status_with_stderr", func(t *testing.T) {
		_, err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
		require.Error(t, err)
		require.Contains(t, err.Error(), "boom")
		require.Contains(t, err.Error(), "exit status 3")
	})

	t.Run("Run/missing_binary", func(t *testing.T) {
		_, err := r.Run(context.Background(), "nodecheck-no-such-binary")
		require.Error(t, err)
	})

	t.Run("Run/timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := r.Run(ctx, "sleep", "5")
		require.ErrorIs(t, err, ErrCommandTimeout)
	})
}
