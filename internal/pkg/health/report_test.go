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
	"errors"
	"testing"

	"nodecheck/internal/pkg/probe"

	"github.com/stretchr/testify/require"
)

var (
	syncOK   = probe.Success(true, probe.BlockSyncDetails{BlockDifference: 10, LocalBlock: 1000, ReferenceBlock: 1010})
	syncFail = probe.Failure(errors.New("local node: connection refused"))
	diskOK   = probe.Success(true, probe.DiskSpaceDetails{AvailableGB: 120, RequiredGB: 100})
	diskLow  = probe.Success(false, probe.DiskSpaceDetails{AvailableGB: 50, RequiredGB: 100})
	contOK   = probe.Success(true, probe.ContainerDetails{
		Running: []string{"mainnet-prysm-1", "mainnet-geth-1"},
		Missing: []string{},
	})
	contMissing = probe.Success(false, probe.ContainerDetails{
		Running: []string{"mainnet-prysm-1"},
		Missing: []string{"mainnet-geth-1"},
	})
)

func TestNewReport(t *testing.T) {
	for _, bs := range []bool{true, false} {
		for _, ds := range []bool{true, false} {
			for _, c := range []bool{true, false} {
				bsRes, dsRes, cRes := syncFail, diskLow, contMissing
				if bs {
					bsRes = syncOK
				}
				if ds {
					dsRes = diskOK
				}
				if c {
					cRes = contOK
				}

				r := NewReport(bsRes, dsRes, cRes)
				require.Equal(t, bs && ds && c, r.IsHealthy(), "bs=%v ds=%v c=%v", bs, ds, c)
				require.Equal(t, bsRes, r.BlockSync())
				require.Equal(t, dsRes, r.DiskSpace())
				require.Equal(t, cRes, r.Containers())
			}
		}
	}
}

func TestReportChecksOrder(t *testing.T) {
	r := NewReport(syncOK, diskLow, contOK)

	checks := r.Checks()
	require.Len(t, checks, 3)
	require.Equal(t, probe.NameBlockSync, checks[0].Name)
	require.Equal(t, probe.NameDiskSpace, checks[1].Name)
	require.Equal(t, probe.NameContainers, checks[2].Name)
	require.False(t, checks[1].Result.Passed)
}

func TestStatus(t *testing.T) {
	require.Equal(t, "ok", Status(syncOK))
	require.Equal(t, "error", Status(syncFail))
	require.Equal(t, "error", Status(diskLow))
}
