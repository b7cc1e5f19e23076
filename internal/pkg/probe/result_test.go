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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResult_Variants(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		res := Success(true, DiskSpaceDetails{AvailableGB: 150, RequiredGB: 100})
		require.True(t, res.Passed)
		require.False(t, res.Failed())
		require.NotNil(t, res.Details)
		require.Empty(t, res.Err)
	})

	t.Run("Success/not_passed", func(t *testing.T) {
		res := Success(false, ContainerDetails{Running: []string{}, Missing: []string{"mainnet-geth-1"}})
		require.False(t, res.Passed)
		require.False(t, res.Failed())
	})

	t.Run("Success/nil_details", func(t *testing.T) {
		res := Success(true, nil)
		require.False(t, res.Passed)
		require.True(t, res.Failed())
		require.Equal(t, ErrNoDetails.Error(), res.Err)
	})

	t.Run("Failure", func(t *testing.T) {
		res := Failure(errors.New("boom"))
		require.False(t, res.Passed)
		require.True(t, res.Failed())
		require.Nil(t, res.Details)
		require.Equal(t, "boom", res.Err)
	})

	t.Run("Failure/nil_error", func(t *testing.T) {
		res := Failure(nil)
		require.True(t, res.Failed())
		require.Equal(t, ErrUnknown.Error(), res.Err)
	})
}
