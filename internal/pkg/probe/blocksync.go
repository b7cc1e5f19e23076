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

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultMaxBlockDifference max tolerated distance from the reference node.
const DefaultMaxBlockDifference = 20

// BlockNumberer returns the latest block height of a node.
type BlockNumberer interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// BlockSyncConf BlockSync configuration struct.
type BlockSyncConf struct {
	// Local the node being checked
	Local BlockNumberer

	// Reference trusted external node
	Reference BlockNumberer

	// MaxDifference max tolerated block distance, inclusive
	MaxDifference uint64
}

// BlockSync compares the local block height against a reference node.
type BlockSync struct {
	BlockSyncConf
}

// NewBlockSync BlockSync constructor.
func NewBlockSync(conf BlockSyncConf) *BlockSync {
	return &BlockSync{BlockSyncConf: conf}
}

// Name returns the check key.
func (b *BlockSync) Name() string {
	return NameBlockSync
}

// Probe queries both nodes, local first, and passes if the heights are
// at most MaxDifference blocks apart.
func (b *BlockSync) Probe(ctx context.Context) Result {
	local, err := b.Local.BlockNumber(ctx)
	if err != nil {
		zap.S().Errorw("block sync check failed", "node", "local", zap.Error(err))

		return Failure(errors.Wrap(err, "local node"))
	}

	reference, err := b.Reference.BlockNumber(ctx)
	if err != nil {
		zap.S().Errorw("block sync check failed", "node", "reference", zap.Error(err))

		return Failure(errors.Wrap(err, "reference node"))
	}

	diff := BlockDifference(local, reference)

	return Success(diff <= b.MaxDifference, BlockSyncDetails{
		BlockDifference: diff,
		LocalBlock:      local,
		ReferenceBlock:  reference,
	})
}

// BlockDifference absolute distance between two heights.
func BlockDifference(a, b uint64) uint64 {
	if a > b {
		return a - b
	}

	return b - a
}
