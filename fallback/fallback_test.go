// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fallback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/bump"
	"github.com/go-allocator/allocator/fallback"
	"github.com/go-allocator/allocator/upto"
)

func must(t *testing.T, size, align uintptr) allocator.Layout {
	t.Helper()
	l, err := allocator.NewLayout(size, align)
	require.NoError(t, err)
	return l
}

// TestScenario_FallbackRouting mirrors a described scenario: a primary gated
// to 16 bytes and a secondary gated to 64, each over their own arena.
// Allocate(8) must land in the primary, Allocate(32) in the secondary, and
// each must be releasable only through the side that actually served it.
func TestScenario_FallbackRouting(t *testing.T) {
	t.Parallel()

	primaryArena := bump.New(make([]byte, 64))
	secondaryArena := bump.New(make([]byte, 128))
	primary := upto.NewLimited(must(t, 16, 1), primaryArena)
	secondary := upto.NewLimited(must(t, 64, 1), secondaryArena)
	f := fallback.New(primary, secondary)

	small := must(t, 8, 1)
	big := must(t, 32, 1)

	smallBlk, err := f.Allocate(small)
	require.NoError(t, err)
	assert.True(t, primary.HasAllocated(smallBlk.Ptr, small))

	bigBlk, err := f.Allocate(big)
	require.NoError(t, err)
	assert.True(t, secondary.HasAllocated(bigBlk.Ptr, big))
	assert.False(t, primary.HasAllocated(bigBlk.Ptr, big))

	f.Deallocate(smallBlk.Ptr, small)
	f.Deallocate(bigBlk.Ptr, big)
	assert.Equal(t, 0, primaryArena.Live())
	assert.Equal(t, 0, secondaryArena.Live())
}

func TestFallbacked_GrowCrossesOverWithoutLosingData(t *testing.T) {
	t.Parallel()

	primaryArena := bump.New(make([]byte, 32))
	secondaryArena := bump.New(make([]byte, 256))
	primary := upto.NewLimited(must(t, 16, 8), primaryArena)
	secondary := upto.NewLimited(must(t, 256, 8), secondaryArena)
	f := fallback.New(primary, secondary)

	small := must(t, 8, 8)
	blk, err := f.Allocate(small)
	require.NoError(t, err)
	*(*uint64)(blk.Ptr) = 0xc0ffee

	big := must(t, 64, 8)
	grown, err := f.Grow(blk.Ptr, small, big)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xc0ffee), *(*uint64)(grown.Ptr))
	assert.True(t, secondary.HasAllocated(grown.Ptr, big))
	assert.Equal(t, 0, primaryArena.Live(), "the primary's block must be released once the grow lands in the secondary")
}

func TestFallbacked_AllocateFailsWhenNeitherSideCanServe(t *testing.T) {
	t.Parallel()

	primaryArena := bump.New(make([]byte, 8))
	secondaryArena := bump.New(make([]byte, 8))
	primary := upto.NewLimited(must(t, 8, 8), primaryArena)
	secondary := upto.NewLimited(must(t, 8, 8), secondaryArena)
	f := fallback.New(primary, secondary)

	_, err := f.Allocate(must(t, 64, 8))
	assert.ErrorIs(t, err, allocator.ErrAllocationFailed)
}
