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

package freelist_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/bump"
	"github.com/go-allocator/allocator/freelist"
)

func must(t *testing.T, size, align uintptr) allocator.Layout {
	t.Helper()
	l, err := allocator.NewLayout(size, align)
	require.NoError(t, err)
	return l
}

func newList(t *testing.T, limit int) (*freelist.Freelist, *bump.Arena) {
	t.Helper()
	base := bump.New(make([]byte, 4096))
	target := must(t, 32, 8)
	tolerance := must(t, 17, 8)
	params := freelist.NewParams(target, tolerance, limit)
	return freelist.New(params, base), base
}

func TestFreelist_OutOfBandBypassesToBase(t *testing.T) {
	t.Parallel()

	list, base := newList(t, 0)
	blk, err := list.Allocate(must(t, 128, 8))
	require.NoError(t, err)
	assert.Equal(t, uintptr(128), blk.Len)
	assert.Equal(t, 1, base.Live())
}

func TestFreelist_ReusesReleasedBlock(t *testing.T) {
	t.Parallel()

	list, _ := newList(t, 0)
	l := must(t, 24, 8)

	first, err := list.Allocate(l)
	require.NoError(t, err)
	list.Deallocate(first.Ptr, l)
	assert.Equal(t, 1, list.Len())

	second, err := list.Allocate(l)
	require.NoError(t, err)
	assert.Equal(t, first.Ptr, second.Ptr, "second allocation must reuse the cached block")
	assert.Equal(t, 0, list.Len())
}

func TestFreelist_ManagedBandUsesTargetAlignAsUpperBound(t *testing.T) {
	t.Parallel()

	list, base := newList(t, 0)

	// size 24 is in [17,32]; align 8 equals the target's align, so this is
	// in-band and must be served from the (empty) cache by falling through
	// to base with the *target* layout, not the requested one.
	_, err := list.Allocate(must(t, 24, 8))
	require.NoError(t, err)
	assert.Equal(t, 32, base.Used(), "an in-band miss must ask base for the target layout")

	// align 16 is above Target.Align (8) but below Target.Size (32): the
	// band's alignment upper bound is Target.Align, so this is out of band.
	assert.False(t, list.HasAllocated(nil, must(t, 24, 16)))
}

func TestFreelist_LimitCapsCacheGrowth(t *testing.T) {
	t.Parallel()

	list, base := newList(t, 2)
	l := must(t, 24, 8)

	var blocks []allocator.Block
	for i := 0; i < 3; i++ {
		blk, err := list.Allocate(l)
		require.NoError(t, err)
		blocks = append(blocks, blk)
	}
	for _, blk := range blocks {
		list.Deallocate(blk.Ptr, l)
	}

	assert.Equal(t, 2, list.Len(), "the cache must not grow past its limit")
	assert.Equal(t, 2, base.Live(), "the block bumped over the limit must bypass to base; the two cached blocks stay live in base")
}

func TestFreelist_DeallocateBypassesWithOriginalLayoutNotTarget(t *testing.T) {
	t.Parallel()

	list, base := newList(t, 0)
	oversized := must(t, 256, 8)

	blk, err := list.Allocate(oversized)
	require.NoError(t, err)
	list.Deallocate(blk.Ptr, oversized)
	assert.Equal(t, 0, base.Live(), "an out-of-band block must be released with its own layout")
	// Released with its own 256-byte layout, the block is the arena's top
	// and its bytes are reclaimed; the 32-byte target layout would not be.
	assert.Equal(t, 0, base.Used())
}

func TestFreelist_HasAllocatedNeverDelegatesToBase(t *testing.T) {
	t.Parallel()

	// Two free-lists sharing one base arena must not claim each other's
	// out-of-band blocks just because the shared base would report
	// ownership of the pointer for any layout.
	base := bump.New(make([]byte, 4096))
	small := freelist.New(freelist.NewParams(must(t, 16, 8), must(t, 9, 8), 0), base)
	big := freelist.New(freelist.NewParams(must(t, 64, 8), must(t, 17, 8), 0), base)

	blk, err := big.Allocate(must(t, 32, 8))
	require.NoError(t, err)

	assert.False(t, small.HasAllocated(blk.Ptr, must(t, 32, 8)))
	assert.True(t, big.HasAllocated(blk.Ptr, must(t, 32, 8)))
}

func TestNewParams_PanicsOnUndersizedTarget(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		freelist.NewParams(must(t, 1, 1), must(t, 1, 1), 0)
	})
}

func TestNewParams_PanicsOnInvertedBand(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		freelist.NewParams(must(t, 16, 8), must(t, 32, 8), 0)
	})
}

func TestLocked_ConcurrentReuseStaysConsistent(t *testing.T) {
	t.Parallel()

	base := bump.NewShared(make([]byte, 1<<20))
	params := freelist.NewParams(must(t, 32, 8), must(t, 17, 8), 0)
	list := freelist.NewLocked(params, base)

	const goroutines = 8
	const rounds = 200
	l := must(t, 24, 8)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				blk, err := list.Allocate(l)
				require.NoError(t, err)
				list.Deallocate(blk.Ptr, l)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, list.Len(), goroutines, "each goroutine holds at most one block at a time, so at most one cached entry per goroutine")
}
