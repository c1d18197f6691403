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

package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/system"
)

func must(t *testing.T, size, align uintptr) allocator.Layout {
	t.Helper()
	l, err := allocator.NewLayout(size, align)
	require.NoError(t, err)
	return l
}

func TestSystem_AllocateNativelyAligned(t *testing.T) {
	t.Parallel()

	var s system.System
	blk, err := s.Allocate(must(t, 64, 8))
	require.NoError(t, err)
	assert.Equal(t, uintptr(64), blk.Len)
	assert.True(t, uintptr(blk.Ptr)%8 == 0)
}

func TestSystem_AllocateOverAligned(t *testing.T) {
	t.Parallel()

	var s system.System
	blk, err := s.Allocate(must(t, 48, 256))
	require.NoError(t, err)
	assert.True(t, uintptr(blk.Ptr)%256 == 0, "over-aligned request must honor the requested alignment")
}

func TestSystem_AllocateZeroedIsActuallyZero(t *testing.T) {
	t.Parallel()

	var s system.System
	blk, err := s.AllocateZeroed(must(t, 32, 8))
	require.NoError(t, err)
	for _, b := range blk.Bytes() {
		assert.Zero(t, b)
	}
}

func TestSystem_GrowPreservesData(t *testing.T) {
	t.Parallel()

	var s system.System
	old := must(t, 8, 8)
	blk, err := s.Allocate(old)
	require.NoError(t, err)
	*(*uint64)(blk.Ptr) = 0x1234

	bigger := must(t, 64, 8)
	grown, err := s.Grow(blk.Ptr, old, bigger)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), *(*uint64)(grown.Ptr))
}

func TestSystem_ShrinkRejectsWidenedAlignment(t *testing.T) {
	t.Parallel()

	var s system.System
	old := must(t, 32, 8)
	blk, err := s.Allocate(old)
	require.NoError(t, err)

	_, err = s.Shrink(blk.Ptr, old, must(t, 8, 64))
	assert.ErrorIs(t, err, allocator.ErrAllocationFailed)
}

func TestImpossible_PanicsOnEveryMethod(t *testing.T) {
	t.Parallel()

	var im system.Impossible
	assert.Panics(t, func() { _, _ = im.Allocate(must(t, 1, 1)) })
	assert.Panics(t, func() { im.Deallocate(nil, must(t, 1, 1)) })
	assert.Panics(t, func() { im.HasAllocated(nil, must(t, 1, 1)) })
}

func TestNonWorking_AlwaysFailsNeverPanics(t *testing.T) {
	t.Parallel()

	var nw system.NonWorking
	_, err := nw.Allocate(must(t, 8, 8))
	assert.ErrorIs(t, err, allocator.ErrAllocationFailed)
	assert.False(t, nw.HasAllocated(nil, must(t, 8, 8)))
}
