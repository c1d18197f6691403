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

package tower_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/system"
	"github.com/go-allocator/allocator/tower"
)

func mustLayout(t *testing.T, size, align uintptr) allocator.Layout {
	t.Helper()
	l, err := allocator.NewLayout(size, align)
	require.NoError(t, err)
	return l
}

func TestScenario_SegregatedTower(t *testing.T) {
	t.Parallel()

	tw := tower.New()

	small, err := tw.Allocate(mustLayout(t, 5, 1))
	require.NoError(t, err)
	assert.NotNil(t, small.Ptr)

	mediumLayout := mustLayout(t, 9, 1)
	medium, err := tw.Allocate(mediumLayout)
	require.NoError(t, err)
	assert.NotNil(t, medium.Ptr)

	l := mustLayout(t, 1, 1)
	first, err := tw.Allocate(l)
	require.NoError(t, err)
	tw.Deallocate(first.Ptr, l)

	second, err := tw.Allocate(l)
	require.NoError(t, err)
	assert.Equal(t, first.Ptr, second.Ptr, "the 8-byte class should reuse the freed block")

	// medium landed in the 16-byte class; deallocating it must not be
	// silently claimed by the 8-byte class's gate just because both
	// classes share the same underlying bump arena.
	tw.Deallocate(medium.Ptr, mediumLayout)
	mediumAgain, err := tw.Allocate(mustLayout(t, 10, 1))
	require.NoError(t, err)
	assert.Equal(t, medium.Ptr, mediumAgain.Ptr, "the 16-byte class should reuse the block freed above, not the 8-byte class's")
}

func TestTower_RequestsAboveTopClassFailByDefault(t *testing.T) {
	t.Parallel()

	tw := tower.New()
	_, err := tw.Allocate(mustLayout(t, 1<<20, 1))
	assert.ErrorIs(t, err, allocator.ErrAllocationFailed)
}

func TestTower_WithOverflowServesRequestsAboveTopClass(t *testing.T) {
	t.Parallel()

	var leaf system.System
	tw := tower.New(tower.WithOverflow(&leaf))

	l := mustLayout(t, 1<<20, 8)
	blk, err := tw.Allocate(l)
	require.NoError(t, err)
	assert.NotNil(t, blk.Ptr)
	tw.Deallocate(blk.Ptr, l)
}

func TestTower_WithSizesAndArenaSizeAreHonored(t *testing.T) {
	t.Parallel()

	tw := tower.New(
		tower.WithSizes([]uintptr{16, 32}),
		tower.WithArenaSize(4096),
	)

	blk, err := tw.Allocate(mustLayout(t, 10, 1))
	require.NoError(t, err)
	assert.NotNil(t, blk.Ptr)

	_, err = tw.Allocate(mustLayout(t, 33, 1))
	assert.ErrorIs(t, err, allocator.ErrAllocationFailed)
}

func TestTower_WithConcurrentSupportsParallelAllocate(t *testing.T) {
	t.Parallel()

	tw := tower.New(tower.WithConcurrent(), tower.WithListLimit(64))

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := mustLayout(t, 24, 8)
			blk, err := tw.Allocate(l)
			if err != nil {
				errs <- err
				return
			}
			tw.Deallocate(blk.Ptr, l)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestCurrentAndUse_ScopeToGoroutine(t *testing.T) {
	assert.Nil(t, tower.Current())

	tw := tower.New()
	restore := tower.Use(tw)
	assert.Same(t, tw, tower.Current())
	restore()
	assert.Nil(t, tower.Current())
}

func TestHook_MallocFreeRealloc(t *testing.T) {
	t.Parallel()

	tw := tower.New()
	hook := tower.NewHook(tw)

	ptr := hook.Malloc(16)
	require.NotNil(t, ptr)

	grown := hook.Realloc(ptr, 16, 64, 8)
	require.NotNil(t, grown)

	hook.Free(grown, 64, 8)
}

func TestHook_MallocAboveTopClassReturnsNil(t *testing.T) {
	t.Parallel()

	tw := tower.New()
	hook := tower.NewHook(tw)
	assert.Nil(t, hook.Malloc(1<<20))
}
