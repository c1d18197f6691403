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

package upto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/bump"
	"github.com/go-allocator/allocator/upto"
)

func must(t *testing.T, size, align uintptr) allocator.Layout {
	t.Helper()
	l, err := allocator.NewLayout(size, align)
	require.NoError(t, err)
	return l
}

func TestUpTo_RejectsOversizedRequest(t *testing.T) {
	t.Parallel()

	gate := upto.New(must(t, 16, 8), bump.New(make([]byte, 64)))
	_, err := gate.Allocate(must(t, 32, 8))
	assert.ErrorIs(t, err, allocator.ErrAllocationFailed)
}

func TestUpTo_ServesInBandRequest(t *testing.T) {
	t.Parallel()

	gate := upto.New(must(t, 16, 8), bump.New(make([]byte, 64)))
	blk, err := gate.Allocate(must(t, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, uintptr(8), blk.Len)
}

func TestLimitedUpTo_AllowsFallbackIsNegationOfManages(t *testing.T) {
	t.Parallel()

	gate := upto.NewLimited(must(t, 16, 8), bump.New(make([]byte, 64)))
	assert.False(t, gate.AllowsFallback(must(t, 8, 8)))
	assert.True(t, gate.AllowsFallback(must(t, 32, 8)))
}

func TestLimitedUpTo_HasAllocatedIsRoutingAuthorityForInBandLayouts(t *testing.T) {
	t.Parallel()

	gate := upto.NewLimited(must(t, 16, 8), bump.New(make([]byte, 64)))
	// HasAllocated for an in-band layout is true even for a pointer this
	// gate never actually handed out — it is asked before the caller knows
	// which leaf holds the memory.
	assert.True(t, gate.HasAllocated(nil, must(t, 8, 8)))
}

func TestLimitedUpTo_HasAllocatedNeverDelegatesToBase(t *testing.T) {
	t.Parallel()

	// Two gates sharing one base arena, the same way sibling size classes
	// in a segregated tower share one bump arena. A request out of a
	// gate's own band must not be claimed just because the shared base
	// would report ownership of the pointer for any layout.
	shared := bump.New(make([]byte, 64))
	blk, err := shared.Allocate(must(t, 32, 8))
	require.NoError(t, err)

	small := upto.NewLimited(must(t, 16, 8), shared)
	big := upto.NewLimited(must(t, 64, 8), shared)

	assert.False(t, small.HasAllocated(blk.Ptr, must(t, 32, 8)))
	assert.True(t, big.HasAllocated(blk.Ptr, must(t, 32, 8)))
}
