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

//go:build unix && cgo

package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-allocator/allocator/system"
)

func TestPosix_AllocateAndFreeRoundTrip(t *testing.T) {
	t.Parallel()

	var p system.Posix
	l := must(t, 64, 8)
	blk, err := p.Allocate(l)
	require.NoError(t, err)
	assert.NotNil(t, blk.Ptr)
	p.Deallocate(blk.Ptr, l)
}

func TestPosix_OverAlignedUsesPosixMemalign(t *testing.T) {
	t.Parallel()

	var p system.Posix
	l := must(t, 32, 128)
	blk, err := p.Allocate(l)
	require.NoError(t, err)
	assert.True(t, uintptr(blk.Ptr)%128 == 0)
	p.Deallocate(blk.Ptr, l)
}

func TestPosix_GrowPreservesData(t *testing.T) {
	t.Parallel()

	var p system.Posix
	old := must(t, 8, 8)
	blk, err := p.Allocate(old)
	require.NoError(t, err)
	*(*uint64)(blk.Ptr) = 0xabcd

	bigger := must(t, 128, 8)
	grown, err := p.Grow(blk.Ptr, old, bigger)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xabcd), *(*uint64)(grown.Ptr))
	p.Deallocate(grown.Ptr, bigger)
}
