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

//go:build windows

package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-allocator/allocator/system"
)

func TestWinApi_AllocateAndFreeRoundTrip(t *testing.T) {
	t.Parallel()

	var w system.WinApi
	l := must(t, 64, 8)
	blk, err := w.Allocate(l)
	require.NoError(t, err)
	assert.NotNil(t, blk.Ptr)
	w.Deallocate(blk.Ptr, l)
}

func TestWinApi_OverAlignedRecoversHiddenHeader(t *testing.T) {
	t.Parallel()

	var w system.WinApi
	l := must(t, 32, 256)
	blk, err := w.Allocate(l)
	require.NoError(t, err)
	assert.True(t, uintptr(blk.Ptr)%256 == 0)
	w.Deallocate(blk.Ptr, l)
}

func TestWinApi_GrowPreservesData(t *testing.T) {
	t.Parallel()

	var w system.WinApi
	old := must(t, 8, 8)
	blk, err := w.Allocate(old)
	require.NoError(t, err)
	*(*uint64)(blk.Ptr) = 0xfeed

	bigger := must(t, 256, 8)
	grown, err := w.Grow(blk.Ptr, old, bigger)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xfeed), *(*uint64)(grown.Ptr))
	w.Deallocate(grown.Ptr, bigger)
}
