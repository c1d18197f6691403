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

package system

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
)

// NonWorking always fails every allocation request, but never panics —
// useful as a deliberately-empty leaf in tests. It has no AllowsFallback
// method, so it does not satisfy allocator.Fallbackable and cannot be a
// side of a Fallbacked combinator.
type NonWorking struct{}

// Allocate implements allocator.Allocator.
func (NonWorking) Allocate(l allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("system.NonWorking", l)
}

// AllocateZeroed implements allocator.Allocator.
func (NonWorking) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("system.NonWorking", l)
}

// Deallocate implements allocator.Allocator. NonWorking never hands out a
// block, so a call here is always a defect in the caller.
func (NonWorking) Deallocate(unsafe.Pointer, allocator.Layout) {
	panic("system: NonWorking.Deallocate called, but NonWorking never allocates anything")
}

// Grow implements allocator.Allocator.
func (NonWorking) Grow(_ unsafe.Pointer, _, new allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("system.NonWorking", new)
}

// GrowZeroed implements allocator.Allocator.
func (NonWorking) GrowZeroed(_ unsafe.Pointer, _, new allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("system.NonWorking", new)
}

// Shrink implements allocator.Allocator.
func (NonWorking) Shrink(_ unsafe.Pointer, _, new allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("system.NonWorking", new)
}

// HasAllocated reports false unconditionally: NonWorking never owns
// anything, since it never successfully allocates.
func (NonWorking) HasAllocated(unsafe.Pointer, allocator.Layout) bool { return false }
