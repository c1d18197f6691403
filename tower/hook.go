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

package tower

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
)

// Hook adapts an allocator.Allocator to the shape a C-facing malloc/realloc/
// free triplet needs: raw pointers in, raw pointers out, no errors, no
// panics. There is no runtime.SetMemAllocator in stock Go for this to plug
// into, but it is the shape a cgo //export'd entry point requires, so it is
// kept as an external interface rather than a reachable Go allocator hook.
type Hook struct {
	Alloc allocator.Allocator
}

// NewHook wraps alloc as a Hook.
func NewHook(alloc allocator.Allocator) Hook { return Hook{Alloc: alloc} }

// Malloc returns a pointer to size bytes at the natural alignment for that
// size, or nil on failure. It never panics: any panic raised reaching into
// Alloc is recovered and reported as a nil return, matching C's malloc
// failure contract.
func (h Hook) Malloc(size uintptr) (ptr unsafe.Pointer) {
	defer func() { _ = recover() }()
	l := allocator.MustLayout(size, naturalAlign(size))
	blk, err := h.Alloc.Allocate(l)
	if err != nil {
		return nil
	}
	return blk.Ptr
}

// Free releases a pointer previously returned by Malloc or Realloc. size and
// align must match the layout the block was allocated or last resized with,
// since this hook (like the underlying allocator.Allocator contract) is not
// self-describing.
func (h Hook) Free(ptr unsafe.Pointer, size, align uintptr) {
	defer func() { _ = recover() }()
	if ptr == nil {
		return
	}
	h.Alloc.Deallocate(ptr, allocator.MustLayout(size, align))
}

// Realloc resizes a block from oldSize to newSize, returning a nil pointer
// on failure and leaving the original block untouched, as C's realloc does
// and as the Grow/Shrink contract guarantees on failure.
func (h Hook) Realloc(ptr unsafe.Pointer, oldSize, newSize, align uintptr) unsafe.Pointer {
	defer func() { _ = recover() }()
	old := allocator.MustLayout(oldSize, align)
	next := allocator.MustLayout(newSize, align)

	var blk allocator.Block
	var err error
	if newSize >= oldSize {
		blk, err = h.Alloc.Grow(ptr, old, next)
	} else {
		blk, err = h.Alloc.Shrink(ptr, old, next)
	}
	if err != nil {
		return nil
	}
	return blk.Ptr
}

func naturalAlign(size uintptr) uintptr {
	switch {
	case size == 0:
		return 1
	case size >= 8:
		return 8
	case size >= 4:
		return 4
	case size >= 2:
		return 2
	default:
		return 1
	}
}
