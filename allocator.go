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

package allocator

import "unsafe"

// Allocator is the operation set every composable block in this module
// implements. A zero-size Layout is legal: implementations return a
// dangling-but-aligned Block rather than failing.
type Allocator interface {
	// Allocate returns a block whose address is aligned to l.Align and whose
	// capacity is at least l.Size, or ErrAllocationFailed.
	Allocate(l Layout) (Block, error)

	// AllocateZeroed is like Allocate, but the returned block's memory is
	// zeroed.
	AllocateZeroed(l Layout) (Block, error)

	// Deallocate releases a block previously returned by this allocator (or
	// by an allocator this one delegates to) for a layout fit-compatible
	// with l.
	//
	// ptr must have been returned by a call to Allocate/Grow/Shrink on this
	// allocator with a layout l fits. Violating this is a defect, not a recoverable
	// error: implementations may panic.
	Deallocate(ptr unsafe.Pointer, l Layout)

	// Grow returns a block of at least new.Size, copying the first old.Size
	// bytes from ptr. new.Size must be >= old.Size. On failure the original
	// block remains live and owned by this allocator.
	Grow(ptr unsafe.Pointer, old, new Layout) (Block, error)

	// GrowZeroed is like Grow, but the bytes beyond old.Size are zeroed.
	GrowZeroed(ptr unsafe.Pointer, old, new Layout) (Block, error)

	// Shrink returns a block of at least new.Size, preserving the first
	// new.Size bytes. new.Size must be <= old.Size. On failure the original
	// block remains live and owned by this allocator.
	Shrink(ptr unsafe.Pointer, old, new Layout) (Block, error)
}

// Fallbackable is the extension trait combinators use to route
// deallocate/grow/shrink calls across a composed tree of allocators.
//
// Implementations must satisfy: HasAllocated(ptr, l) is true if and only if
// this allocator (directly or transitively) currently owns the block at ptr
// allocated with a layout fit-compatible with l, or AllowsFallback(l) is
// false (i.e. the allocator claims sole ownership of that layout class even
// before seeing a specific pointer).
type Fallbackable interface {
	Allocator

	// HasAllocated reports whether this allocator owns the block at ptr,
	// which was obtained with a layout fit-compatible with l.
	HasAllocated(ptr unsafe.Pointer, l Layout) bool

	// AllowsFallback reports whether a caller is permitted to try another
	// allocator after this one fails to serve l. It is a pure function of l.
	AllowsFallback(l Layout) bool
}
