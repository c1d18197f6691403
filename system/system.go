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

// Package system provides the leaf allocators every composed tree in this
// module eventually bottoms out on: System, the portable Go-heap-backed
// default, plus OS-specific leaves (Posix, WinApi) and two terminators used
// in tests and degenerate configurations (Impossible, NonWorking).
//
// System, Posix and WinApi recover from any panic raised while they talk to
// the runtime, cgo, or a syscall and convert it to ErrAllocationFailed. The
// two terminators are the exception: Impossible panics on every method, and
// NonWorking panics on Deallocate.
package system

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/dbg"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

// nativeAlign is the largest alignment for which allocateHeap first tries a
// plain make([]byte, n), keeping it only if the address it gets back is
// suitably aligned. It mirrors the native-alignment threshold
// posix.rs/winapi.rs gate their header-word scheme on: twice a pointer's
// size, which covers every native C allocator's default guarantee.
const nativeAlign = uintptr(2 * xunsafe.PointerSize)

// System is the portable default leaf. Go has no user-reachable "process
// heap" call a library can safely bypass the garbage collector with, so this
// leaf allocates fresh []byte backing arrays from the Go heap instead.
//
// That makes Deallocate, Grow, and Shrink here advisory rather than
// mechanical: there is no free() to call, so releasing a block just drops
// the caller's reference and lets the collector reclaim it whenever nothing
// else keeps it alive. Go's garbage collector locates the heap object
// containing any live pointer via its span metadata, interior pointers
// included, so the Block.Ptr a caller retains — even the aligned pointer
// into an over-allocated buffer below — is by itself enough to keep the
// whole backing array alive. No side allocation or hidden owner reference is
// needed the way a multi-chunk arena's separately-owned chunks would.
type System struct{ _ xunsafe.NoCopy }

// Allocate implements allocator.Allocator.
func (s System) Allocate(l allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.System", l, func() (allocator.Block, error) {
		return allocateHeap(l)
	})
}

// AllocateZeroed implements allocator.Allocator. make([]byte, n) always
// returns zeroed memory, so this is identical to Allocate.
func (s System) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	return s.Allocate(l)
}

func allocateHeap(l allocator.Layout) (allocator.Block, error) {
	if l.Size == 0 {
		// No backing storage is needed; return a non-nil, correctly
		// aligned, never-dereferenced sentinel, same as the dangling
		// pointer the original returns for a zero-size layout.
		return allocator.Block{Ptr: unsafe.Pointer(uintptr(l.Align)), Len: 0}, nil //nolint:govet
	}

	if l.Align <= nativeAlign {
		buf := make([]byte, l.Size)
		ptr := unsafe.Pointer(unsafe.SliceData(buf))
		if uintptr(ptr)&(l.Align-1) == 0 {
			return allocator.Block{Ptr: ptr, Len: l.Size}, nil
		}
	}

	// Over-aligned request, or a small block the heap placed below the
	// requested alignment: over-allocate by l.Align and hand back a
	// pointer inside the buffer at the next aligned offset.
	buf := make([]byte, l.Size+l.Align)
	base := unsafe.Pointer(unsafe.SliceData(buf))
	pad := allocator.AlignUp(uintptr(base), l.Align) - uintptr(base)
	return allocator.Block{Ptr: xunsafe.Add(base, pad), Len: l.Size}, nil
}

// Deallocate implements allocator.Allocator. Nothing to do: the backing
// array is reclaimed by the garbage collector once nothing references it.
func (s System) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	dbg.Log(s, "deallocate", "%v at %p (advisory, no-op)", l, ptr)
}

// Grow implements allocator.Allocator: always a fresh allocation plus copy,
// since there is no realloc-style primitive for Go heap memory.
func (s System) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.System", new, func() (allocator.Block, error) {
		if new.Size < old.Size {
			panic("system: Grow requires new.Size >= old.Size")
		}
		blk, err := allocateHeap(new)
		if err != nil {
			return allocator.Block{}, err
		}
		xunsafe.Copy(blk.Ptr, ptr, old.Size)
		return blk, nil
	})
}

// GrowZeroed implements allocator.Allocator. Identical to Grow: the fresh
// buffer from allocateHeap is already zeroed beyond what gets copied into
// it.
func (s System) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return s.Grow(ptr, old, new)
}

// Shrink implements allocator.Allocator. The block's address never changes;
// only the advertised length shrinks. A shrink that would need a wider
// alignment than the original block held is rejected, same as bump.Arena.
func (s System) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.System", new, func() (allocator.Block, error) {
		if new.Size > old.Size {
			panic("system: Shrink requires new.Size <= old.Size")
		}
		if new.Align > old.Align {
			return allocator.Block{}, allocator.Fail("system.System", new)
		}
		return allocator.Block{Ptr: ptr, Len: new.Size}, nil
	})
}
