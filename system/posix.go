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

package system

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

// Posix is a direct translation of the original allocator's libc leaf: it
// calls malloc/free/posix_memalign/realloc through cgo instead of going
// through the Go heap, for callers that specifically want process-heap
// memory (e.g. to hand a block across a C boundary).
type Posix struct{ _ xunsafe.NoCopy }

func isNativeAlignPosix(align uintptr) bool { return align <= nativeAlign }

// Allocate implements allocator.Allocator.
func (p Posix) Allocate(l allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.Posix", l, func() (allocator.Block, error) {
		return posixAllocate(l)
	})
}

func posixAllocate(l allocator.Layout) (allocator.Block, error) {
	if l.Size == 0 {
		return allocator.Block{Ptr: unsafe.Pointer(uintptr(l.Align)), Len: 0}, nil //nolint:govet
	}
	if !isNativeAlignPosix(l.Align) {
		var ptr unsafe.Pointer
		if rc := C.posix_memalign(&ptr, C.size_t(l.Align), C.size_t(l.Size)); rc != 0 || ptr == nil {
			return allocator.Block{}, allocator.Fail("system.Posix", l)
		}
		return allocator.Block{Ptr: ptr, Len: l.Size}, nil
	}
	ptr := C.malloc(C.size_t(l.Size))
	if ptr == nil {
		return allocator.Block{}, allocator.Fail("system.Posix", l)
	}
	return allocator.Block{Ptr: ptr, Len: l.Size}, nil
}

// AllocateZeroed implements allocator.Allocator.
func (p Posix) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.Posix", l, func() (allocator.Block, error) {
		blk, err := posixAllocate(l)
		if err != nil {
			return blk, err
		}
		if blk.Len > 0 {
			xunsafe.Clear(blk.Ptr, blk.Len)
		}
		return blk, nil
	})
}

// Deallocate implements allocator.Allocator.
func (p Posix) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	recoverVoid(func() {
		if l.Size != 0 {
			C.free(ptr)
		}
	})
}

// Grow implements allocator.Allocator. When both layouts are natively
// aligned this is a real realloc; otherwise it allocates fresh, copies, and
// frees the old block, since realloc cannot change alignment.
func (p Posix) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.Posix", new, func() (allocator.Block, error) {
		if new.Size < old.Size {
			panic("system: Grow requires new.Size >= old.Size")
		}
		if old.Size != 0 && isNativeAlignPosix(old.Align) && isNativeAlignPosix(new.Align) {
			p2 := C.realloc(ptr, C.size_t(new.Size))
			if p2 == nil {
				return allocator.Block{}, allocator.Fail("system.Posix", new)
			}
			return allocator.Block{Ptr: p2, Len: new.Size}, nil
		}
		blk, err := posixAllocate(new)
		if err != nil {
			return allocator.Block{}, err
		}
		xunsafe.Copy(blk.Ptr, ptr, old.Size)
		if old.Size != 0 {
			C.free(ptr)
		}
		return blk, nil
	})
}

// GrowZeroed implements allocator.Allocator.
func (p Posix) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	blk, err := p.Grow(ptr, old, new)
	if err != nil {
		return blk, err
	}
	if new.Size > old.Size {
		xunsafe.Clear(xunsafe.Add(blk.Ptr, old.Size), new.Size-old.Size)
	}
	return blk, nil
}

// Shrink implements allocator.Allocator, symmetric to Grow.
func (p Posix) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.Posix", new, func() (allocator.Block, error) {
		if new.Size > old.Size {
			panic("system: Shrink requires new.Size <= old.Size")
		}
		if new.Size != 0 && isNativeAlignPosix(old.Align) && isNativeAlignPosix(new.Align) {
			p2 := C.realloc(ptr, C.size_t(new.Size))
			if p2 == nil {
				return allocator.Block{}, allocator.Fail("system.Posix", new)
			}
			return allocator.Block{Ptr: p2, Len: new.Size}, nil
		}
		blk, err := posixAllocate(new)
		if err != nil {
			return allocator.Block{}, err
		}
		xunsafe.Copy(blk.Ptr, ptr, new.Size)
		if old.Size != 0 {
			C.free(ptr)
		}
		return blk, nil
	})
}
