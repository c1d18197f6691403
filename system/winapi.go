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

package system

import (
	"unsafe"

	"golang.org/x/sys/windows"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

// winHeaderSize is the size of the hidden header word an over-aligned
// allocation stashes just before the address it hands back, so Deallocate
// and the realloc paths can recover the real HeapAlloc pointer to free or
// extend. Unlike System, WinApi talks to a real process heap that insists
// on getting back exactly the pointer it gave out, so this header cannot be
// dropped the way System's can.
const winHeaderSize = uintptr(xunsafe.PointerSize)

// WinApi is a leaf over the Windows process heap
// (golang.org/x/sys/windows's HeapAlloc/HeapReAlloc/HeapFree), translating
// the original allocator's hidden-header-word scheme for over-aligned
// requests verbatim: this is a real host heap, so the technique applies
// without the adjustments System needed.
type WinApi struct{ _ xunsafe.NoCopy }

// winNativeAlign is MEMORY_ALLOCATION_ALIGNMENT: 16 bytes on every Windows
// target x/sys/windows currently supports.
const winNativeAlign = 16

func isNativeAlignWin(align uintptr) bool {
	return align <= winNativeAlign
}

func processHeap() (windows.Handle, error) {
	return windows.GetProcessHeap()
}

func winAllocate(l allocator.Layout, flags uint32) (allocator.Block, error) {
	if l.Size == 0 {
		return allocator.Block{Ptr: unsafe.Pointer(uintptr(l.Align)), Len: 0}, nil //nolint:govet
	}
	heap, err := processHeap()
	if err != nil {
		return allocator.Block{}, allocator.Fail("system.WinApi", l)
	}
	if isNativeAlignWin(l.Align) {
		addr, err := windows.HeapAlloc(heap, flags, l.Size)
		if err != nil || addr == 0 {
			return allocator.Block{}, allocator.Fail("system.WinApi", l)
		}
		return allocator.Block{Ptr: unsafe.Pointer(addr), Len: l.Size}, nil //nolint:govet
	}

	total := l.Size + l.Align + winHeaderSize
	addr, err := windows.HeapAlloc(heap, flags, total)
	if err != nil || addr == 0 {
		return allocator.Block{}, allocator.Fail("system.WinApi", l)
	}
	dataStart := addr + winHeaderSize
	aligned := allocator.AlignUp(dataStart, l.Align)
	offset := aligned - addr
	*(*uintptr)(unsafe.Pointer(aligned - winHeaderSize)) = offset //nolint:govet
	return allocator.Block{Ptr: unsafe.Pointer(aligned), Len: total - offset}, nil //nolint:govet
}

func winOriginalPtr(ptr unsafe.Pointer, align uintptr) uintptr {
	if isNativeAlignWin(align) {
		return uintptr(ptr)
	}
	offset := *(*uintptr)(unsafe.Pointer(uintptr(ptr) - winHeaderSize)) //nolint:govet
	return uintptr(ptr) - offset
}

// Allocate implements allocator.Allocator.
func (w WinApi) Allocate(l allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.WinApi", l, func() (allocator.Block, error) {
		return winAllocate(l, 0)
	})
}

// AllocateZeroed implements allocator.Allocator.
func (w WinApi) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.WinApi", l, func() (allocator.Block, error) {
		return winAllocate(l, windows.HEAP_ZERO_MEMORY)
	})
}

// Deallocate implements allocator.Allocator.
func (w WinApi) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	recoverVoid(func() {
		if l.Size == 0 {
			return
		}
		heap, err := processHeap()
		if err != nil {
			return
		}
		orig := winOriginalPtr(ptr, l.Align)
		_ = windows.HeapFree(heap, 0, orig)
	})
}

func winRealloc(ptr unsafe.Pointer, old, new allocator.Layout, keep uintptr, flags uint32) (allocator.Block, error) {
	if isNativeAlignWin(old.Align) && isNativeAlignWin(new.Align) {
		heap, err := processHeap()
		if err != nil {
			return allocator.Block{}, allocator.Fail("system.WinApi", new)
		}
		addr, err := windows.HeapReAlloc(heap, flags, uintptr(ptr), new.Size)
		if err != nil || addr == 0 {
			return allocator.Block{}, allocator.Fail("system.WinApi", new)
		}
		return allocator.Block{Ptr: unsafe.Pointer(addr), Len: new.Size}, nil //nolint:govet
	}

	blk, err := winAllocate(new, flags)
	if err != nil {
		return allocator.Block{}, err
	}
	xunsafe.Copy(blk.Ptr, ptr, keep)
	heap, herr := processHeap()
	if herr == nil {
		_ = windows.HeapFree(heap, 0, winOriginalPtr(ptr, old.Align))
	}
	return blk, nil
}

// Grow implements allocator.Allocator.
func (w WinApi) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.WinApi", new, func() (allocator.Block, error) {
		if new.Size < old.Size {
			panic("system: Grow requires new.Size >= old.Size")
		}
		return winRealloc(ptr, old, new, old.Size, 0)
	})
}

// GrowZeroed implements allocator.Allocator.
func (w WinApi) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.WinApi", new, func() (allocator.Block, error) {
		if new.Size < old.Size {
			panic("system: GrowZeroed requires new.Size >= old.Size")
		}
		return winRealloc(ptr, old, new, old.Size, windows.HEAP_ZERO_MEMORY)
	})
}

// Shrink implements allocator.Allocator.
func (w WinApi) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return recoverBlock("system.WinApi", new, func() (allocator.Block, error) {
		if new.Size > old.Size {
			panic("system: Shrink requires new.Size <= old.Size")
		}
		return winRealloc(ptr, old, new, new.Size, 0)
	})
}
