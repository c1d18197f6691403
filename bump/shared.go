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

package bump

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/dbg"
	"github.com/go-allocator/allocator/internal/sync2"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

// Shared is the concurrent counterpart to Arena: the bump cursor is updated
// with a compare-and-swap retry loop and the live count with atomic adds
// instead of plain arithmetic, mirroring the original allocator's atomic-by-default stack
// arena.
//
// Grow extends a block in place with a single compare-and-swap against the
// cursor, exactly like the original's grow_raw: it only succeeds when ptr is
// still the top of the stack at the moment of the CAS, and a lost race (a
// concurrent allocation or deallocation moved the cursor first) fails the
// whole Grow rather than retrying or falling back to a fresh allocation
// elsewhere.
type Shared struct {
	_ xunsafe.NoCopy

	buf  []byte
	base unsafe.Pointer

	used atomic.Uintptr
	live atomic.Int64
}

// NewShared returns a Shared arena over buf.
func NewShared(buf []byte) *Shared {
	return &Shared{buf: buf, base: unsafe.Pointer(unsafe.SliceData(buf))}
}

// Len returns the capacity of the arena's backing buffer.
func (a *Shared) Len() int { return len(a.buf) }

// Used returns the number of bytes currently committed, including padding.
func (a *Shared) Used() int { return int(a.used.Load()) }

// Live returns the number of outstanding allocations.
func (a *Shared) Live() int { return int(a.live.Load()) }

// Close panics if any allocation from this arena is still live, the same
// fatal-defect abort Arena.Close enforces.
func (a *Shared) Close() error {
	if n := a.live.Load(); n != 0 {
		panic(fmt.Sprintf("bump: shared arena closed with %d live allocation(s)", n))
	}
	return nil
}

// Allocate implements allocator.Allocator.
func (a *Shared) Allocate(l allocator.Layout) (allocator.Block, error) {
	base := uintptr(a.base)
	if l.Size == 0 {
		aligned := allocator.AlignUp(base+a.used.Load(), l.Align)
		return allocator.Block{Ptr: unsafe.Pointer(aligned), Len: 0}, nil //nolint:govet
	}

	bufLen := uintptr(len(a.buf))
	var offset uintptr
	_, ok := sync2.UpdateUintptr(&a.used, func(old uintptr) (uintptr, bool) {
		aligned := allocator.AlignUp(base+old, l.Align)
		next := (aligned - base) + l.Size
		if next > bufLen {
			return 0, false
		}
		offset = aligned - base
		return next, true
	})
	if !ok {
		return allocator.Block{}, allocator.Fail("bump.Shared", l)
	}
	a.live.Add(1)
	ptr := unsafe.Pointer(base + offset) //nolint:govet
	dbg.Log(a, "allocate", "%v -> %p", l, ptr)
	return allocator.Block{Ptr: ptr, Len: l.Size}, nil
}

// AllocateZeroed implements allocator.Allocator.
func (a *Shared) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	blk, err := a.Allocate(l)
	if err != nil {
		return blk, err
	}
	if blk.Len > 0 {
		xunsafe.Clear(blk.Ptr, blk.Len)
	}
	return blk, nil
}

// Deallocate implements allocator.Allocator. If ptr is the current top of
// the stack, the cursor is rolled back with a CAS; a concurrent Allocate
// racing in between simply finds the cursor already past ptr and leaves it
// alone, so the rollback is conservative rather than exact under
// contention.
func (a *Shared) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	if l.Size == 0 {
		return
	}
	base := uintptr(a.base)
	start := xunsafe.Of(ptr).Sub(xunsafe.Of(a.base))
	top := start + l.AlignedSize()
	sync2.UpdateUintptr(&a.used, func(old uintptr) (uintptr, bool) {
		if old != top {
			return old, true
		}
		return start, true
	})
	a.live.Add(-1)
	dbg.Log(a, "deallocate", "%v at %p", l, unsafe.Pointer(base+start)) //nolint:govet
}

// Grow implements allocator.Allocator. It only succeeds when ptr is the top
// of the stack at the moment of a single compare-and-swap against the
// cursor, and the new alignment doesn't exceed the old — the same
// conditions Arena.Grow enforces, checked atomically instead of with plain
// arithmetic so a concurrent Allocate/Deallocate racing in cannot be
// clobbered. A lost CAS fails the Grow outright; there is no
// reallocate-elsewhere fallback here, matching stacked.rs's grow_raw.
func (a *Shared) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if new.Size < old.Size {
		panic("bump: Grow requires new.Size >= old.Size")
	}
	if new.Align > old.Align {
		return allocator.Block{}, allocator.Fail("bump.Shared", new)
	}

	start := xunsafe.Of(ptr).Sub(xunsafe.Of(a.base))
	oldEnd := start + old.AlignedSize()
	newEnd := start + new.AlignedSize()
	if newEnd > uintptr(len(a.buf)) {
		return allocator.Block{}, allocator.Fail("bump.Shared", new)
	}
	if !a.used.CompareAndSwap(oldEnd, newEnd) {
		return allocator.Block{}, allocator.Fail("bump.Shared", new)
	}
	dbg.Log(a, "grow", "%v -> %v at %p", old, new, ptr)
	return allocator.Block{Ptr: ptr, Len: new.Size}, nil
}

// GrowZeroed implements allocator.Allocator.
func (a *Shared) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	blk, err := a.Grow(ptr, old, new)
	if err != nil {
		return blk, err
	}
	if new.Size > old.Size {
		xunsafe.Clear(xunsafe.Add(blk.Ptr, old.Size), new.Size-old.Size)
	}
	return blk, nil
}

// Shrink implements allocator.Allocator. The block's address and owning
// arena never change; only the Len the caller is entitled to use shrinks.
// Unlike Arena, Shared never reclaims the freed tail, even when ptr is the
// top of the stack.
func (a *Shared) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if new.Size > old.Size {
		panic("bump: Shrink requires new.Size <= old.Size")
	}
	if new.Align > old.Align {
		return allocator.Block{}, allocator.Fail("bump.Shared", new)
	}
	return allocator.Block{Ptr: ptr, Len: new.Size}, nil
}

// HasAllocated implements allocator.Fallbackable.
func (a *Shared) HasAllocated(ptr unsafe.Pointer, _ allocator.Layout) bool {
	addr := xunsafe.Of(ptr)
	lo := xunsafe.Of(a.base)
	hi := lo.Add(uintptr(len(a.buf)))
	return addr >= lo && addr <= hi
}

// AllowsFallback implements allocator.Fallbackable.
func (a *Shared) AllowsFallback(allocator.Layout) bool { return true }
