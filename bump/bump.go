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

// Package bump implements a stack-discipline arena over a caller-supplied
// buffer: Allocate bumps a cursor forward, Deallocate only reclaims space
// when it releases the most recent live allocation, and Close verifies every
// allocation was eventually released.
//
// Arena is the single-goroutine default. Shared is an opt-in variant safe
// for concurrent use, at the cost of never reclaiming space on Shrink.
package bump

import (
	"fmt"
	"unsafe"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/dbg"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

// Arena is a single-goroutine bump allocator over buf. The zero Arena is not
// usable; construct one with New.
type Arena struct {
	_ xunsafe.NoCopy

	// buf is the caller-supplied backing storage. Keeping it here, rather
	// than just a base pointer, is what keeps the backing array reachable
	// for the garbage collector for as long as the Arena itself is.
	buf  []byte
	base unsafe.Pointer

	used uintptr
	live int64
}

// New returns an Arena that carves allocations out of buf. The caller
// retains ownership of buf's lifetime; the Arena only borrows it.
func New(buf []byte) *Arena {
	return &Arena{buf: buf, base: unsafe.Pointer(unsafe.SliceData(buf))}
}

// Len returns the capacity of the arena's backing buffer.
func (a *Arena) Len() int { return len(a.buf) }

// Used returns the number of bytes currently committed, including padding.
func (a *Arena) Used() int { return int(a.used) }

// Live returns the number of outstanding allocations.
func (a *Arena) Live() int { return int(a.live) }

// Close panics if any allocation from this arena is still live — a
// non-empty arena at close time is a fatal defect, not a recoverable error,
// the same as the original's Drop assertion. Go has no destructors, so
// unlike the allocator this module is modeled on, nothing enforces that
// callers invoke Close — but any caller that does gets the same abort.
func (a *Arena) Close() error {
	if a.live != 0 {
		panic(fmt.Sprintf("bump: arena closed with %d live allocation(s)", a.live))
	}
	return nil
}

func (a *Arena) cursor() xunsafe.Addr {
	return xunsafe.Of(a.base).Add(a.used)
}

func (a *Arena) end() xunsafe.Addr {
	return xunsafe.Of(a.base).Add(uintptr(len(a.buf)))
}

// Allocate implements allocator.Allocator.
func (a *Arena) Allocate(l allocator.Layout) (allocator.Block, error) {
	if l.Size == 0 {
		// A zero-size layout never reserves space or counts against Close;
		// there is nothing to deallocate.
		aligned := allocator.AlignUp(uintptr(a.cursor()), l.Align)
		dbg.Log(a, "allocate", "%v -> dangling %#x", l, aligned)
		return allocator.Block{Ptr: unsafe.Pointer(uintptr(aligned)), Len: 0}, nil //nolint:govet
	}

	start := uintptr(a.cursor())
	aligned := allocator.AlignUp(start, l.Align)
	newUsed := (aligned - uintptr(a.base)) + l.Size
	if newUsed > uintptr(len(a.buf)) {
		return allocator.Block{}, allocator.Fail("bump", l)
	}
	a.used = newUsed
	a.live++
	ptr := unsafe.Pointer(uintptr(aligned)) //nolint:govet
	dbg.Log(a, "allocate", "%v -> %p", l, ptr)
	return allocator.Block{Ptr: ptr, Len: l.Size}, nil
}

// AllocateZeroed implements allocator.Allocator.
func (a *Arena) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	blk, err := a.Allocate(l)
	if err != nil {
		return blk, err
	}
	if blk.Len > 0 {
		xunsafe.Clear(blk.Ptr, blk.Len)
	}
	return blk, nil
}

// isTop reports whether the block [ptr, ptr+l.AlignedSize()) is the most
// recently allocated, and thus releasable in place.
func (a *Arena) isTop(ptr unsafe.Pointer, l allocator.Layout) bool {
	top := xunsafe.Of(ptr).Add(l.AlignedSize())
	return top == a.cursor()
}

// Deallocate implements allocator.Allocator. Space is only reclaimed when
// ptr is the top of the stack; otherwise the live count still drops, but the
// bytes stay committed: a later top-of-stack release only rewinds the cursor
// to the start of the block it releases, never past a buried one.
func (a *Arena) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	if l.Size == 0 {
		return
	}
	if a.live <= 0 {
		panic("bump: Deallocate called with no live allocations")
	}
	if a.isTop(ptr, l) {
		a.used = xunsafe.Of(ptr).Sub(xunsafe.Of(a.base))
	}
	a.live--
	dbg.Log(a, "deallocate", "%v at %p", l, ptr)
}

// Grow implements allocator.Allocator. It only succeeds when ptr is the top
// of the stack and the new alignment doesn't exceed the old: growth of a
// buried block is rejected even when space exists past the end of the
// buffer, the same deliberate simplicity/cost tradeoff stacked.rs makes with
// its CAS-on-top-offset scheme — there is no reallocate-elsewhere fallback
// here. A caller that wants that behavior composes this arena with
// fallback.Fallbacked instead.
func (a *Arena) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if new.Size < old.Size {
		panic("bump: Grow requires new.Size >= old.Size")
	}
	if new.Align > old.Align || !a.isTop(ptr, old) {
		return allocator.Block{}, allocator.Fail("bump", new)
	}
	extra := new.AlignedSize() - old.AlignedSize()
	if uintptr(a.cursor())+extra > uintptr(a.end()) {
		return allocator.Block{}, allocator.Fail("bump", new)
	}
	a.used += extra
	return allocator.Block{Ptr: ptr, Len: new.Size}, nil
}

// GrowZeroed implements allocator.Allocator.
func (a *Arena) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	blk, err := a.Grow(ptr, old, new)
	if err != nil {
		return blk, err
	}
	if new.Size > old.Size {
		xunsafe.Clear(xunsafe.Add(blk.Ptr, old.Size), new.Size-old.Size)
	}
	return blk, nil
}

// Shrink implements allocator.Allocator. Shrinking to a wider alignment than
// the original block held is rejected: the bump arena never moves a block on
// Shrink, so it cannot re-align it.
func (a *Arena) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if new.Size > old.Size {
		panic("bump: Shrink requires new.Size <= old.Size")
	}
	if new.Align > old.Align {
		return allocator.Block{}, allocator.Fail("bump", new)
	}
	if a.isTop(ptr, old) {
		a.used -= old.AlignedSize() - new.AlignedSize()
	}
	return allocator.Block{Ptr: ptr, Len: new.Size}, nil
}

// HasAllocated implements allocator.Fallbackable: true for any address
// within the arena's backing buffer.
func (a *Arena) HasAllocated(ptr unsafe.Pointer, _ allocator.Layout) bool {
	addr := xunsafe.Of(ptr)
	return addr >= xunsafe.Of(a.base) && addr < a.end()
}

// AllowsFallback implements allocator.Fallbackable. A bump arena always
// permits a caller to fall back to a secondary allocator once it is full.
func (a *Arena) AllowsFallback(allocator.Layout) bool { return true }
