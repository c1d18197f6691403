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

// Package freelist implements a segregated free-list adaptor over a base
// allocator: requests whose layout falls within a configured band are served
// from a cache of previously-freed blocks instead of reaching the base
// allocator at all.
package freelist

import (
	"fmt"
	"unsafe"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/dbg"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

// Params configures the managed band and the cache's size cap.
//
// A request is managed — served from the cache rather than forwarded to the
// base allocator — iff Tolerance.Size <= req.Size <= Target.Size and
// Tolerance.Align <= req.Align <= Target.Align. The upper bound on the
// alignment side is Target.Align, not Target.Size: an earlier draft of this
// predicate used Target.Size there, which let a request with alignment
// between the two sizes wrongly fall in-band.
type Params struct {
	Target    allocator.Layout
	Tolerance allocator.Layout
	// Limit caps how many freed blocks the cache holds onto; 0 means
	// unbounded. Once the cap is hit, Deallocate bypasses straight to the
	// base allocator instead of growing the cache further.
	Limit int
}

// minLayout is the smallest layout a managed block may have: freed blocks
// are threaded into a singly-linked list by overwriting their first
// pointer-sized word, so the target layout must have room for that word at
// the required alignment.
var minLayout = allocator.Layout{
	Size:  uintptr(xunsafe.PointerSize),
	Align: uintptr(xunsafe.PointerAlign),
}

// NewParams validates and returns a Params. It panics on an invalid band —
// target too small to hold the cache's link pointer, or tolerance outside
// [0, target] on either axis — since a bad band is a configuration defect,
// not a runtime failure a caller should have to handle.
func NewParams(target, tolerance allocator.Layout, limit int) Params {
	if target.Size < minLayout.Size || target.Align < minLayout.Align {
		panic(fmt.Sprintf("freelist: target layout %v is too small to hold a cache link (minimum %v)", target, minLayout))
	}
	if tolerance.Size > target.Size || tolerance.Align > target.Align {
		panic(fmt.Sprintf("freelist: tolerance %v exceeds target %v", tolerance, target))
	}
	if limit < 0 {
		panic("freelist: limit must be >= 0")
	}
	return Params{Target: target, Tolerance: tolerance, Limit: limit}
}

func (p Params) manages(l allocator.Layout) bool {
	return p.Tolerance.Size <= l.Size && l.Size <= p.Target.Size &&
		p.Tolerance.Align <= l.Align && l.Align <= p.Target.Align
}

// Freelist is a single-goroutine segregated free-list adaptor. The zero
// value is not usable; construct one with New.
type Freelist struct {
	_ xunsafe.NoCopy

	base   allocator.Fallbackable
	params Params

	head unsafe.Pointer
	len  int
}

// New returns a Freelist that caches blocks matching params, delegating
// everything else to base.
func New(params Params, base allocator.Fallbackable) *Freelist {
	return &Freelist{base: base, params: params}
}

// Len reports how many freed blocks are currently cached.
func (f *Freelist) Len() int { return f.len }

func (f *Freelist) limitReached() bool {
	return f.params.Limit > 0 && f.len >= f.params.Limit
}

func (f *Freelist) pop() (allocator.Block, bool) {
	if f.head == nil {
		return allocator.Block{}, false
	}
	blk := allocator.Block{Ptr: f.head, Len: f.params.Target.Size}
	f.head = *(*unsafe.Pointer)(f.head)
	f.len--
	return blk, true
}

// Allocate implements allocator.Allocator.
func (f *Freelist) Allocate(l allocator.Layout) (allocator.Block, error) {
	if !f.params.manages(l) {
		return f.base.Allocate(l)
	}
	if blk, ok := f.pop(); ok {
		dbg.Log(f, "allocate", "%v -> cached %p", l, blk.Ptr)
		return blk, nil
	}
	return f.base.Allocate(f.params.Target)
}

// AllocateZeroed implements allocator.Allocator.
func (f *Freelist) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	if !f.params.manages(l) {
		return f.base.AllocateZeroed(l)
	}
	if blk, ok := f.pop(); ok {
		xunsafe.Clear(blk.Ptr, blk.Len)
		return blk, nil
	}
	return f.base.AllocateZeroed(f.params.Target)
}

// Deallocate implements allocator.Allocator. A block only re-enters the
// cache if it was originally handed out with the target layout and the
// cache is under its cap; otherwise it bypasses to base with the caller's
// original layout, never the target — base never sees a layout it didn't
// itself allocate for.
func (f *Freelist) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	if f.limitReached() || !f.params.manages(l) {
		f.base.Deallocate(ptr, l)
		return
	}
	*(*unsafe.Pointer)(ptr) = f.head
	f.head = ptr
	f.len++
	dbg.Log(f, "deallocate", "%v at %p cached (len=%d)", l, ptr, f.len)
}

// Grow implements allocator.Allocator. If the old layout was managed, the
// base allocator is told the layout it actually handed out (Target), not
// the layout the caller requested — a managed block is always target-sized
// underneath, whatever the caller used to describe it.
func (f *Freelist) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if f.params.manages(old) {
		old = f.params.Target
	}
	return f.base.Grow(ptr, old, new)
}

// GrowZeroed implements allocator.Allocator.
func (f *Freelist) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if f.params.manages(old) {
		old = f.params.Target
	}
	return f.base.GrowZeroed(ptr, old, new)
}

// Shrink implements allocator.Allocator. When both the old and new layouts
// fall in the managed band the underlying block is already the right size
// (Target), so this is a no-op that just relabels the block's advertised
// length.
func (f *Freelist) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	managedOld := f.params.manages(old)
	if managedOld && f.params.manages(new) {
		return allocator.Block{Ptr: ptr, Len: f.params.Target.Size}, nil
	}
	if managedOld {
		old = f.params.Target
	}
	return f.base.Shrink(ptr, old, new)
}

// HasAllocated implements allocator.Fallbackable. The free-list only claims
// layouts within its own managed band; it never consults base, since base
// (typically a shared arena) cannot distinguish which of several sibling
// free-lists over it actually served a given out-of-band block.
func (f *Freelist) HasAllocated(_ unsafe.Pointer, l allocator.Layout) bool {
	return f.params.manages(l)
}

// AllowsFallback implements allocator.Fallbackable: a managed layout claims
// sole ownership of its band; anything else defers to the base allocator's
// own policy.
func (f *Freelist) AllowsFallback(l allocator.Layout) bool {
	if f.params.manages(l) {
		return false
	}
	return f.base.AllowsFallback(l)
}
