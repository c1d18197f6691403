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

// Package fallback implements the primary/secondary routing combinator:
// Allocate tries the primary allocator first and only reaches the secondary
// when the primary fails and explicitly allows it; Deallocate, Grow and
// Shrink go to whichever side reports owning the block.
package fallback

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/dbg"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

// Fallbacked routes requests to Primary first, falling back to Secondary
// only when Primary fails and Primary.AllowsFallback(layout) is true.
type Fallbacked struct {
	_ xunsafe.NoCopy

	Primary   allocator.Fallbackable
	Secondary allocator.Fallbackable
}

// New returns a Fallbacked combinator over primary and secondary.
func New(primary, secondary allocator.Fallbackable) *Fallbacked {
	return &Fallbacked{Primary: primary, Secondary: secondary}
}

// Allocate implements allocator.Allocator.
func (f *Fallbacked) Allocate(l allocator.Layout) (allocator.Block, error) {
	if blk, err := f.Primary.Allocate(l); err == nil {
		return blk, nil
	}
	if !f.Primary.AllowsFallback(l) {
		return allocator.Block{}, allocator.Fail("fallback", l)
	}
	dbg.Log(f, "allocate", "%v falling back to secondary", l)
	return f.Secondary.Allocate(l)
}

// AllocateZeroed implements allocator.Allocator.
func (f *Fallbacked) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	if blk, err := f.Primary.AllocateZeroed(l); err == nil {
		return blk, nil
	}
	if !f.Primary.AllowsFallback(l) {
		return allocator.Block{}, allocator.Fail("fallback", l)
	}
	return f.Secondary.AllocateZeroed(l)
}

// Deallocate implements allocator.Allocator, routing by whichever side
// reports ownership of ptr.
func (f *Fallbacked) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	if f.Primary.HasAllocated(ptr, l) {
		f.Primary.Deallocate(ptr, l)
		return
	}
	f.Secondary.Deallocate(ptr, l)
}

// Grow implements allocator.Allocator. If the primary owns the block and
// its own Grow fails, the block is moved across the fallback boundary: a
// fresh block is secured from the secondary and the old data copied into it
// before the primary's original block is released — the old block must
// never be released before the new one is safely in hand.
func (f *Fallbacked) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if f.Primary.HasAllocated(ptr, old) {
		if blk, err := f.Primary.Grow(ptr, old, new); err == nil {
			return blk, nil
		}
		if !f.Primary.AllowsFallback(new) {
			return allocator.Block{}, allocator.Fail("fallback", new)
		}
		blk, err := f.Secondary.Allocate(new)
		if err != nil {
			return allocator.Block{}, err
		}
		xunsafe.Copy(blk.Ptr, ptr, old.Size)
		f.Primary.Deallocate(ptr, old)
		return blk, nil
	}
	return f.Secondary.Grow(ptr, old, new)
}

// GrowZeroed implements allocator.Allocator, zeroing the bytes beyond
// old.Size after a successful grow or cross-over.
func (f *Fallbacked) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if f.Primary.HasAllocated(ptr, old) {
		if blk, err := f.Primary.GrowZeroed(ptr, old, new); err == nil {
			return blk, nil
		}
		if !f.Primary.AllowsFallback(new) {
			return allocator.Block{}, allocator.Fail("fallback", new)
		}
		blk, err := f.Secondary.AllocateZeroed(new)
		if err != nil {
			return allocator.Block{}, err
		}
		xunsafe.Copy(blk.Ptr, ptr, old.Size)
		f.Primary.Deallocate(ptr, old)
		return blk, nil
	}
	return f.Secondary.GrowZeroed(ptr, old, new)
}

// Shrink implements allocator.Allocator, symmetric to Grow: a cross-over
// copies new.Size bytes into a fresh secondary block before the primary's
// block is released.
func (f *Fallbacked) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if f.Primary.HasAllocated(ptr, old) {
		if blk, err := f.Primary.Shrink(ptr, old, new); err == nil {
			return blk, nil
		}
		if !f.Primary.AllowsFallback(new) {
			return allocator.Block{}, allocator.Fail("fallback", new)
		}
		blk, err := f.Secondary.Allocate(new)
		if err != nil {
			return allocator.Block{}, err
		}
		xunsafe.Copy(blk.Ptr, ptr, new.Size)
		f.Primary.Deallocate(ptr, old)
		return blk, nil
	}
	return f.Secondary.Shrink(ptr, old, new)
}

// HasAllocated implements allocator.Fallbackable.
func (f *Fallbacked) HasAllocated(ptr unsafe.Pointer, l allocator.Layout) bool {
	return f.Primary.HasAllocated(ptr, l) || f.Secondary.HasAllocated(ptr, l)
}

// AllowsFallback implements allocator.Fallbackable: a caller above this
// combinator may only keep retrying elsewhere if both sides would allow it,
// since either one might be the side that ends up owning the block.
func (f *Fallbacked) AllowsFallback(l allocator.Layout) bool {
	return f.Primary.AllowsFallback(l) && f.Secondary.AllowsFallback(l)
}
