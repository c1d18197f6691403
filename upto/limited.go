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

package upto

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

// LimitedUpTo is UpTo plus AllowsFallback, making it a full
// allocator.Fallbackable. This is the gate a segregated size-class pipeline
// composes with fallback.Fallbacked: a request over the gate's maximum is
// explicitly allowed to climb to the next bucket.
type LimitedUpTo struct {
	_ xunsafe.NoCopy

	Max  allocator.Layout
	Base allocator.Fallbackable
}

// NewLimited returns a LimitedUpTo gate gating base to layouts within max.
func NewLimited(max allocator.Layout, base allocator.Fallbackable) *LimitedUpTo {
	return &LimitedUpTo{Max: max, Base: base}
}

// Allocate implements allocator.Allocator.
func (u *LimitedUpTo) Allocate(l allocator.Layout) (allocator.Block, error) {
	if !manages(u.Max, l) {
		return allocator.Block{}, allocator.Fail("upto", l)
	}
	return u.Base.Allocate(l)
}

// AllocateZeroed implements allocator.Allocator.
func (u *LimitedUpTo) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	if !manages(u.Max, l) {
		return allocator.Block{}, allocator.Fail("upto", l)
	}
	return u.Base.AllocateZeroed(l)
}

// Deallocate implements allocator.Allocator.
func (u *LimitedUpTo) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	u.Base.Deallocate(ptr, l)
}

// Grow implements allocator.Allocator.
func (u *LimitedUpTo) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if !manages(u.Max, new) {
		return allocator.Block{}, allocator.Fail("upto", new)
	}
	return u.Base.Grow(ptr, old, new)
}

// GrowZeroed implements allocator.Allocator.
func (u *LimitedUpTo) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if !manages(u.Max, new) {
		return allocator.Block{}, allocator.Fail("upto", new)
	}
	return u.Base.GrowZeroed(ptr, old, new)
}

// Shrink implements allocator.Allocator.
func (u *LimitedUpTo) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return u.Base.Shrink(ptr, old, new)
}

// HasAllocated implements allocator.Fallbackable: this gate claims a layout
// iff it falls within its own maximum. It never consults Base — a gate
// sharing its base allocator with a sibling gate (as the segregated tower
// does) must not claim a block the base happens to hold for that sibling.
func (u *LimitedUpTo) HasAllocated(_ unsafe.Pointer, l allocator.Layout) bool {
	return manages(u.Max, l)
}

// AllowsFallback implements allocator.Fallbackable: fallback is permitted
// exactly when the request is oversized for this gate — the negation of
// "manages".
func (u *LimitedUpTo) AllowsFallback(l allocator.Layout) bool {
	return !manages(u.Max, l)
}
