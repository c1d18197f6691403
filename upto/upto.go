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

// Package upto implements the size-gate adaptor: it caps the layouts a base
// allocator is exposed to, rejecting anything over a configured maximum.
//
// Two variants share the gating logic but differ in what they advertise to
// whatever sits above them. UpTo only reports ownership (HasAllocated) and
// is meant for a gate nothing above will ever retry past — it does not
// satisfy allocator.Fallbackable. LimitedUpTo additionally advertises
// AllowsFallback, the shape a segregated size-class pipeline needs to route
// an oversized request to the next bucket.
package upto

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
	"github.com/go-allocator/allocator/internal/xunsafe"
)

func manages(max, l allocator.Layout) bool {
	return l.Size <= max.Size && l.Align <= max.Align
}

// UpTo gates Base to layouts within Max, without advertising
// AllowsFallback. Use it when it terminates a composed tree — nothing above
// it is expected to retry elsewhere on failure.
type UpTo struct {
	_ xunsafe.NoCopy

	Max  allocator.Layout
	Base allocator.Allocator
}

// New returns an UpTo gate gating base to layouts within max.
func New(max allocator.Layout, base allocator.Allocator) *UpTo {
	return &UpTo{Max: max, Base: base}
}

// Allocate implements allocator.Allocator.
func (u *UpTo) Allocate(l allocator.Layout) (allocator.Block, error) {
	if !manages(u.Max, l) {
		return allocator.Block{}, allocator.Fail("upto", l)
	}
	return u.Base.Allocate(l)
}

// AllocateZeroed implements allocator.Allocator.
func (u *UpTo) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	if !manages(u.Max, l) {
		return allocator.Block{}, allocator.Fail("upto", l)
	}
	return u.Base.AllocateZeroed(l)
}

// Deallocate implements allocator.Allocator.
func (u *UpTo) Deallocate(ptr unsafe.Pointer, l allocator.Layout) {
	u.Base.Deallocate(ptr, l)
}

// Grow implements allocator.Allocator.
func (u *UpTo) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if !manages(u.Max, new) {
		return allocator.Block{}, allocator.Fail("upto", new)
	}
	return u.Base.Grow(ptr, old, new)
}

// GrowZeroed implements allocator.Allocator.
func (u *UpTo) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	if !manages(u.Max, new) {
		return allocator.Block{}, allocator.Fail("upto", new)
	}
	return u.Base.GrowZeroed(ptr, old, new)
}

// Shrink implements allocator.Allocator.
func (u *UpTo) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return u.Base.Shrink(ptr, old, new)
}

// HasAllocated reports whether l falls within this gate's maximum. It does
// not consult Base — a gate is queried for routing purposes before anything
// is known about which leaf actually holds the memory.
func (u *UpTo) HasAllocated(_ unsafe.Pointer, l allocator.Layout) bool {
	return manages(u.Max, l)
}
