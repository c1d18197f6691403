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

package system

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
)

// Impossible is an allocator that must never actually be called: every
// method panics. The original allocator expressed this with the uninhabited
// `!` type, making a call to Impossible a compile-time impossibility; Go has
// no uninhabited type, so the closest equivalent is a type whose every
// method is unreachable in a correct program and panics loudly if reached
// anyway.
//
// Use it to wire a branch of a composed tree that a particular build
// configuration guarantees is never taken (for instance, the secondary side
// of a Fallbacked that should never actually need to fall back).
type Impossible struct{}

// Allocate implements allocator.Allocator.
func (Impossible) Allocate(allocator.Layout) (allocator.Block, error) {
	panic("system: Impossible.Allocate called")
}

// AllocateZeroed implements allocator.Allocator.
func (Impossible) AllocateZeroed(allocator.Layout) (allocator.Block, error) {
	panic("system: Impossible.AllocateZeroed called")
}

// Deallocate implements allocator.Allocator.
func (Impossible) Deallocate(unsafe.Pointer, allocator.Layout) {
	panic("system: Impossible.Deallocate called")
}

// Grow implements allocator.Allocator.
func (Impossible) Grow(unsafe.Pointer, allocator.Layout, allocator.Layout) (allocator.Block, error) {
	panic("system: Impossible.Grow called")
}

// GrowZeroed implements allocator.Allocator.
func (Impossible) GrowZeroed(unsafe.Pointer, allocator.Layout, allocator.Layout) (allocator.Block, error) {
	panic("system: Impossible.GrowZeroed called")
}

// Shrink implements allocator.Allocator.
func (Impossible) Shrink(unsafe.Pointer, allocator.Layout, allocator.Layout) (allocator.Block, error) {
	panic("system: Impossible.Shrink called")
}

// HasAllocated implements allocator.Fallbackable.
func (Impossible) HasAllocated(unsafe.Pointer, allocator.Layout) bool {
	panic("system: Impossible.HasAllocated called")
}

// AllowsFallback implements allocator.Fallbackable.
func (Impossible) AllowsFallback(allocator.Layout) bool {
	panic("system: Impossible.AllowsFallback called")
}
