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

package tower

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
)

// terminal is the default overflow allocator: it always fails, giving the
// tower its "requests past the top size class fail" default without a
// special case in the chain-building loop — it is just one more Fallbackable
// at the end of the chain. It never allows fallback, so, as the Fallbackable
// contract requires, HasAllocated reports true for every layout.
type terminal struct{}

func (terminal) Allocate(l allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("tower", l)
}

func (terminal) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("tower", l)
}

func (terminal) Deallocate(unsafe.Pointer, allocator.Layout) {
	panic("tower: Deallocate called on the overflow terminator, which never allocates anything")
}

func (terminal) Grow(_ unsafe.Pointer, _, new allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("tower", new)
}

func (terminal) GrowZeroed(_ unsafe.Pointer, _, new allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("tower", new)
}

func (terminal) Shrink(_ unsafe.Pointer, _, new allocator.Layout) (allocator.Block, error) {
	return allocator.Block{}, allocator.Fail("tower", new)
}

func (terminal) HasAllocated(unsafe.Pointer, allocator.Layout) bool { return true }

func (terminal) AllowsFallback(allocator.Layout) bool { return false }
