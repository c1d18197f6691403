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

// Package allocator defines the contract every composable allocator in this
// module honors: Layout and Block describe requests and results, Allocator
// is the operation set, and Fallbackable is the extension trait that lets
// combinators route allocate/deallocate/grow/shrink across a composed tree.
package allocator

import (
	"fmt"
	"math"
	"unsafe"
)

// maxSize is the largest layout size this module will ever hand to an
// allocator, mirroring the Rust original's `isize::MAX` ceiling.
const maxSize = uintptr(math.MaxInt)

// Layout describes a requested block: its size in bytes and the power-of-two
// alignment it must be placed at.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout validates and builds a Layout. align must be a power of two, and
// the size rounded up to that alignment must not overflow maxSize.
func NewLayout(size, align uintptr) (Layout, error) {
	if align == 0 || align&(align-1) != 0 {
		return Layout{}, fmt.Errorf("allocator: alignment %d is not a power of two", align)
	}
	l := Layout{Size: size, Align: align}
	if size > maxSize || l.AlignedSize() > maxSize {
		return Layout{}, fmt.Errorf("allocator: layout %+v overflows the maximum allocation size", l)
	}
	return l, nil
}

// MustLayout is like NewLayout, but panics on an invalid layout. Intended for
// constructing constant layouts (size classes, header sizes) at init time.
func MustLayout(size, align uintptr) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// LayoutOf returns the layout a value of type T would need.
func LayoutOf[T any]() Layout {
	var z T
	return Layout{Size: unsafe.Sizeof(z), Align: uintptr(unsafe.Alignof(z))}
}

// AlignedSize rounds Size up to the next multiple of Align.
func (l Layout) AlignedSize() uintptr {
	return alignUp(l.Size, l.Align)
}

// Fits reports whether a block obtained for l is also a valid block for
// other: l's capacity covers other's request, and l's alignment is at least
// as strict as other's.
func (l Layout) Fits(other Layout) bool {
	return l.Size >= other.Size && l.Align >= other.Align
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{size: %d, align: %d}", l.Size, l.Align)
}

// alignUp rounds addr up to the next multiple of align, which must be a
// power of two.
func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}

// AlignUp rounds addr up to the next multiple of align, which must be a
// power of two. Exported so that leaf and adaptor packages that need to pad
// a cursor to a requested alignment (the bump arena, the over-aligned
// system leaf) don't each reimplement the bit trick.
func AlignUp(addr, align uintptr) uintptr {
	return alignUp(addr, align)
}

// Block is a handle to an allocated region: an address and a capacity that
// is at least as large as the Layout.Size used to obtain it. The owner must
// remember the Layout it requested — Block does not self-describe it.
type Block struct {
	Ptr unsafe.Pointer
	Len uintptr
}

// Bytes views the block's memory as a byte slice.
//
// The returned slice must not outlive whatever keeps the block's backing
// allocation reachable (the owning arena's buffer, or — for heap-backed
// leaves — the Block itself).
func (b Block) Bytes() []byte {
	if b.Len == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(b.Ptr), b.Len)
}

func (b Block) String() string {
	return fmt.Sprintf("Block{ptr: %p, len: %d}", b.Ptr, b.Len)
}
