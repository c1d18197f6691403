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

// Package xunsafe provides a more convenient interface for performing the
// unsafe pointer arithmetic the allocator packages need: computing padding
// for alignment, slicing raw buffers, and bit-casting between pointer and
// uintptr representations.
//
// The other packages use it for most of their pointer arithmetic; a few
// conversions between uintptr and unsafe.Pointer are still written inline
// where they are used.
package xunsafe

import (
	"fmt"
	"unsafe"
)

const (
	// PointerSize is the size, in bytes, of a pointer on this platform.
	PointerSize = int(unsafe.Sizeof(uintptr(0)))
	// PointerAlign is the alignment, in bytes, required of a pointer-sized
	// value. It always equals PointerSize on the platforms Go supports.
	PointerAlign = PointerSize
)

// Addr is a raw, untyped address. Unlike unsafe.Pointer, arithmetic on it is
// ordinary integer arithmetic, and it does not keep anything alive on its
// own — callers are responsible for keeping the backing allocation
// reachable for as long as an Addr derived from it is in use.
type Addr uintptr

// Of returns the address of a pointer.
func Of(p unsafe.Pointer) Addr { return Addr(p) }

// Ptr reinterprets this address as a pointer. The caller must ensure the
// memory it refers to is still live and reachable.
func (a Addr) Ptr() unsafe.Pointer { return unsafe.Pointer(a) } //nolint:govet

// Add returns a+n.
func (a Addr) Add(n uintptr) Addr { return a + Addr(n) }

// Sub returns a-b.
func (a Addr) Sub(b Addr) uintptr { return uintptr(a - b) }

// Misalign returns the byte distance to the previous and next addresses
// aligned to align, which must be a power of two. If a is already aligned,
// both return values are zero.
func (a Addr) Misalign(align uintptr) (prev, next uintptr) {
	addr := uintptr(a)
	prev = addr & (align - 1)
	next = (align - addr) & (align - 1)
	return prev, next
}

// AlignedUp reports whether a is aligned to align, which must be a power of
// two.
func (a Addr) AlignedUp(align uintptr) bool {
	prev, _ := a.Misalign(align)
	return prev == 0
}

// Format implements fmt.Formatter, printing the address in hex.
func (a Addr) Format(s fmt.State, verb rune) {
	if verb == 'v' || verb == 'x' {
		fmt.Fprintf(s, "%#x", uintptr(a))
		return
	}
	fmt.Fprintf(s, fmt.FormatString(s, verb), uintptr(a))
}

// Cast reinterprets p as a pointer to a different type, without checking
// that the sizes or alignments are compatible.
func Cast[To, From any](p *From) *To {
	return (*To)(unsafe.Pointer(p))
}

// BitCast reinterprets the bits of v, of type From, as a value of type To.
// Both types must have the same size.
func BitCast[To, From any](v From) To {
	return *Cast[To](&v)
}

// Bytes returns a slice viewing n bytes starting at ptr.
//
// The returned slice must not escape past the lifetime of whatever owns the
// memory ptr points into.
func Bytes(ptr unsafe.Pointer, n uintptr) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), n)
}

// Add returns the pointer ptr displaced by n bytes.
func Add(ptr unsafe.Pointer, n uintptr) unsafe.Pointer {
	return unsafe.Add(ptr, n)
}

// Copy copies n bytes from src to dst. The two ranges must not overlap.
func Copy(dst, src unsafe.Pointer, n uintptr) {
	copy(Bytes(dst, n), Bytes(src, n))
}

// Clear zeroes n bytes starting at ptr.
func Clear(ptr unsafe.Pointer, n uintptr) {
	clear(Bytes(ptr, n))
}

// NoCopy is embedded in a struct to make `go vet` flag the struct being
// copied by value, since it implements sync.Locker without any useful
// behavior.
type NoCopy struct{}

// Lock implements sync.Locker.
func (*NoCopy) Lock() {}

// Unlock implements sync.Locker.
func (*NoCopy) Unlock() {}
