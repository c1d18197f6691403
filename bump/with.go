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

import "unsafe"

// With runs f over a fresh Arena backed by buf, then closes the arena —
// panicking, via Close, if f leaked any allocation.
func With(buf []byte, f func(*Arena)) error {
	a := New(buf)
	f(a)
	return a.Close()
}

// WithShared is the Shared counterpart to With.
func WithShared(buf []byte, f func(*Shared)) error {
	a := NewShared(buf)
	f(a)
	return a.Close()
}

// WithSize runs f over a fresh Arena backed by a buffer sized and aligned
// like Buf, without the caller having to spell out a byte count or write its
// own []byte literal. Instantiate it with an array type:
//
//	bump.WithSize[[4096]byte](func(a *bump.Arena) { ... })
//
// Buf's storage escapes to the heap, same as any other value captured by a
// struct that outlives its stack frame — this only saves the caller from
// managing the byte count by hand, not from an allocation.
func WithSize[Buf any](f func(*Arena)) error {
	var storage Buf
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&storage)), unsafe.Sizeof(storage))
	return With(buf, f)
}
