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

// Package sync2 provides small concurrency helpers for the opt-in atomic
// arena variant, bump.Shared.
package sync2

import "sync/atomic"

// UpdateUintptr atomically updates x by repeatedly calling f with the
// current value and trying to CAS the result in, until it either succeeds
// or f reports failure by returning ok=false.
//
// This is the uintptr analogue of the compare-and-swap retry loop the
// original allocator used for its atomic bump pointer.
func UpdateUintptr(x *atomic.Uintptr, f func(old uintptr) (new uintptr, ok bool)) (new uintptr, swapped bool) {
	for {
		old := x.Load()
		next, ok := f(old)
		if !ok {
			return 0, false
		}
		if x.CompareAndSwap(old, next) {
			return next, true
		}
	}
}
