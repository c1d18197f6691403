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
	"fmt"

	allocator "github.com/go-allocator/allocator"
)

// recoverBlock runs f, converting any panic it raises into
// ErrAllocationFailed instead of letting it propagate. System, Posix and
// WinApi wrap their entry points in it: a malloc failure, a syscall error,
// or an internal precondition violation three calls deep all collapse to the
// same ordinary error return here, never a crash.
func recoverBlock(component string, l allocator.Layout, f func() (allocator.Block, error)) (blk allocator.Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			blk = allocator.Block{}
			err = fmt.Errorf("%s: %w (recovered: %v)", component, allocator.ErrAllocationFailed, r)
		}
	}()
	return f()
}

// recoverVoid runs f, discarding any panic it raises. Used for the void
// Deallocate path, where there is no error to report back.
func recoverVoid(f func()) {
	defer func() { _ = recover() }()
	f()
}
