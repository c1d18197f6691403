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

package allocator

import (
	"errors"
	"fmt"
)

// ErrAllocationFailed is the sole error kind this module's allocators
// return. Out-of-memory in a leaf, out-of-buffer in an arena, oversize at a
// size gate, and an alignment-widening shrink in the bump arena all collapse
// to this one value; components wrap it with %w to attach context.
var ErrAllocationFailed = errors.New("allocator: allocation failed")

// Fail wraps ErrAllocationFailed with a component name and the layout that
// could not be served, so callers that inspect errors.Is still see
// ErrAllocationFailed while a %v/Error() print stays diagnosable.
func Fail(component string, l Layout) error {
	return fmt.Errorf("%s: %w for %v", component, ErrAllocationFailed, l)
}
