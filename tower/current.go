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

import "github.com/timandy/routine"

var current = routine.NewThreadLocal[*Tower]()

// Current returns the Tower installed for the calling goroutine by Use, or
// nil if none has been installed. It does not allocate or install a
// default: callers that want one should call Use explicitly, typically
// once near the top of a goroutine.
func Current() *Tower {
	return current.Get()
}

// Use installs t as the Tower for the calling goroutine and returns a
// function that restores whatever was installed before, so callers can
// scope the installation with a defer:
//
//	restore := tower.Use(t)
//	defer restore()
func Use(t *Tower) (restore func()) {
	prev := current.Get()
	current.Set(t)
	return func() { current.Set(prev) }
}
