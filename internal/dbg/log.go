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

package dbg

import (
	"fmt"
	"log"
)

// Enabled controls whether Log does anything. It is a plain var, not a
// build-tagged const, so tests can flip it on for a single assertion
// without a separate build of the package.
var Enabled = false

// Log writes a trace line of the form "<context> <op>: <format>" to the
// standard logger, if Enabled is true. context, when non-nil, is rendered
// first via %v; the allocator packages pass the allocator value itself.
func Log(context any, op, format string, args ...any) {
	if !Enabled {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if context == nil {
		log.Printf("%s: %s", op, msg)
		return
	}
	log.Printf("%v %s: %s", context, op, msg)
}
