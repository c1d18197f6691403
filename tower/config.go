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

// Package tower assembles the segregated size-class pipeline: one Freelist
// per power-of-two size class, each gated by a LimitedUpTo and chained with
// Fallbacked so a request climbs to the first bucket whose class is large
// enough, bottoming out on a shared bump arena. Requests larger than the top
// class fail outright by default.
package tower

import (
	"unsafe"

	allocator "github.com/go-allocator/allocator"
)

// config holds the resolved settings an Option mutates. It is not exported;
// Option is the only supported way to change it.
type config struct {
	sizes      []uintptr
	arenaSize  uintptr
	limit      int
	concurrent bool
	overflow   allocator.Fallbackable
}

// defaultSizes is the power-of-two ladder from spec: 8 bytes to 64 KiB.
func defaultSizes() []uintptr {
	sizes := make([]uintptr, 0, 14)
	for n := uintptr(8); n <= 65536; n *= 2 {
		sizes = append(sizes, n)
	}
	return sizes
}

func defaultConfig() config {
	return config{
		sizes:     defaultSizes(),
		arenaSize: 1 << 20,
		limit:     0,
		overflow:  terminal{},
	}
}

// Option is a configuration setting for New, following the same
// struct-wrapping-a-closure shape functional-options packages in this
// ecosystem use.
type Option struct{ apply func(*config) }

// WithSizes replaces the default size-class ladder. sizes must be strictly
// increasing.
func WithSizes(sizes []uintptr) Option {
	cp := append([]uintptr(nil), sizes...)
	return Option{func(c *config) { c.sizes = cp }}
}

// WithArenaSize sets the capacity of the bump arena every size class shares.
func WithArenaSize(n uintptr) Option {
	return Option{func(c *config) { c.arenaSize = n }}
}

// WithListLimit caps how many freed blocks each size class's cache holds;
// 0 (the default) means unbounded.
func WithListLimit(n int) Option {
	return Option{func(c *config) { c.limit = n }}
}

// WithConcurrent switches every component to its thread-safe variant:
// bump.Shared instead of bump.Arena, freelist.Locked instead of
// freelist.Freelist. Use this when the Tower is reached from more than one
// goroutine; see also Current/Use for the common case of one Tower per
// goroutine, which does not need this option.
func WithConcurrent() Option {
	return Option{func(c *config) { c.concurrent = true }}
}

// WithOverflow replaces the default "always fail" behavior for requests
// larger than the biggest size class with a caller-provided allocator —
// typically a system.System leaf, for a tower that degrades to the Go heap
// instead of refusing large requests.
//
// overflow only needs to satisfy allocator.Allocator: it sits at the very
// end of the chain, so it is wrapped in an adaptor that always reports
// HasAllocated true and AllowsFallback false, the same terminal role
// system.System plays when used directly as a leaf outside a tower.
func WithOverflow(overflow allocator.Allocator) Option {
	return Option{func(c *config) { c.overflow = terminalLeaf{overflow} }}
}

// terminalLeaf adapts a plain allocator.Allocator leaf (System, Posix,
// WinApi — none of which implement Fallbackable, matching the original
// system.rs, which only implements core::alloc::Allocator) so it can sit at
// the end of a Fallbacked chain. It is always assumed to own whatever
// pointer it is asked about, since nothing past it in the chain could have
// allocated that pointer instead, and it never permits falling through
// further since there is nothing further to fall through to.
type terminalLeaf struct{ allocator.Allocator }

func (terminalLeaf) HasAllocated(unsafe.Pointer, allocator.Layout) bool { return true }

func (terminalLeaf) AllowsFallback(allocator.Layout) bool { return false }
