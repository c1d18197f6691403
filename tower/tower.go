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
	"github.com/go-allocator/allocator/bump"
	"github.com/go-allocator/allocator/fallback"
	"github.com/go-allocator/allocator/freelist"
	"github.com/go-allocator/allocator/internal/xunsafe"
	"github.com/go-allocator/allocator/upto"
)

// Tower is a segregated size-class allocator: every Allocate is routed, by
// size, to the smallest power-of-two bucket that fits it, each of which
// caches its own freed blocks over one shared bump arena.
type Tower struct {
	_ xunsafe.NoCopy

	chain allocator.Fallbackable
	base  allocator.Fallbackable
}

// New builds a Tower from the given options. With no options, it spans 8
// bytes to 64 KiB over a 1 MiB single-goroutine bump arena, and fails
// requests larger than the top class.
func New(opts ...Option) *Tower {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	var base allocator.Fallbackable
	if cfg.concurrent {
		base = bump.NewShared(make([]byte, cfg.arenaSize))
	} else {
		base = bump.New(make([]byte, cfg.arenaSize))
	}

	chain := cfg.overflow
	for i := len(cfg.sizes) - 1; i >= 0; i-- {
		n := cfg.sizes[i]
		target := allocator.MustLayout(n, n)

		toleranceSize := uintptr(1)
		if i > 0 {
			toleranceSize = cfg.sizes[i-1] + 1
		}
		tolerance := allocator.MustLayout(toleranceSize, 1)

		params := freelist.NewParams(target, tolerance, cfg.limit)
		var fl allocator.Fallbackable
		if cfg.concurrent {
			fl = freelist.NewLocked(params, base)
		} else {
			fl = freelist.New(params, base)
		}

		gate := upto.NewLimited(target, fl)
		chain = fallback.New(gate, chain)
	}

	return &Tower{chain: chain, base: base}
}

// Allocate implements allocator.Allocator.
func (t *Tower) Allocate(l allocator.Layout) (allocator.Block, error) { return t.chain.Allocate(l) }

// AllocateZeroed implements allocator.Allocator.
func (t *Tower) AllocateZeroed(l allocator.Layout) (allocator.Block, error) {
	return t.chain.AllocateZeroed(l)
}

// Deallocate implements allocator.Allocator.
func (t *Tower) Deallocate(ptr unsafe.Pointer, l allocator.Layout) { t.chain.Deallocate(ptr, l) }

// Grow implements allocator.Allocator.
func (t *Tower) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return t.chain.Grow(ptr, old, new)
}

// GrowZeroed implements allocator.Allocator.
func (t *Tower) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return t.chain.GrowZeroed(ptr, old, new)
}

// Shrink implements allocator.Allocator.
func (t *Tower) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	return t.chain.Shrink(ptr, old, new)
}

// HasAllocated implements allocator.Fallbackable.
func (t *Tower) HasAllocated(ptr unsafe.Pointer, l allocator.Layout) bool {
	return t.chain.HasAllocated(ptr, l)
}

// AllowsFallback implements allocator.Fallbackable.
func (t *Tower) AllowsFallback(l allocator.Layout) bool { return t.chain.AllowsFallback(l) }

// Close panics if the underlying bump arena (Arena, or Shared under
// WithConcurrent) still has live allocations, the same abort the arena's own
// Close enforces; call it once every consumer of this Tower is done.
func (t *Tower) Close() error {
	type closer interface{ Close() error }
	if c, ok := t.base.(closer); ok {
		return c.Close()
	}
	return nil
}
