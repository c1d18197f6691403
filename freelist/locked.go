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

package freelist

import (
	"sync"
	"unsafe"

	allocator "github.com/go-allocator/allocator"
)

// Locked is the concurrent counterpart to Freelist: a mutex serializes every
// operation.
//
// Unlike bump.Shared, there is no lock-free fast path to reach for here — the
// cache's pop/push is a linked-list splice, not a single word, so the
// critical section has to span the whole operation including the fallback
// call into base when the cache misses. That base call becoming part of the
// critical section is a real cost (a slow or blocking base allocator
// serializes every goroutine behind it) but splitting it out would mean
// re-checking the cache after reacquiring the lock, which only pays off if
// base calls are expected to be slow enough to matter; this module leaves
// that tradeoff to callers by letting them choose a fast base allocator.
type Locked struct {
	mu   sync.Mutex
	list *Freelist
}

// NewLocked returns a Locked freelist that caches blocks matching params,
// delegating everything else to base.
func NewLocked(params Params, base allocator.Fallbackable) *Locked {
	return &Locked{list: New(params, base)}
}

// Len reports how many freed blocks are currently cached.
func (l *Locked) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.Len()
}

// Allocate implements allocator.Allocator.
func (l *Locked) Allocate(layout allocator.Layout) (allocator.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.Allocate(layout)
}

// AllocateZeroed implements allocator.Allocator.
func (l *Locked) AllocateZeroed(layout allocator.Layout) (allocator.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.AllocateZeroed(layout)
}

// Deallocate implements allocator.Allocator.
func (l *Locked) Deallocate(ptr unsafe.Pointer, layout allocator.Layout) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.list.Deallocate(ptr, layout)
}

// Grow implements allocator.Allocator.
func (l *Locked) Grow(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.Grow(ptr, old, new)
}

// GrowZeroed implements allocator.Allocator.
func (l *Locked) GrowZeroed(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.GrowZeroed(ptr, old, new)
}

// Shrink implements allocator.Allocator.
func (l *Locked) Shrink(ptr unsafe.Pointer, old, new allocator.Layout) (allocator.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.Shrink(ptr, old, new)
}

// HasAllocated implements allocator.Fallbackable.
func (l *Locked) HasAllocated(ptr unsafe.Pointer, layout allocator.Layout) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.HasAllocated(ptr, layout)
}

// AllowsFallback implements allocator.Fallbackable.
func (l *Locked) AllowsFallback(layout allocator.Layout) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.AllowsFallback(layout)
}
