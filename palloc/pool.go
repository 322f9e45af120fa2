/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package palloc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/palloc/bitmap"
	"github.com/cloudwego/palloc/physmem"
)

// Pool is one contiguous run of pages with the map and lock guarding it.
//
// The pool's occupancy map lives in-band: the first MapPages pages of the
// carved region hold it and are never handed out, so Base is the first page
// after the map.
type Pool struct {
	kind PoolKind

	// region is the start of the carved region, where the map lives.
	region      physmem.Addr
	regionPages int
	mapPages    int

	// base is the first allocatable page, capacity the number of them.
	base     physmem.Addr
	capacity int

	mu      sync.Mutex
	usedMap *bitmap.Bitmap // true means in use
	free    int

	// allocFree is the allocator-wide free counter.
	// It is only changed while mu is held, by the number of bits flipped.
	allocFree *int64
}

// mapPagesFor returns the pages needed to hold a map of n bits.
func mapPagesFor(n int) int {
	return physmem.DivRoundUp(bitmap.BufSize(n), physmem.PageSize)
}

func newPool(kind PoolKind, mem physmem.Memory, region physmem.Addr, pages int, allocFree *int64) (*Pool, error) {
	mapPages := mapPagesFor(pages)
	if mapPages >= pages {
		return nil, fmt.Errorf("%w: %s has %d pages, map needs %d", ErrPoolTooSmall, kind, pages, mapPages)
	}
	capacity := pages - mapPages

	usedMap, err := bitmap.NewInBuf(capacity, mem.Bytes(region, mapPages*physmem.PageSize))
	if err != nil {
		return nil, err
	}
	return &Pool{
		kind:        kind,
		region:      region,
		regionPages: pages,
		mapPages:    mapPages,
		base:        region.Add(mapPages),
		capacity:    capacity,
		usedMap:     usedMap,
		free:        capacity,
		allocFree:   allocFree,
	}, nil
}

// Kind returns which pool p is.
func (p *Pool) Kind() PoolKind { return p.kind }

// Name returns a human readable name.
func (p *Pool) Name() string { return p.kind.String() }

// Base returns the address of the first allocatable page.
func (p *Pool) Base() physmem.Addr { return p.base }

// End returns the address just past the last allocatable page.
func (p *Pool) End() physmem.Addr { return p.base.Add(p.capacity) }

// Capacity returns the number of allocatable pages.
func (p *Pool) Capacity() int { return p.capacity }

// RegionPages returns the number of pages carved for p, map included.
func (p *Pool) RegionPages() int { return p.regionPages }

// MapPages returns the number of pages holding the occupancy map.
func (p *Pool) MapPages() int { return p.mapPages }

// Contains reports whether addr lies in p's allocatable range.
// It takes no lock, the range never changes.
func (p *Pool) Contains(addr physmem.Addr) bool {
	return addr >= p.base && addr < p.End()
}

// FreePages returns the number of free pages in p.
func (p *Pool) FreePages() int {
	p.mu.Lock()
	n := p.free
	p.mu.Unlock()
	return n
}

// index returns the page index of addr within p.
func (p *Pool) index(addr physmem.Addr) int {
	return int((addr - p.base) >> physmem.PageShift)
}

// take marks the lowest run of n free pages used and returns its index,
// or bitmap.NotFound.
func (p *Pool) take(n int) int {
	p.mu.Lock()
	idx := p.usedMap.ScanAndFlip(0, n, false)
	if idx != bitmap.NotFound {
		p.free -= n
		atomic.AddInt64(p.allocFree, -int64(n))
	}
	p.mu.Unlock()
	return idx
}

// inUse reports whether every page in [idx, idx+n) is in use.
func (p *Pool) inUse(idx, n int) bool {
	p.mu.Lock()
	ok := p.usedMap.All(idx, n, true)
	p.mu.Unlock()
	return ok
}

// release marks [idx, idx+n) free. With strict set it fails without
// touching the map if any page in the range is already free; otherwise it
// returns only the pages that were in use to the counters.
func (p *Pool) release(idx, n int, strict bool) error {
	p.mu.Lock()
	used := p.usedMap.Count(idx, n, true)
	if strict && used != n {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d of %d pages at %s already free in %s",
			ErrDoubleFree, n-used, n, p.base.Add(idx), p.kind)
	}
	p.usedMap.SetMultiple(idx, n, false)
	p.free += used
	atomic.AddInt64(p.allocFree, int64(used))
	p.mu.Unlock()
	return nil
}

// countFree counts free bits in the map. The caller must hold p.mu.
func (p *Pool) countFree() int {
	return p.usedMap.Count(0, p.capacity, false)
}
