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

// Package palloc is a physical page allocator.
//
// The managed physical range is carved into two fixed pools: the kernel pool
// at the lower addresses, and the user pool right after it. Each pool hands
// out runs of whole pages first-fit from an occupancy bitmap stored at the
// head of the pool's own region, under a lock of its own, so kernel and user
// allocations never contend.
//
// Misuse is fatal: freeing an address which is misaligned, foreign to both
// pools, runs past its pool, or (by default) is already free panics before
// any state changes. Running out of pages is not an error unless FlagAssert
// is given; Alloc returns physmem.NilAddr instead.
package palloc

import (
	"fmt"
	"sync/atomic"

	"github.com/cloudwego/palloc/bitmap"
	"github.com/cloudwego/palloc/physmem"
)

// Allocator owns the kernel and user pools.
type Allocator struct {
	mem    physmem.Memory
	kernel *Pool
	user   *Pool

	total int64
	free  int64 // see Pool.allocFree

	poison     bool
	poisonByte byte
	strictFree bool
}

// Boot creates an allocator managing every page of ram above
// physmem.LowReserve.
func Boot(ram *physmem.RAM, opt *Option) (*Allocator, error) {
	return New(ram, physmem.LowReserve, ram.UsablePages(), opt)
}

// MustBoot is like Boot but panics on error.
func MustBoot(ram *physmem.RAM, opt *Option) *Allocator {
	a, err := Boot(ram, opt)
	if err != nil {
		panic(err)
	}
	return a
}

// New creates an allocator managing pages [base, base+pages) of mem.
// opt may be nil for DefaultOption.
func New(mem physmem.Memory, base physmem.Addr, pages int, opt *Option) (*Allocator, error) {
	if opt == nil {
		opt = DefaultOption()
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if !base.IsPageAligned() {
		return nil, fmt.Errorf("%w: base %s", ErrMisaligned, base)
	}
	if pages < 0 {
		return nil, fmt.Errorf("%w: page count must be >= 0, got %d", ErrBadOption, pages)
	}

	userPages := pages / 2
	if userPages > opt.UserPageLimit {
		userPages = opt.UserPageLimit
	}
	kernelPages := pages - userPages

	a := &Allocator{
		mem:        mem,
		poison:     opt.Poison,
		poisonByte: opt.PoisonByte,
		strictFree: opt.DoubleFree == DoubleFreePanic,
	}
	var err error
	if a.kernel, err = newPool(KernelPool, mem, base, kernelPages, &a.free); err != nil {
		return nil, err
	}
	if a.user, err = newPool(UserPool, mem, base.Add(kernelPages), userPages, &a.free); err != nil {
		return nil, err
	}
	a.total = int64(a.kernel.capacity + a.user.capacity)
	a.free = a.total

	if !opt.Quiet {
		logger := opt.logger()
		for _, p := range []*Pool{a.kernel, a.user} {
			logger.Printf("%d pages available in %s.", p.capacity, p.Name())
		}
	}
	return a, nil
}

// Kernel returns the kernel pool.
func (a *Allocator) Kernel() *Pool { return a.kernel }

// User returns the user pool.
func (a *Allocator) User() *Pool { return a.user }

// Pool returns the pool selected by kind.
func (a *Allocator) Pool(kind PoolKind) *Pool {
	switch kind {
	case KernelPool:
		return a.kernel
	case UserPool:
		return a.user
	}
	panic(fmt.Sprintf("palloc: unknown pool %d", int(kind)))
}

// Alloc allocates n contiguous pages from the pool selected by kind and
// returns the address of the first one. The lowest free run wins.
//
// Alloc returns physmem.NilAddr if n <= 0, or if the pool has no free run of
// n pages and FlagAssert is not set. With FlagZero the pages are zero-filled.
func (a *Allocator) Alloc(kind PoolKind, n int, flags Flags) physmem.Addr {
	if n <= 0 {
		return physmem.NilAddr
	}
	p := a.Pool(kind)

	idx := p.take(n)
	if idx == bitmap.NotFound {
		if flags&FlagAssert != 0 {
			panic(fmt.Errorf("%w: no run of %d pages in %s (%d free)", ErrOutOfPages, n, p.Name(), p.FreePages()))
		}
		return physmem.NilAddr
	}

	addr := p.base.Add(idx)
	if flags&FlagZero != 0 {
		fill(a.mem.Bytes(addr, n*physmem.PageSize), 0)
	}
	return addr
}

// AllocPage allocates a single page, see Alloc.
func (a *Allocator) AllocPage(kind PoolKind, flags Flags) physmem.Addr {
	return a.Alloc(kind, 1, flags)
}

// GetMultiple allocates n pages from the user pool if flags has FlagUser,
// or from the kernel pool otherwise.
func (a *Allocator) GetMultiple(flags Flags, n int) physmem.Addr {
	kind := KernelPool
	if flags&FlagUser != 0 {
		kind = UserPool
	}
	return a.Alloc(kind, n, flags)
}

// GetPage is GetMultiple for a single page.
func (a *Allocator) GetPage(flags Flags) physmem.Addr {
	return a.GetMultiple(flags, 1)
}

// Free returns the n pages starting at addr to the pool that owns them.
// Freeing physmem.NilAddr or zero pages does nothing.
//
// Free panics, leaving all state unchanged, if addr is not page aligned, is
// not owned by either pool, or the range runs past the end of its pool.
// Under DoubleFreePanic it also panics if any page of the range is free.
func (a *Allocator) Free(addr physmem.Addr, n int) {
	if !addr.IsPageAligned() {
		panic(fmt.Errorf("%w: free of %s", ErrMisaligned, addr))
	}
	if addr == physmem.NilAddr || n <= 0 {
		return
	}

	p := a.OwnerOf(addr)
	if p == nil {
		panic(fmt.Errorf("%w: free of %s", ErrForeignAddr, addr))
	}
	idx := p.index(addr)
	if n > p.capacity-idx {
		panic(fmt.Errorf("%w: %d pages at %s, %s ends at %s", ErrRangeOverflow, n, addr, p.Name(), p.End()))
	}
	if a.strictFree && !p.inUse(idx, n) {
		panic(fmt.Errorf("%w: %d pages at %s in %s", ErrDoubleFree, n, addr, p.Name()))
	}

	if a.poison {
		fill(a.mem.Bytes(addr, n*physmem.PageSize), a.poisonByte)
	}
	if err := p.release(idx, n, a.strictFree); err != nil {
		panic(err)
	}
}

// FreePage frees a single page, see Free.
func (a *Allocator) FreePage(addr physmem.Addr) {
	a.Free(addr, 1)
}

// OwnerOf returns the pool whose allocatable range contains addr, or nil.
func (a *Allocator) OwnerOf(addr physmem.Addr) *Pool {
	if a.kernel.Contains(addr) {
		return a.kernel
	}
	if a.user.Contains(addr) {
		return a.user
	}
	return nil
}

// Bytes returns the memory of n pages at addr.
func (a *Allocator) Bytes(addr physmem.Addr, n int) []byte {
	return a.mem.Bytes(addr, n*physmem.PageSize)
}

// TotalPages returns the number of allocatable pages in both pools.
func (a *Allocator) TotalPages() int {
	return int(a.total)
}

// FreePages returns the number of free pages in both pools.
func (a *Allocator) FreePages() int {
	return int(atomic.LoadInt64(&a.free))
}

// UsedPages returns TotalPages - FreePages.
func (a *Allocator) UsedPages() int {
	return a.TotalPages() - a.FreePages()
}

func fill(b []byte, c byte) {
	for i := range b {
		b[i] = c
	}
}
