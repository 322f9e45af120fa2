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

// Package physmem describes physical memory for the page allocator:
// page geometry, physical addresses, and a simulated RAM that maps
// physical addresses to bytes.
package physmem

import (
	"fmt"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

const (
	// PageShift is log2(PageSize).
	PageShift = 12

	// PageSize is the size of a page in bytes.
	PageSize = 1 << PageShift

	// LowReserve is the low region of physical memory which is never managed
	// by the page allocator (boot loader, kernel image, legacy devices).
	LowReserve = 1 << 20
)

// Addr is a physical address.
type Addr uintptr

// NilAddr is never a valid page address, it lies inside the low reservation.
const NilAddr Addr = 0

// PageOffset returns the offset of a within its page.
func (a Addr) PageOffset() uintptr {
	return uintptr(a) & (PageSize - 1)
}

// PageNumber returns the page index of a, counted from physical address 0.
func (a Addr) PageNumber() uintptr {
	return uintptr(a) >> PageShift
}

// IsPageAligned reports whether a starts a page.
func (a Addr) IsPageAligned() bool {
	return a.PageOffset() == 0
}

// Add returns a advanced by n pages.
func (a Addr) Add(pages int) Addr {
	return a + Addr(pages)<<PageShift
}

func (a Addr) String() string {
	return fmt.Sprintf("%#x", uintptr(a))
}

// DivRoundUp returns x / step rounded up.
func DivRoundUp(x, step int) int {
	return (x + step - 1) / step
}

// PageRoundUp rounds n bytes up to a whole number of pages.
func PageRoundUp(n int) int {
	return DivRoundUp(n, PageSize) * PageSize
}

// Memory maps physical addresses to bytes.
type Memory interface {
	// Bytes returns the n bytes starting at addr.
	// It panics if the range is not backed by memory.
	Bytes(addr Addr, n int) []byte
}

// RAM simulates the machine's physical memory as one arena covering
// physical addresses [0, Size()).
type RAM struct {
	arena []byte
}

var _ Memory = (*RAM)(nil)

// NewRAM creates a RAM of size bytes, rounded down to whole pages.
// Like real memory at boot, its contents are not initialized.
func NewRAM(size int) (*RAM, error) {
	size &^= PageSize - 1
	if size < PageSize {
		return nil, fmt.Errorf("ram size must be >= %d bytes, got %d", PageSize, size)
	}
	return &RAM{arena: dirtmake.Bytes(size, size)}, nil
}

// Size returns the size of the RAM in bytes.
func (r *RAM) Size() int {
	return len(r.arena)
}

// Pages returns the size of the RAM in pages.
func (r *RAM) Pages() int {
	return len(r.arena) >> PageShift
}

// UsablePages returns the number of pages above LowReserve.
func (r *RAM) UsablePages() int {
	if len(r.arena) <= LowReserve {
		return 0
	}
	return (len(r.arena) - LowReserve) >> PageShift
}

// Bytes implements Memory.
func (r *RAM) Bytes(addr Addr, n int) []byte {
	if n < 0 || uintptr(addr) > uintptr(len(r.arena)) || uintptr(len(r.arena))-uintptr(addr) < uintptr(n) {
		panic(fmt.Sprintf("physmem: range [%s, +%d) not backed by ram of %d bytes", addr, n, len(r.arena)))
	}
	return r.arena[addr : uintptr(addr)+uintptr(n) : uintptr(addr)+uintptr(n)]
}
