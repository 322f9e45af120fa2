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

// Package bitmap implements a dense bit-per-unit occupancy map which can live
// inside a caller supplied buffer, for example at the head of the memory
// region it describes.
package bitmap

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/bytedance/gopkg/util/xxhash3"
)

const (
	// headerSize is the in-band header: [4 bytes magic][4 bytes bit count].
	headerSize = 8

	// magic marks a buffer initialized by NewInBuf.
	magic uint32 = 0xB17A9A00

	wordBits  = 64
	wordBytes = 8
)

// NotFound is returned by Scan and ScanAndFlip when no run matches.
const NotFound = -1

// Bitmap is a fixed-size array of bits. Bitmap is not safe for concurrent use.
type Bitmap struct {
	n    int
	bits []byte // len is a multiple of wordBytes
}

// BufSize returns the number of bytes NewInBuf needs for a bitmap of n bits.
func BufSize(n int) int {
	return headerSize + (n+wordBits-1)/wordBits*wordBytes
}

// New creates a bitmap of n bits, all false, backed by its own buffer.
func New(n int) *Bitmap {
	b, err := NewInBuf(n, make([]byte, BufSize(n)))
	if err != nil {
		panic(err)
	}
	return b
}

// NewInBuf creates a bitmap of n bits, all false, stored in buf.
// buf must be at least BufSize(n) bytes. The returned bitmap aliases buf.
func NewInBuf(n int, buf []byte) (*Bitmap, error) {
	if n < 0 {
		return nil, fmt.Errorf("bitmap size must be >= 0, got %d", n)
	}
	if sz := BufSize(n); len(buf) < sz {
		return nil, fmt.Errorf("bitmap buffer too small: need %d bytes for %d bits, got %d", sz, n, len(buf))
	}
	binary.LittleEndian.PutUint32(buf[0:], magic)
	binary.LittleEndian.PutUint32(buf[4:], uint32(n))
	b := &Bitmap{
		n:    n,
		bits: buf[headerSize:BufSize(n):BufSize(n)],
	}
	for i := range b.bits {
		b.bits[i] = 0
	}
	return b, nil
}

// Size returns the number of bits.
func (b *Bitmap) Size() int {
	return b.n
}

// Test returns the value of bit idx.
func (b *Bitmap) Test(idx int) bool {
	b.checkRange(idx, 1)
	return b.test(idx)
}

// Set sets bit idx to value.
func (b *Bitmap) Set(idx int, value bool) {
	b.checkRange(idx, 1)
	if value {
		b.bits[idx>>3] |= 1 << (idx & 7)
	} else {
		b.bits[idx>>3] &^= 1 << (idx & 7)
	}
}

// SetMultiple sets cnt bits starting at start to value.
func (b *Bitmap) SetMultiple(start, cnt int, value bool) {
	b.checkRange(start, cnt)
	if cnt == 0 {
		return
	}
	end := start + cnt
	startByte := start >> 3
	endByte := (end - 1) >> 3

	if startByte == endByte {
		mask := byte((1<<cnt)-1) << (start & 7)
		b.apply(startByte, mask, value)
		return
	}

	b.apply(startByte, byte(0xFF)<<(start&7), value)
	fill := byte(0)
	if value {
		fill = 0xFF
	}
	for i := startByte + 1; i < endByte; i++ {
		b.bits[i] = fill
	}
	b.apply(endByte, byte((1<<((end-1)&7+1))-1), value)
}

// Count returns the number of bits in [start, start+cnt) equal to value.
func (b *Bitmap) Count(start, cnt int, value bool) int {
	b.checkRange(start, cnt)
	ones := 0
	i, end := start, start+cnt
	for i < end && i&(wordBits-1) != 0 {
		if b.test(i) {
			ones++
		}
		i++
	}
	for i+wordBits <= end {
		ones += bits.OnesCount64(b.word(i))
		i += wordBits
	}
	for ; i < end; i++ {
		if b.test(i) {
			ones++
		}
	}
	if value {
		return ones
	}
	return cnt - ones
}

// Contains reports whether any bit in [start, start+cnt) equals value.
func (b *Bitmap) Contains(start, cnt int, value bool) bool {
	return b.Count(start, cnt, value) != 0
}

// All reports whether every bit in [start, start+cnt) equals value.
func (b *Bitmap) All(start, cnt int, value bool) bool {
	return !b.Contains(start, cnt, !value)
}

// Scan returns the lowest index >= start of a run of cnt bits all equal to
// value, or NotFound.
func (b *Bitmap) Scan(start, cnt int, value bool) int {
	b.checkRange(start, 0)
	if cnt < 0 {
		panic(fmt.Sprintf("bitmap: negative count %d", cnt))
	}
	if cnt == 0 {
		return start
	}
	if cnt > b.n-start {
		return NotFound
	}

	runStart := -1
	runLen := 0
	i := start
	n := b.n

	// 1. Scan unaligned head
	for i < n && i&(wordBits-1) != 0 {
		if b.test(i) != value {
			runStart = -1
			runLen = 0
		} else {
			if runStart == -1 {
				runStart = i
			}
			runLen++
			if runLen >= cnt {
				return runStart
			}
		}
		i++
	}

	// 2. Scan aligned 64-bit words, 1 bits are matches
	for i+wordBits <= n {
		val := b.word(i)
		if !value {
			val = ^val
		}

		if val == 0 {
			runStart = -1
			runLen = 0
			i += wordBits
			continue
		}

		if val == ^uint64(0) {
			if runStart == -1 {
				runStart = i
			}
			runLen += wordBits
			if runLen >= cnt {
				return runStart
			}
			i += wordBits
			continue
		}

		for k := 0; k < wordBits; k++ {
			if (val>>k)&1 == 0 {
				runStart = -1
				runLen = 0
			} else {
				if runStart == -1 {
					runStart = i + k
				}
				runLen++
				if runLen >= cnt {
					return runStart
				}
			}
		}
		i += wordBits
	}

	// 3. Scan remaining tail
	for ; i < n; i++ {
		if b.test(i) != value {
			runStart = -1
			runLen = 0
		} else {
			if runStart == -1 {
				runStart = i
			}
			runLen++
			if runLen >= cnt {
				return runStart
			}
		}
	}
	return NotFound
}

// ScanAndFlip finds the lowest run like Scan and flips all of its bits to
// !value. It returns the start of the run, or NotFound.
func (b *Bitmap) ScanAndFlip(start, cnt int, value bool) int {
	idx := b.Scan(start, cnt, value)
	if idx != NotFound {
		b.SetMultiple(idx, cnt, !value)
	}
	return idx
}

// Sum64 returns a fingerprint of the map contents.
func (b *Bitmap) Sum64() uint64 {
	return xxhash3.Hash(b.bits)
}

func (b *Bitmap) test(idx int) bool {
	return b.bits[idx>>3]&(1<<(idx&7)) != 0
}

// word returns the 64 bits starting at idx, which must be word aligned.
func (b *Bitmap) word(idx int) uint64 {
	return binary.LittleEndian.Uint64(b.bits[idx>>3:])
}

func (b *Bitmap) apply(i int, mask byte, value bool) {
	if value {
		b.bits[i] |= mask
	} else {
		b.bits[i] &^= mask
	}
}

func (b *Bitmap) checkRange(start, cnt int) {
	if start < 0 || cnt < 0 || start > b.n || cnt > b.n-start {
		panic(fmt.Sprintf("bitmap: range [%d, +%d) out of bounds for %d bits", start, cnt, b.n))
	}
}
