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

package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInBuf(t *testing.T) {
	tests := []struct {
		name    string
		bits    int
		buf     int
		wantErr bool
	}{
		{"empty", 0, BufSize(0), false},
		{"one_word", 64, BufSize(64), false},
		{"partial_word", 100, BufSize(100), false},
		{"larger_buf", 10, 4096, false},
		{"negative", -1, 64, true},
		{"buf_too_small", 65, BufSize(64), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewInBuf(tt.bits, make([]byte, tt.buf))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bits, b.Size())
			if tt.bits > 0 {
				assert.True(t, b.All(0, tt.bits, false))
			}
		})
	}
}

func TestBufSize(t *testing.T) {
	assert.Equal(t, headerSize, BufSize(0))
	assert.Equal(t, headerSize+8, BufSize(1))
	assert.Equal(t, headerSize+8, BufSize(64))
	assert.Equal(t, headerSize+16, BufSize(65))
}

func TestNewInBufClearsAndAliases(t *testing.T) {
	buf := make([]byte, BufSize(128))
	for i := range buf {
		buf[i] = 0xAA
	}
	b, err := NewInBuf(128, buf)
	require.NoError(t, err)
	assert.Equal(t, 128, b.Count(0, 128, false))

	b.Set(0, true)
	assert.Equal(t, byte(1), buf[headerSize])
}

func TestSetTest(t *testing.T) {
	b := New(130)
	for _, i := range []int{0, 7, 8, 63, 64, 129} {
		assert.False(t, b.Test(i))
		b.Set(i, true)
		assert.True(t, b.Test(i))
	}
	assert.Equal(t, 6, b.Count(0, 130, true))

	b.Set(64, false)
	assert.False(t, b.Test(64))
	assert.Equal(t, 5, b.Count(0, 130, true))

	assert.Panics(t, func() { b.Test(130) })
	assert.Panics(t, func() { b.Set(-1, true) })
}

func TestSetMultiple(t *testing.T) {
	tests := []struct {
		name       string
		start, cnt int
	}{
		{"zero", 5, 0},
		{"within_byte", 1, 5},
		{"full_byte", 8, 8},
		{"across_bytes", 6, 4},
		{"across_words", 60, 10},
		{"many_bytes", 3, 150},
		{"whole", 0, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(200)
			b.SetMultiple(tt.start, tt.cnt, true)
			for i := 0; i < 200; i++ {
				want := i >= tt.start && i < tt.start+tt.cnt
				require.Equal(t, want, b.Test(i), "bit %d", i)
			}
			assert.Equal(t, tt.cnt, b.Count(0, 200, true))

			b.SetMultiple(tt.start, tt.cnt, false)
			assert.Equal(t, 200, b.Count(0, 200, false))
		})
	}

	b := New(10)
	assert.Panics(t, func() { b.SetMultiple(8, 3, true) })
	assert.Panics(t, func() { b.SetMultiple(0, -1, true) })
}

func TestCountContainsAll(t *testing.T) {
	b := New(300)
	b.SetMultiple(10, 100, true)

	assert.Equal(t, 100, b.Count(0, 300, true))
	assert.Equal(t, 200, b.Count(0, 300, false))
	assert.Equal(t, 50, b.Count(60, 100, true))
	assert.True(t, b.All(10, 100, true))
	assert.False(t, b.All(9, 100, true))
	assert.True(t, b.Contains(0, 11, true))
	assert.False(t, b.Contains(110, 190, true))
	assert.Equal(t, 0, b.Count(300, 0, true))
}

func TestScanFirstFit(t *testing.T) {
	b := New(256)
	assert.Equal(t, 0, b.Scan(0, 1, false))
	assert.Equal(t, 0, b.Scan(0, 256, false))
	assert.Equal(t, NotFound, b.Scan(0, 257, false))
	assert.Equal(t, NotFound, b.Scan(0, 1, true))
	assert.Equal(t, 7, b.Scan(7, 0, false))

	// used: [0,3) [5,70)
	b.SetMultiple(0, 3, true)
	b.SetMultiple(5, 65, true)

	assert.Equal(t, 3, b.Scan(0, 1, false))
	assert.Equal(t, 3, b.Scan(0, 2, false))
	assert.Equal(t, 70, b.Scan(0, 3, false))
	assert.Equal(t, 4, b.Scan(4, 1, false))
	assert.Equal(t, 70, b.Scan(5, 1, false))
	assert.Equal(t, 70, b.Scan(0, 186, false))
	assert.Equal(t, NotFound, b.Scan(0, 187, false))

	assert.Equal(t, 0, b.Scan(0, 3, true))
	assert.Equal(t, 5, b.Scan(0, 4, true))
	assert.Equal(t, 5, b.Scan(0, 65, true))
	assert.Equal(t, NotFound, b.Scan(0, 66, true))
}

func TestScanRunAcrossWords(t *testing.T) {
	b := New(320)
	b.SetMultiple(0, 320, true)
	// free run [100, 230) spans a mixed word, full words, and a mixed word
	b.SetMultiple(100, 130, false)
	assert.Equal(t, 100, b.Scan(0, 130, false))
	assert.Equal(t, NotFound, b.Scan(0, 131, false))
	assert.Equal(t, 150, b.Scan(150, 80, false))
}

func TestScanAndFlip(t *testing.T) {
	b := New(100)
	assert.Equal(t, 0, b.ScanAndFlip(0, 3, false))
	assert.Equal(t, 3, b.ScanAndFlip(0, 3, false))
	assert.True(t, b.All(0, 6, true))

	b.SetMultiple(0, 3, false)
	assert.Equal(t, 0, b.ScanAndFlip(0, 3, false))

	sum := b.Sum64()
	assert.Equal(t, NotFound, b.ScanAndFlip(0, 95, false))
	assert.Equal(t, sum, b.Sum64())
}

func TestSum64(t *testing.T) {
	a, b := New(200), New(200)
	assert.Equal(t, a.Sum64(), b.Sum64())
	a.Set(199, true)
	assert.NotEqual(t, a.Sum64(), b.Sum64())
	b.Set(199, true)
	assert.Equal(t, a.Sum64(), b.Sum64())
}

func BenchmarkScanAndFlip(b *testing.B) {
	bm := New(1 << 16)
	for i := 0; i < bm.Size(); i += 3 {
		bm.Set(i, true)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx := bm.ScanAndFlip(0, 2, false)
		if idx != NotFound {
			bm.SetMultiple(idx, 2, false)
		}
	}
}
