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

import "errors"

var (
	// ErrPoolTooSmall indicates a region cannot hold its own occupancy map.
	ErrPoolTooSmall = errors.New("palloc: not enough memory in pool for bitmap")

	// ErrMisaligned indicates an address which does not start a page.
	ErrMisaligned = errors.New("palloc: address is not page aligned")

	// ErrForeignAddr indicates an address owned by neither pool.
	ErrForeignAddr = errors.New("palloc: address not from any pool")

	// ErrOutOfPages indicates a pool has no run of free pages long enough.
	ErrOutOfPages = errors.New("palloc: out of pages")

	// ErrDoubleFree indicates a free of pages which are already free.
	ErrDoubleFree = errors.New("palloc: double free")

	// ErrRangeOverflow indicates a page range running past the end of its pool.
	ErrRangeOverflow = errors.New("palloc: page range exceeds pool")

	// ErrBadOption indicates an invalid Option value.
	ErrBadOption = errors.New("palloc: bad option")
)
