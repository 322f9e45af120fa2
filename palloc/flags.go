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

import "fmt"

// Flags modify an allocation.
type Flags uint8

const (
	// FlagAssert panics when the pool cannot satisfy the request.
	FlagAssert Flags = 1 << iota
	// FlagZero zero-fills the returned pages.
	FlagZero
	// FlagUser selects the user pool in GetMultiple and GetPage.
	FlagUser
)

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	s := ""
	for _, x := range []struct {
		f    Flags
		name string
	}{{FlagAssert, "assert"}, {FlagZero, "zero"}, {FlagUser, "user"}} {
		if f&x.f != 0 {
			if s != "" {
				s += "|"
			}
			s += x.name
		}
	}
	if rest := f &^ (FlagAssert | FlagZero | FlagUser); rest != 0 {
		if s != "" {
			s += "|"
		}
		s += fmt.Sprintf("%#x", uint8(rest))
	}
	return s
}

// PoolKind selects one of the two pools.
type PoolKind int

const (
	// KernelPool holds pages for kernel structures.
	KernelPool PoolKind = iota
	// UserPool holds pages for user processes.
	UserPool
)

func (k PoolKind) String() string {
	switch k {
	case KernelPool:
		return "kernel pool"
	case UserPool:
		return "user pool"
	}
	return fmt.Sprintf("PoolKind(%d)", int(k))
}
