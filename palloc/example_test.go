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
	"os"

	"github.com/cloudwego/palloc/physmem"
)

func Example() {
	ram, _ := physmem.NewRAM(physmem.LowReserve + 100*physmem.PageSize)
	opt := DefaultOption()
	opt.Quiet = true
	a, _ := Boot(ram, opt)

	p1 := a.Alloc(UserPool, 3, FlagZero)
	p2 := a.Alloc(UserPool, 3, 0)
	fmt.Println(p1, p2)

	a.Free(p1, 3)
	fmt.Println(a.Alloc(UserPool, 3, 0) == p1)

	_ = a.Report(os.Stdout)

	// Output:
	// 0x133000 0x136000
	// true
	// Total pages: 98
	// Free pages: 92
	// Used pages: 6
}
