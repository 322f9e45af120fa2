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
	"io"
	"sync/atomic"
)

// Usage is a snapshot of the allocator's page counters.
type Usage struct {
	Total int
	Free  int
	Used  int
}

func (u Usage) String() string {
	return fmt.Sprintf("Total pages: %d\nFree pages: %d\nUsed pages: %d\n", u.Total, u.Free, u.Used)
}

// Usage returns the current counters. The snapshot is not synchronized with
// concurrent Alloc and Free calls.
func (a *Allocator) Usage() Usage {
	free := a.FreePages()
	return Usage{
		Total: a.TotalPages(),
		Free:  free,
		Used:  a.TotalPages() - free,
	}
}

// Report writes the counters to w, one per line.
func (a *Allocator) Report(w io.Writer) error {
	_, err := io.WriteString(w, a.Usage().String())
	return err
}

// Verify checks that each pool's free count matches its map and that the
// allocator-wide free counter is their sum. Both pools are locked for the
// duration, so the check is exact even with concurrent callers.
func (a *Allocator) Verify() error {
	a.kernel.mu.Lock()
	defer a.kernel.mu.Unlock()
	a.user.mu.Lock()
	defer a.user.mu.Unlock()

	sum := 0
	for _, p := range []*Pool{a.kernel, a.user} {
		n := p.countFree()
		if n != p.free {
			return fmt.Errorf("palloc: %s counts %d free pages, map has %d", p.Name(), p.free, n)
		}
		sum += n
	}
	if free := atomic.LoadInt64(&a.free); free != int64(sum) {
		return fmt.Errorf("palloc: %d free pages counted, pools have %d", free, sum)
	}
	if total := a.kernel.capacity + a.user.capacity; int64(total) != a.total {
		return fmt.Errorf("palloc: %d total pages counted, pools have %d", a.total, total)
	}
	return nil
}
