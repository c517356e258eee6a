// Copyright 2024 The Microalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package microalloc

import "github.com/cznic/mathutil"

// listIndex maps a block size to its free-list bucket. Sizes below 512
// bytes get an exact-size bucket, one per alignment step; sizes at or
// above 512 get a power-of-two bucket, with the top bucket absorbing
// everything from 2^20 bytes up.
func listIndex(s uintptr) int {
	if s < 512 {
		return int(s>>3) - 1
	}
	t := s >> 10
	k := mathutil.BitLen(int(t))
	idx := 63 + k
	if idx > listCount-1 {
		idx = listCount - 1
	}
	return idx
}

// insert pushes b onto the unsorted list (list 0) if unsorted is true,
// or onto its size-segregated bucket otherwise. It always leaves b
// marked free and coalescable, with its footer in sync.
func (a *Allocator) insert(b block, unsorted bool) {
	b.markFreeCoalescable()
	b.copyHeaderToFooter()

	var head *block
	if unsorted {
		head = &a.lists[0]
	} else {
		head = &a.lists[listIndex(b.size())]
	}

	old := *head
	b.setNext(old)
	b.setPrev(0)
	if old != 0 {
		old.setPrev(b)
	}
	*head = b
}

// remove splices b out of whichever free list it is on — the unsorted
// list or its size bucket, it does not matter which, since the removal
// only relies on link invariants — and marks it allocated.
func (a *Allocator) remove(b block) {
	sizeHead := &a.lists[listIndex(b.size())]
	unsortedHead := &a.lists[0]

	switch {
	case b == *sizeHead:
		*sizeHead = b.next()
		if *sizeHead != 0 {
			(*sizeHead).setPrev(0)
		}
	case b == *unsortedHead:
		*unsortedHead = b.next()
		if *unsortedHead != 0 {
			(*unsortedHead).setPrev(0)
		}
	default:
		b.prev().setNext(b.next())
	}
	if b.next() != 0 {
		b.next().setPrev(b.prev())
	}
	b.markAllocated()
	b.copyHeaderToFooter()
}
