// Copyright 2024 The Microalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package microalloc

// findInList returns a block of size >= s from list, or (0, false). For
// small sizes (<= maxSmall) the head is returned without a size check:
// every block reachable from an exact-size bucket's head already has
// the bucket's exact size, which is >= s by construction of the index
// the caller started scanning from.
func findInList(list block, s uintptr) (block, bool) {
	if s <= maxSmall {
		if list != 0 {
			return list, true
		}
		return 0, false
	}
	for cur := list; cur != 0; cur = cur.next() {
		if cur.size() >= s {
			return cur, true
		}
	}
	return 0, false
}

// findBlock looks for a free block of at least size s. It first sweeps
// the unsorted list from its head, coalescing every block it visits,
// returning the first one large enough and moving to the segregated
// buckets anything too small for this request; only once the unsorted
// list is empty does it scan the segregated buckets from the smallest
// index that could hold s upward.
func (a *Allocator) findBlock(s uintptr) (block, bool) {
	for a.lists[0] != 0 {
		found := a.coalesce(a.lists[0])
		if !found.allocated() {
			a.remove(found)
		}
		if found.size() >= s {
			return found, true
		}
		a.insert(found, false)
	}

	for idx := listIndex(s); idx < listCount; idx++ {
		if found, ok := findInList(a.lists[idx], s); ok {
			return found, true
		}
	}
	return 0, false
}
