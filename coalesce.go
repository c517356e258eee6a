// Copyright 2024 The Microalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package microalloc

// coalesce merges b with its immediate physical neighbors, if they are
// themselves coalescable, and returns the resulting block (which starts
// at whichever of b or its predecessor ended up at the lower address).
// It never inserts the result onto any list — the caller decides that —
// and it removes any absorbed neighbor from its own list as it goes.
func (a *Allocator) coalesce(b block) block {
	newSize := b.size()
	local := b

	if b.prevCoalescable() {
		prev := b.prevPhysical()
		a.remove(prev)
		newSize += prev.size()
		local = prev
	}
	if b.nextCoalescable() {
		next := b.nextPhysical()
		a.remove(next)
		newSize += next.size()
	}
	if newSize != b.size() {
		if !b.allocated() {
			a.remove(b)
		}
		local.setSizeAndFooter(newSize)
	}
	return local
}

// split trims b down to size s, if the remainder is large enough to be
// a valid free block on its own, merges that remainder with a free
// successor if there is one, and puts the result on the unsorted list.
// Otherwise b keeps its full size: internal fragmentation of up to
// minBlockSize-alignment bytes is tolerated rather than produced as an
// unusably small free block.
func (a *Allocator) split(b block, s uintptr) {
	remainder := b.size() - s
	if remainder < minBlockSize {
		return
	}
	b.setSizeAndFooter(s)
	tail := b.nextPhysical()
	tail.setSize(remainder)
	tail.markAllocated()
	tail.copyHeaderToFooter()
	a.insert(a.coalesce(tail), true)
}
