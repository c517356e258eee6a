// Copyright 2024 The Microalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package microalloc

import "unsafe"

const (
	wordSize  = unsafe.Sizeof(uintptr(0))
	alignment = 2 * wordSize // A in the design docs; A >= 16 on any platform we run on.

	// minBlockSize is the smallest size a free block may have: one word
	// for the header, one for the next link, one for the prev link, one
	// for the footer.
	minBlockSize = 4 * wordSize

	// maxSmall is the largest size served by an exact-size bucket; above
	// it, buckets hold a power-of-two range and must be walked.
	maxSmall = 504

	// listCount is the number of free lists: index 0 is the unsorted
	// list, 1..62 are exact-size buckets up to maxSmall, 63..74 are
	// power-of-two buckets.
	listCount = 75

	flagAllocated = uintptr(1) << 0
	flagQuick     = uintptr(1) << 1 // reserved; never set by this package (see DESIGN.md)
	flagMask      = uintptr(0x7)
	sizeMask      = ^flagMask
)

// block is the address of a block's header word. The zero block denotes
// "no block" (nil), mirroring a null pointer.
type block uintptr

// align rounds n up to the next multiple of alignment.
func align(n uintptr) uintptr {
	return (n + alignment - 1) &^ (alignment - 1)
}

func (b block) header() *uintptr {
	return (*uintptr)(unsafe.Pointer(b))
}

func (b block) size() uintptr {
	return *b.header() & sizeMask
}

func (b block) allocated() bool {
	return *b.header()&flagAllocated != 0
}

// coalescable reports whether b itself may be merged into a neighbor:
// it must be free and not marked quick (uncoalescable).
func (b block) coalescable() bool {
	return *b.header()&(flagAllocated|flagQuick) == 0
}

// setSize overwrites b's size, preserving its flag bits. Must be
// followed by copyHeaderToFooter for any block that is (or is about to
// become) free; it is harmless, and done throughout this package
// regardless of allocation state, since the footer slot of an allocated
// block is never part of its payload (see the Data Model discussion in
// the design docs) and is simply overwritten again the next time the
// block's size changes.
func (b block) setSize(s uintptr) {
	h := b.header()
	*h = (*h & flagMask) | s
}

func (b block) footer() *uintptr {
	return (*uintptr)(unsafe.Pointer(uintptr(b) + b.size() - wordSize))
}

func (b block) copyHeaderToFooter() {
	*b.footer() = *b.header()
}

func (b block) setSizeAndFooter(s uintptr) {
	b.setSize(s)
	b.copyHeaderToFooter()
}

// markAllocated marks b allocated and clears the quick flag, without
// touching its size bits.
func (b block) markAllocated() {
	h := b.header()
	*h = (*h &^ flagQuick) | flagAllocated
}

// markFreeCoalescable marks b free and clears the quick flag, leaving it
// coalescable. Size bits are untouched.
func (b block) markFreeCoalescable() {
	h := b.header()
	*h = *h &^ (flagAllocated | flagQuick)
}

// initSentinel sets up b as a zero-size, allocated boundary block.
// Sentinels never get a footer write: their size is zero, so the
// "footer" location would be the word just before the header, which
// belongs to the previous block (or lies outside the region, for the
// prologue).
func (b block) initSentinel() {
	*b.header() = flagAllocated
}

// next/prev are the intrusive free-list links, stored immediately after
// the header. They are only meaningful while b is free and on a list.
func (b block) nextLink() *block {
	return (*block)(unsafe.Pointer(uintptr(b) + wordSize))
}

func (b block) prevLink() *block {
	return (*block)(unsafe.Pointer(uintptr(b) + 2*wordSize))
}

func (b block) next() block     { return *b.nextLink() }
func (b block) setNext(n block) { *b.nextLink() = n }
func (b block) prev() block     { return *b.prevLink() }
func (b block) setPrev(p block) { *b.prevLink() = p }

// payload returns the address handed out to the caller: one word past
// the header.
func (b block) payload() unsafe.Pointer {
	return unsafe.Pointer(uintptr(b) + wordSize)
}

// blockFromPayload recovers a block address from a payload pointer
// previously returned by payload.
func blockFromPayload(p unsafe.Pointer) block {
	return block(uintptr(p) - wordSize)
}

// prevPhysical returns b's immediate predecessor in address space, read
// via the boundary tag at b-wordSize. Only meaningful to dereference when
// prevCoalescable is true; the prologue sentinel's header (which is what
// this reads when b is the first real block) always reports allocated,
// so callers never need a separate bounds check.
func (b block) prevPhysical() block {
	prevFooter := *(*uintptr)(unsafe.Pointer(uintptr(b) - wordSize))
	return block(uintptr(b) - (prevFooter & sizeMask))
}

func (b block) prevCoalescable() bool {
	prevFooter := *(*uintptr)(unsafe.Pointer(uintptr(b) - wordSize))
	return prevFooter&(flagAllocated|flagQuick) == 0
}

// nextPhysical returns b's immediate successor in address space. Always
// safe to compute: it only depends on b's own (always-accurate) size.
func (b block) nextPhysical() block {
	return block(uintptr(b) + b.size())
}

func (b block) nextCoalescable() bool {
	return b.nextPhysical().coalescable()
}
