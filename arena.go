// Copyright 2024 The Microalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package microalloc

import "errors"

// reservationSize is how much address space arena.open reserves up
// front. This module has no literal sbrk(2) to call — Go's runtime
// already owns the process break for its own heap — so the OS boundary
// is realized with a single large anonymous mapping, the same approach
// cznic/memory itself takes for the same reason. Growth then just
// advances an offset into that reservation rather than ever moving or
// re-mapping it, which is what lets every block address handed out stay
// valid for the life of the Allocator. Running past the reservation is
// treated exactly like an OS refusal to grow the segment.
const reservationSize = 1 << 32 // 4 GiB of address space; see reserveRegion for how each platform commits it.

var errArenaExhausted = errors.New("microalloc: heap reservation exhausted")

// arena is the OS-backed, monotonically growing region an Allocator
// manages. Its zero value is unopened; the first call to grow reserves
// the backing mapping.
type arena struct {
	base uintptr // address of the reservation; 0 until opened
	used uintptr // bytes "broken" so far
}

func (ar *arena) open() error {
	if ar.base != 0 {
		return nil
	}
	base, err := reserveRegion(reservationSize)
	if err != nil {
		return err
	}
	ar.base = base
	return nil
}

func (ar *arena) brk() uintptr {
	return ar.base + ar.used
}

// grow advances the break by n bytes and returns the previous break.
// grow(0) returns the current break without changing anything. A
// request that would exceed the reservation fails without mutating any
// state, matching the "no partial commit" contract public operations
// rely on.
func (ar *arena) grow(n uintptr) (uintptr, error) {
	if err := ar.open(); err != nil {
		return 0, err
	}
	if n == 0 {
		return ar.brk(), nil
	}
	if ar.used+n < ar.used || ar.used+n > reservationSize {
		return 0, errArenaExhausted
	}
	prev := ar.brk()
	ar.used += n
	return prev, nil
}
