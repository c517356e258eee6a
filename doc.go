// Copyright 2024 The Microalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package microalloc implements a general purpose dynamic memory
// allocator in the style of a segregated-fit, boundary-tag malloc: a
// single contiguous region obtained from the OS by repeatedly advancing
// a soft "program break", carved into blocks tracked by a small table of
// intrusive doubly-linked free lists.
//
// Every payload pointer Malloc, Calloc and Realloc hand back is aligned
// to twice the machine word size. Freed blocks are not returned to their
// size-segregated list immediately; they first land on an "unsorted"
// list (list index 0) that Malloc sweeps — and coalesces with physical
// neighbors — before falling back to the segregated lists. This defers
// the cost of coalescing until it is actually needed and gives recently
// freed blocks a chance at immediate reuse.
//
// An Allocator is not safe for concurrent use: there is no locking
// anywhere in this package, by design. Callers needing concurrent access
// must serialize it themselves.
package microalloc
