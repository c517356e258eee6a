// Copyright 2024 The Microalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package microalloc

import (
	"fmt"
	"os"
	"unsafe"
)

// UnsafeMalloc is like Malloc except it returns an unsafe.Pointer
// instead of a byte slice, for callers that already traffic in raw
// pointers (cgo boundaries, on-disk layouts reinterpreted in place).
func (a *Allocator) UnsafeMalloc(size uintptr) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "UnsafeMalloc(%#x) %p, %v\n", size, r, err) }()
	}
	b, err := a.malloc(size)
	if err != nil || b == 0 {
		return nil, err
	}
	return b.payload(), nil
}

// UnsafeCalloc is like Calloc except it returns an unsafe.Pointer.
func (a *Allocator) UnsafeCalloc(nmemb, size uintptr) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "UnsafeCalloc(%#x, %#x) %p, %v\n", nmemb, size, r, err) }()
	}
	b, err := a.calloc(nmemb, size)
	if err != nil || b == 0 {
		return nil, err
	}
	return b.payload(), nil
}

// UnsafeFree is like Free except its argument is an unsafe.Pointer,
// which must have been acquired from UnsafeMalloc, UnsafeCalloc or
// UnsafeRealloc (or the byte-slice forms).
func (a *Allocator) UnsafeFree(p unsafe.Pointer) {
	if trace {
		defer fmt.Fprintf(os.Stderr, "UnsafeFree(%p)\n", p)
	}
	if p == nil {
		return
	}
	a.free(blockFromPayload(p))
}

// UnsafeRealloc is like Realloc except its first argument and result
// are unsafe.Pointers.
func (a *Allocator) UnsafeRealloc(p unsafe.Pointer, size uintptr) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "UnsafeRealloc(%p, %#x) %p, %v\n", p, size, r, err) }()
	}
	return a.realloc(p, size)
}
