// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2024 The Microalloc Authors.

//go:build darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd

package microalloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// reserveRegion asks the kernel for size bytes of anonymous, private
// address space. Pages are backed lazily; nothing is actually committed
// until touched, so reserving a generous size up front costs nothing
// beyond address space itself.
func reserveRegion(size uintptr) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, err
	}

	addr := uintptr(unsafe.Pointer(&b[0]))
	if addr&(alignment-1) != 0 {
		panic("microalloc: mmap returned a misaligned region")
	}
	return addr, nil
}
