// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2024 The Microalloc Authors.

//go:build windows

package microalloc

import (
	"golang.org/x/sys/windows"
)

// reserveRegion reserves and commits size bytes of address space via
// VirtualAlloc. Windows has no lazy-commit-on-touch mapping as cheap to
// set up as Unix's anonymous mmap, so this commits the whole reservation
// up front; it is still never written to until the allocator actually
// grows into it.
func reserveRegion(size uintptr) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return 0, err
	}

	if addr&(alignment-1) != 0 {
		panic("microalloc: VirtualAlloc returned a misaligned region")
	}
	return addr, nil
}
