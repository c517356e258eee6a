// Copyright 2024 The Microalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package microalloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	cases := []struct{ n, want uintptr }{
		{0, 0},
		{1, alignment},
		{alignment, alignment},
		{alignment + 1, 2 * alignment},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, align(c.n), "align(%d)", c.n)
	}
}

func TestListIndexExactBucketsStrictlyIncrease(t *testing.T) {
	prev := -1
	for s := uintptr(alignment); s < maxSmall; s += alignment {
		idx := listIndex(s)
		assert.Greater(t, idx, prev, "listIndex(%d) did not increase", s)
		assert.Less(t, idx, listCount-1)
		prev = idx
	}
}

func TestListIndexLargeBucketsAreMonotonic(t *testing.T) {
	prev := listIndex(512)
	for _, s := range []uintptr{1024, 1 << 16, 1 << 20, 1 << 30} {
		idx := listIndex(s)
		assert.GreaterOrEqual(t, idx, prev)
		assert.Less(t, idx, listCount)
		prev = idx
	}
}

func TestListIndexNeverOverflowsTopBucket(t *testing.T) {
	assert.Equal(t, listCount-1, listIndex(^uintptr(0)&sizeMask))
}

func TestHeaderFooterRoundTrip(t *testing.T) {
	var a Allocator
	p, err := a.Malloc(200)
	require.NoError(t, err)
	b := blockFromPayload(unsafe.Pointer(&p[0]))
	a.Free(p)
	assert.Equal(t, *b.header(), *b.footer())
	assert.False(t, b.allocated())
}

func TestMarkAllocatedClearsQuickNotSize(t *testing.T) {
	var a Allocator
	p, err := a.Malloc(64)
	require.NoError(t, err)
	b := blockFromPayload(unsafe.Pointer(&p[0]))
	size := b.size()
	*b.header() |= flagQuick
	b.markAllocated()
	assert.Equal(t, size, b.size())
	assert.True(t, b.allocated())
	assert.Zero(t, *b.header()&flagQuick)
}
