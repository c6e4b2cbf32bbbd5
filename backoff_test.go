// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBackoffsThenForever(t *testing.T) {
	b := DefaultBackoffs()

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for _, w := range want {
		d, rest, ok := b.Next()
		require.True(t, ok)
		assert.Equal(t, w, d)
		b = rest
	}

	// After the finite prefix, the tail repeats forever.
	for range 3 {
		d, rest, ok := b.Next()
		require.True(t, ok)
		assert.Equal(t, 32*time.Second, d)
		b = rest
	}
}

func TestFiniteBackoffsExhausts(t *testing.T) {
	b := NewFiniteBackoffs([]time.Duration{time.Second})

	d, rest, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, time.Second, d)

	_, _, ok = rest.Next()
	assert.False(t, ok)
}

func TestJitterAddsNonNegativeUpToTenPercent(t *testing.T) {
	d := 10 * time.Second
	for _, f := range []float64{0, 0.25, 0.5, 0.999} {
		got := jitter(d, func() float64 { return f })
		assert.GreaterOrEqual(t, got, d)
		assert.LessOrEqual(t, got, d+d/10)
	}
}

func TestJitterTruncatesToMilliseconds(t *testing.T) {
	got := jitter(time.Second, func() float64 { return 0.123456 })
	assert.Equal(t, time.Duration(0), got%time.Millisecond)
}

func TestJitterSmallDurationNoJitter(t *testing.T) {
	got := jitter(5*time.Millisecond, func() float64 { return 0.9 })
	assert.Equal(t, 5*time.Millisecond, got)
}
