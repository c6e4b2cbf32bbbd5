// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import "time"

// Backoffs is a lazy sequence of backoff durations, consumed one per retry
// by [*FailFastFactory]. Exhaustion is defined only for
// finite schedules: [Backoffs.Next] reports ok=false once a finite
// schedule runs out, which [*FailFastFactory] treats as the signal for
// optimistic recovery.
type Backoffs interface {
	// Next returns the next duration to wait, the schedule to use for the
	// following call, and ok=true — or ok=false if this (finite) schedule
	// is exhausted, in which case d and rest are not meaningful.
	Next() (d time.Duration, rest Backoffs, ok bool)
}

// backoffSchedule implements [Backoffs] as a finite list of durations
// optionally followed by a constant tail repeated forever.
type backoffSchedule struct {
	durations []time.Duration
	forever   time.Duration
	hasTail   bool
}

// NewBackoffs returns a [Backoffs] that yields durations in order, then
// repeats forever. This is the shape of [DefaultBackoffs].
func NewBackoffs(durations []time.Duration, forever time.Duration) Backoffs {
	return &backoffSchedule{durations: durations, forever: forever, hasTail: true}
}

// NewFiniteBackoffs returns a [Backoffs] that yields durations in order and
// then reports exhaustion (ok=false), for exercising backoff-exhaustion
// behavior deterministically.
func NewFiniteBackoffs(durations []time.Duration) Backoffs {
	return &backoffSchedule{durations: durations}
}

// DefaultBackoffs returns the default schedule: 1s, 2s, 4s, 8s, 16s, then
// 32s forever.
func DefaultBackoffs() Backoffs {
	return NewBackoffs([]time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, 32*time.Second)
}

// Next implements [Backoffs].
func (b *backoffSchedule) Next() (time.Duration, Backoffs, bool) {
	if len(b.durations) > 0 {
		d := b.durations[0]
		rest := &backoffSchedule{durations: b.durations[1:], forever: b.forever, hasTail: b.hasTail}
		return d, rest, true
	}
	if !b.hasTail {
		return 0, nil, false
	}
	return b.forever, b, true
}

// jitter adds a uniformly distributed value in [0, 10%] of d, truncated to
// milliseconds. source must return a value in [0, 1).
func jitter(d time.Duration, source func() float64) time.Duration {
	maxJitter := d / 10
	if maxJitter <= 0 {
		return d
	}
	j := time.Duration(source() * float64(maxJitter))
	j = j.Truncate(time.Millisecond)
	return d + j
}
