// SPDX-License-Identifier: GPL-3.0-or-later

// Package svcrestub provides function-based test doubles for the
// interfaces in [github.com/bassosimone/svcres], in the same spirit as
// netstub's FuncConn/FuncDialer: each type wraps a set of optional
// function fields and falls back to an innocuous default when a field is
// left nil.
package svcrestub

import (
	"context"
	"io"

	"github.com/bassosimone/svcres"
)

// FuncFactory adapts function fields to the [svcres.Factory] interface.
// A nil func field falls back to a default that cannot fail: Acquire
// returns the zero S, IsAvailable returns true, Close returns nil.
type FuncFactory[C any, S io.Closer] struct {
	AcquireFunc     func(ctx context.Context, conn C) (S, error)
	IsAvailableFunc func() bool
	CloseFunc       func(ctx context.Context) error
}

var _ svcres.Factory[any, io.Closer] = (*FuncFactory[any, io.Closer])(nil)

// Acquire implements [svcres.Factory].
func (f *FuncFactory[C, S]) Acquire(ctx context.Context, conn C) (S, error) {
	if f.AcquireFunc != nil {
		return f.AcquireFunc(ctx, conn)
	}
	var zero S
	return zero, nil
}

// IsAvailable implements [svcres.Factory].
func (f *FuncFactory[C, S]) IsAvailable() bool {
	if f.IsAvailableFunc != nil {
		return f.IsAvailableFunc()
	}
	return true
}

// Close implements [svcres.Factory].
func (f *FuncFactory[C, S]) Close(ctx context.Context) error {
	if f.CloseFunc != nil {
		return f.CloseFunc(ctx)
	}
	return nil
}

// FuncCloser adapts a function field to [io.Closer], the minimal shape of
// a service returned by [svcres.Factory.Acquire] in tests.
type FuncCloser struct {
	CloseFunc func() error
}

var _ io.Closer = (*FuncCloser)(nil)

// Close implements [io.Closer].
func (c *FuncCloser) Close() error {
	if c.CloseFunc != nil {
		return c.CloseFunc()
	}
	return nil
}

// FuncTracer adapts a function field to the [svcres.Tracer] interface.
type FuncTracer struct {
	RecordBinaryFunc func(key, value string)
}

var _ svcres.Tracer = (*FuncTracer)(nil)

// RecordBinary implements [svcres.Tracer].
func (t *FuncTracer) RecordBinary(key, value string) {
	if t.RecordBinaryFunc != nil {
		t.RecordBinaryFunc(key, value)
	}
}
