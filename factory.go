// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"context"
	"io"
)

// Factory is the downstream collaborator interface every layer of this
// core wraps. It is satisfied by an endpoint factory, by another layer of
// this core, or by whatever balancer/transport sits below the core — all
// of that is external to this package.
//
// S must implement [io.Closer]; closing the returned service is expected to
// be idempotent. Closing a service does not release a
// [ServiceFactoryCache] reference: the cache counts references per handle
// returned by [ServiceFactoryCache.Get], and only that handle's Close
// releases one.
type Factory[C any, S io.Closer] interface {
	// Acquire returns a service built from conn, or an error.
	Acquire(ctx context.Context, conn C) (S, error)

	// IsAvailable reports whether the factory can currently serve Acquire.
	IsAvailable() bool

	// Close releases the factory's resources. ctx bounds how long Close
	// waits for in-flight work to wind down; it does not cancel work that
	// has already been handed to the wrapped factory.
	Close(ctx context.Context) error
}

// Tracer records key/value annotations for one acquisition attempt
// Implementations must not panic and must return quickly; failures from
// a user-supplied Tracer are swallowed by
// the Tracer [WrapTracer] returns, to keep the data path safe.
type Tracer interface {
	RecordBinary(key, value string)
}

// TracerFunc adapts a function to the [Tracer] interface.
type TracerFunc func(key, value string)

// RecordBinary implements [Tracer].
func (f TracerFunc) RecordBinary(key, value string) { f(key, value) }

// NoopTracer is a [Tracer] that discards every annotation.
var NoopTracer Tracer = TracerFunc(func(string, string) {})
