// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import "log/slog"

// namerTracing wraps a caller-supplied [Tracer] so that a panicking or
// misbehaving implementation cannot disrupt the data path: RecordBinary
// recovers from panics and logs them instead of propagating.
type namerTracing struct {
	underlying Tracer
	logger     SLogger
}

// WrapTracer returns a [Tracer] that forwards RecordBinary calls to
// underlying, recovering from any panic underlying raises and logging it
// via logger instead of letting it escape onto the acquisition path.
func WrapTracer(underlying Tracer, logger SLogger) Tracer {
	if underlying == nil {
		underlying = NoopTracer
	}
	return &namerTracing{underlying: underlying, logger: logger}
}

// RecordBinary implements [Tracer].
func (t *namerTracing) RecordBinary(key, value string) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Info("tracerPanicRecovered", slog.String("key", key), slog.Any("recover", r))
		}
	}()
	t.underlying.RecordBinary(key, value)
}
