// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 identifying one acquisition attempt.
//
// Attach it to a logger (e.g. via [*slog.Logger.With]) so that every
// failfast, dynname, and binding log line for one logical acquisition
// correlates.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
