// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"math/rand/v2"
	"net"
	"time"

	"github.com/bassosimone/svcres/dtab"
	"github.com/jonboulle/clockwork"
)

// DefaultMaxNameCacheSize is [Config.MaxNameCacheSize]'s default.
const DefaultMaxNameCacheSize = 8

// DefaultMaxNamerCacheSize is [Config.MaxNamerCacheSize]'s default.
const DefaultMaxNamerCacheSize = 4

// Config holds common configuration for svcres operations.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Backoffs is the lazy backoff schedule [*FailFastFactory] consumes
	// while Retrying.
	//
	// Set by [NewConfig] to [DefaultBackoffs].
	Backoffs Backoffs

	// MaxNameCacheSize bounds [BindingFactory]'s NameCache.
	//
	// Set by [NewConfig] to [DefaultMaxNameCacheSize].
	MaxNameCacheSize int

	// MaxNamerCacheSize bounds [BindingFactory]'s DtabCache.
	//
	// Set by [NewConfig] to [DefaultMaxNamerCacheSize].
	MaxNamerCacheSize int

	// BaseDtabProvider returns the process-wide base [dtab.Dtab] snapshot.
	//
	// Set by [NewConfig] to a provider returning the empty table.
	BaseDtabProvider Func[Unit, dtab.Dtab]

	// Clock abstracts time and timers, letting tests advance
	// [*FailFastFactory]'s backoff schedule without real sleeps.
	//
	// Set by [NewConfig] to [clockwork.NewRealClock].
	Clock clockwork.Clock

	// JitterSource returns a fresh uniform value in [0, 1) used to jitter
	// each scheduled backoff duration.
	//
	// Set by [NewConfig] to [math/rand/v2.Float64].
	JitterSource func() float64

	// ErrClassifier classifies raw downstream errors before they're traced.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewConfig] to [DefaultSLogger].
	Logger SLogger

	// Dialer is used by [*ConnectFunc] to establish new connections.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// TimeNow returns the current time, used by [*ConnectFunc] and
	// [*ObserveConnFunc] to timestamp logged events.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Backoffs:          DefaultBackoffs(),
		MaxNameCacheSize:  DefaultMaxNameCacheSize,
		MaxNamerCacheSize: DefaultMaxNamerCacheSize,
		BaseDtabProvider:  ConstFunc(dtab.Dtab{}),
		Clock:             clockwork.NewRealClock(),
		JitterSource:      rand.Float64,
		ErrClassifier:     DefaultErrClassifier,
		Logger:            DefaultSLogger(),
		Dialer:            &net.Dialer{},
		TimeNow:           time.Now,
	}
}
