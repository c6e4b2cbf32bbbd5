// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// observation is one input to the [*FailFastFactory] state machine
type observation int

const (
	obsSuccess observation = iota
	obsFail
	obsTimeout
	obsTimeoutFail
	obsClose
)

// ffState is the coarse state of a [*FailFastFactory].
type ffState int

const (
	ffOk ffState = iota
	ffRetrying
)

// ffSnapshot is the state readers (IsAvailable, gauges) observe via an
// atomically published reference. A stale read is acceptable: every
// transition is followed by further observations that converge behaviour.
type ffSnapshot struct {
	state  ffState
	since  time.Time
	ntries int
	rest   Backoffs
}

// NewFailFastFactory returns a [*FailFastFactory] named name, wrapping
// wrapped. name is used only for logging and metrics labels.
func NewFailFastFactory[C any, S io.Closer](name string, wrapped Factory[C, S], cfg *Config) *FailFastFactory[C, S] {
	f := &FailFastFactory[C, S]{
		name:          name,
		wrapped:       wrapped,
		clock:         cfg.Clock,
		backoffs:      cfg.Backoffs,
		jitterSource:  cfg.JitterSource,
		errClassifier: cfg.ErrClassifier,
		logger:        cfg.Logger,
		obsCh:         make(chan observation, 8),
		doneCh:        make(chan struct{}),
	}
	f.state.Store(&ffSnapshot{state: ffOk})
	f.metrics = newFailFastMetrics(name, f.unhealthyForMSFloat, f.unhealthyTriesFloat)
	go f.run()
	return f
}

// FailFastFactory prevents thundering-herd reconnection to a downstream
// [Factory] that is currently failing, by serialising observations onto a
// single-consumer event processor and probing in the background.
type FailFastFactory[C any, S io.Closer] struct {
	name          string
	wrapped       Factory[C, S]
	clock         clockwork.Clock
	backoffs      Backoffs
	jitterSource  func() float64
	errClassifier ErrClassifier
	logger        SLogger
	metrics       *failFastMetrics

	state atomic.Pointer[ffSnapshot]

	obsCh      chan observation
	doneCh     chan struct{}
	closeOnce  sync.Once
	timerMu    sync.Mutex // guards timer, written only by the event processor goroutine
	timer      clockwork.Timer
}

var _ Factory[any, io.Closer] = (*FailFastFactory[any, io.Closer])(nil)

// Acquire implements [Factory]. If the endpoint is currently Retrying it
// fails immediately with [*EndpointMarkedDownError] without touching the
// wrapped factory; otherwise it forwards to the wrapped factory and
// reports Success or Fail to the state machine.
func (f *FailFastFactory[C, S]) Acquire(ctx context.Context, conn C) (S, error) {
	var zero S
	if f.state.Load().state == ffRetrying {
		return zero, NewEndpointMarkedDownError()
	}
	svc, err := f.wrapped.Acquire(ctx, conn)
	if err != nil {
		f.observe(obsFail)
		return zero, err
	}
	f.observe(obsSuccess)
	return svc, nil
}

// IsAvailable implements [Factory]: true iff state is Ok and the wrapped
// factory reports available.
func (f *FailFastFactory[C, S]) IsAvailable() bool {
	return f.state.Load().state == ffOk && f.wrapped.IsAvailable()
}

// Close implements [Factory]: sends Close to the state machine, waits for
// the event processor to finish, then closes the wrapped factory.
func (f *FailFastFactory[C, S]) Close(ctx context.Context) error {
	f.closeOnce.Do(func() {
		f.observe(obsClose)
		select {
		case <-f.doneCh:
		case <-ctx.Done():
		}
	})
	return f.wrapped.Close(ctx)
}

// MarkedDead returns the `failfast/marked_dead` counter value.
func (f *FailFastFactory[C, S]) MarkedDead() float64 { return testutil.ToFloat64(f.metrics.markedDead) }

// MarkedAvailable returns the `failfast/marked_available` counter value.
func (f *FailFastFactory[C, S]) MarkedAvailable() float64 {
	return testutil.ToFloat64(f.metrics.markedAvailable)
}

// UnhealthyForMS returns milliseconds since entering Retrying, or 0 when Ok.
func (f *FailFastFactory[C, S]) UnhealthyForMS() int64 {
	return int64(f.unhealthyForMSFloat())
}

// UnhealthyNumTries returns ntries when Retrying, or 0 when Ok.
func (f *FailFastFactory[C, S]) UnhealthyNumTries() int {
	return int(f.unhealthyTriesFloat())
}

func (f *FailFastFactory[C, S]) unhealthyForMSFloat() float64 {
	snap := f.state.Load()
	if snap.state != ffRetrying {
		return 0
	}
	return float64(f.clock.Now().Sub(snap.since).Milliseconds())
}

func (f *FailFastFactory[C, S]) unhealthyTriesFloat() float64 {
	snap := f.state.Load()
	if snap.state != ffRetrying {
		return 0
	}
	return float64(snap.ntries)
}

// observe enqueues obs for the event processor. If the processor has
// already shut down (post-Close), the observation is dropped rather than
// blocking forever.
func (f *FailFastFactory[C, S]) observe(obs observation) {
	select {
	case f.obsCh <- obs:
	case <-f.doneCh:
	}
}

// run is the single-consumer event processor: the only goroutine that
// mutates state.
func (f *FailFastFactory[C, S]) run() {
	for obs := range f.obsCh {
		if f.handle(obs) {
			close(f.doneCh)
			return
		}
	}
}

// handle applies one observation and returns true if the processor should
// terminate (i.e. obs was Close).
func (f *FailFastFactory[C, S]) handle(obs observation) bool {
	cur := f.state.Load()
	switch cur.state {
	case ffOk:
		return f.handleOk(obs)
	default:
		return f.handleRetrying(cur, obs)
	}
}

func (f *FailFastFactory[C, S]) handleOk(obs observation) bool {
	switch obs {
	case obsFail:
		d, rest, ok := f.backoffs.Next()
		since := f.clock.Now()
		next := &ffSnapshot{state: ffRetrying, since: since, ntries: 0, rest: rest}
		f.state.Store(next)
		f.metrics.markedDead.Inc()
		f.logger.Info("failfastMarkedDead", slog.String("endpoint", f.name), slog.Time("since", since))
		if ok {
			f.scheduleTimer(d)
		} else {
			// An empty finite schedule is exhausted from the start:
			// recover optimistically right away, as on later exhaustion.
			f.state.Store(&ffSnapshot{state: ffOk})
			f.logger.Info("failfastBackoffExhausted", slog.String("endpoint", f.name))
		}
		return false
	case obsClose:
		f.cancelTimer()
		return true
	default:
		return false
	}
}

func (f *FailFastFactory[C, S]) handleRetrying(cur *ffSnapshot, obs observation) bool {
	switch obs {
	case obsSuccess:
		f.cancelTimer()
		f.state.Store(&ffSnapshot{state: ffOk})
		f.metrics.markedAvailable.Inc()
		f.logger.Info("failfastMarkedAvailable", slog.String("endpoint", f.name))
		return false
	case obsTimeout:
		f.probe()
		return false
	case obsTimeoutFail:
		d, rest, ok := cur.rest.Next()
		if !ok {
			// Optimistic recovery: the fixed schedule is exhausted and we
			// have no better signal than live traffic.
			f.cancelTimer()
			f.state.Store(&ffSnapshot{state: ffOk})
			f.logger.Info("failfastBackoffExhausted", slog.String("endpoint", f.name))
			return false
		}
		next := &ffSnapshot{state: ffRetrying, since: cur.since, ntries: cur.ntries + 1, rest: rest}
		f.state.Store(next)
		f.scheduleTimer(d)
		return false
	case obsClose:
		f.cancelTimer()
		f.state.Store(&ffSnapshot{state: ffOk})
		return true
	default:
		return false
	}
}

// scheduleTimer arms the background probe timer after a jittered d. Like
// cancelTimer, it is only called from the event processor goroutine
// ([*FailFastFactory.Close] reaches the timer through an obsClose
// observation), and it holds timerMu around the access.
func (f *FailFastFactory[C, S]) scheduleTimer(d time.Duration) {
	jittered := jitter(d, f.jitterSource)
	f.timerMu.Lock()
	defer f.timerMu.Unlock()
	f.timer = f.clock.AfterFunc(jittered, func() {
		f.observe(obsTimeout)
	})
}

func (f *FailFastFactory[C, S]) cancelTimer() {
	f.timerMu.Lock()
	defer f.timerMu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// probe performs a single liveness check against the wrapped factory using
// the zero value of C as a "null connection". Background probes are not
// cancellable by external callers; only Close stops them.
func (f *FailFastFactory[C, S]) probe() {
	go func() {
		var zeroConn C
		svc, err := f.wrapped.Acquire(context.Background(), zeroConn)
		if err != nil {
			f.logger.Debug("failfastProbeFailed", slog.String("endpoint", f.name),
				slog.String("errClass", f.errClassifier.Classify(err)))
			f.observe(obsTimeoutFail)
			return
		}
		_ = svc.Close()
		f.observe(obsSuccess)
	}()
}

