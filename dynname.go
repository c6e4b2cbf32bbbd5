// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/bassosimone/svcres/activity"
	"github.com/bassosimone/svcres/dtab"
)

// dynState is the coarse state of a [*DynNameFactory], mirroring the
// Kind of the [activity.State] it is subscribed to, plus Closed.
type dynState int

const (
	dynPending dynState = iota
	dynNamed
	dynFailed
	dynClosed
)

// dynResult is what a queued Acquire eventually receives once the name
// resolves (or fails, or the factory closes).
type dynResult[S io.Closer] struct {
	svc S
	err error
}

// pendingAcquire is one Acquire call blocked waiting for the name to
// leave Pending.
type pendingAcquire[C any, S io.Closer] struct {
	ctx      context.Context
	conn     C
	resultCh chan dynResult[S]
}

// DynNameFactory adapts a reactive [*activity.Var] of [*dtab.BoundName]
// into the synchronous [Factory] interface: Acquire calls made while the
// name is Pending queue up and are served, in order, once the name
// resolves to Ok or Failed.
type DynNameFactory[C any, S io.Closer] struct {
	build  func(*dtab.BoundName) (Factory[C, S], error)
	logger SLogger
	name   string
	tracer Tracer

	mu      sync.Mutex
	state   dynState
	seq     uint64
	current Factory[C, S]
	failErr error
	pending []*pendingAcquire[C, S]
	closed  bool

	sub activity.Subscription
}

var _ Factory[any, io.Closer] = (*DynNameFactory[any, io.Closer])(nil)

// NewDynNameFactory returns a [*DynNameFactory] for name (used only for
// logging), subscribing to names and building a child [Factory] with
// build whenever names resolves to a new [*dtab.BoundName]. tracer
// records "namer.name"/"namer.failure" once per resolved/failed
// transition; a nil tracer is replaced with [NoopTracer].
func NewDynNameFactory[C any, S io.Closer](name string, names *activity.Var[*dtab.BoundName], build func(*dtab.BoundName) (Factory[C, S], error), logger SLogger, tracer Tracer) *DynNameFactory[C, S] {
	if tracer == nil {
		tracer = NoopTracer
	}
	f := &DynNameFactory[C, S]{
		build:  build,
		logger: logger,
		name:   name,
		tracer: tracer,
		state:  dynPending,
	}
	f.sub = names.Subscribe(activity.ObserverFunc[*dtab.BoundName](f.onUpdate))
	return f
}

// onUpdate is called synchronously on the producer's goroutine (see
// [activity.Var.Update]); it must not block, so the actual transition
// (which may call build, a potentially slow operation) runs on its own
// goroutine, tagged with a sequence number so a late, superseded update
// cannot clobber a newer one.
func (f *DynNameFactory[C, S]) onUpdate(state activity.State[*dtab.BoundName]) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()
	go f.handle(seq, state)
}

func (f *DynNameFactory[C, S]) handle(seq uint64, state activity.State[*dtab.BoundName]) {
	switch state.Kind() {
	case activity.Pending:
		f.mu.Lock()
		if f.seq == seq && !f.closed {
			f.state = dynPending
			f.current = nil
			f.failErr = nil
		}
		f.mu.Unlock()
	case activity.Ok:
		f.handleResolved(seq, state.Value())
	case activity.Failed:
		f.handleFailed(seq, state.Err())
	}
}

func (f *DynNameFactory[C, S]) handleResolved(seq uint64, name *dtab.BoundName) {
	factory, err := f.build(name)

	f.mu.Lock()
	if f.closed || f.seq != seq {
		f.mu.Unlock()
		if err == nil {
			go func() { _ = factory.Close(context.Background()) }()
		}
		return
	}
	if err != nil {
		f.mu.Unlock()
		f.handleFailed(seq, err)
		return
	}
	prev := f.current
	drained := f.pending
	f.pending = nil
	f.state = dynNamed
	f.current = factory
	f.failErr = nil
	// Traced before releasing the lock, so an Acquire that observes
	// dynNamed also observes the namer.name annotation.
	f.tracer.RecordBinary("namer.name", name.ID.Render())
	f.mu.Unlock()

	f.logger.Info("dynnameResolved", slog.String("name", f.name), slog.String("bound", name.ID.Render()))
	if prev != nil {
		go func() { _ = prev.Close(context.Background()) }()
	}
	for _, p := range drained {
		f.deliver(p)
	}
}

func (f *DynNameFactory[C, S]) handleFailed(seq uint64, cause error) {
	f.mu.Lock()
	if f.closed || f.seq != seq {
		f.mu.Unlock()
		return
	}
	prev := f.current
	drained := f.pending
	f.pending = nil
	f.state = dynFailed
	f.current = nil
	f.failErr = &NamingError{Cause: cause}
	f.mu.Unlock()

	f.logger.Info("dynnameFailed", slog.String("name", f.name), slog.Any("err", cause))
	f.tracer.RecordBinary("namer.failure", errKind(cause))
	if prev != nil {
		go func() { _ = prev.Close(context.Background()) }()
	}
	for _, p := range drained {
		f.deliver(p)
	}
}

// deliver resolves one queued Acquire against the current terminal state.
func (f *DynNameFactory[C, S]) deliver(p *pendingAcquire[C, S]) {
	f.mu.Lock()
	state := f.state
	factory := f.current
	err := f.failErr
	f.mu.Unlock()

	switch state {
	case dynNamed:
		svc, aerr := factory.Acquire(p.ctx, p.conn)
		p.resultCh <- dynResult[S]{svc: svc, err: aerr}
	case dynFailed:
		p.resultCh <- dynResult[S]{err: err}
	default:
		p.resultCh <- dynResult[S]{err: &ServiceClosedError{}}
	}
}

// Acquire implements [Factory]. While the name is Pending, it blocks
// until the name resolves, fails, ctx is done, or the factory closes.
func (f *DynNameFactory[C, S]) Acquire(ctx context.Context, conn C) (S, error) {
	var zero S

	f.mu.Lock()
	switch f.state {
	case dynClosed:
		f.mu.Unlock()
		return zero, &ServiceClosedError{}
	case dynNamed:
		factory := f.current
		f.mu.Unlock()
		return factory.Acquire(ctx, conn)
	case dynFailed:
		err := f.failErr
		f.mu.Unlock()
		return zero, err
	default:
		p := &pendingAcquire[C, S]{ctx: ctx, conn: conn, resultCh: make(chan dynResult[S], 1)}
		f.pending = append(f.pending, p)
		f.mu.Unlock()

		select {
		case res := <-p.resultCh:
			return res.svc, res.err
		case <-ctx.Done():
			return zero, &CancelledConnectionError{Cause: ctx.Err()}
		}
	}
}

// IsAvailable implements [Factory]: true only once the name has resolved
// and the child factory reports available.
func (f *DynNameFactory[C, S]) IsAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == dynNamed && f.current.IsAvailable()
}

// Close implements [Factory]: unsubscribes from the name, fails every
// still-queued Acquire, and closes the current child factory if any.
func (f *DynNameFactory[C, S]) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.state = dynClosed
	prev := f.current
	f.current = nil
	drained := f.pending
	f.pending = nil
	f.mu.Unlock()

	f.sub.Close()
	for _, p := range drained {
		p.resultCh <- dynResult[S]{err: &ServiceClosedError{}}
	}
	if prev != nil {
		return prev.Close(ctx)
	}
	return nil
}
