// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/bassosimone/svcres/activity"
	"github.com/bassosimone/svcres/dtab"
)

// evalDtabState evaluates path under d once and reports the outcome as an
// [activity.State], per the None/Some(empty)/Some({n})/Some(S) cases: no
// resolution or an empty result set fails with [*NoBrokersAvailableError];
// a single bound name resolves to it directly; more than one resolves to
// their [dtab.UnionName]. An evaluation error (such as
// [dtab.ErrNameTreeFail] or [dtab.ErrDelegationTooDeep]) fails with that
// error unchanged.
func evalDtabState(path dtab.Path, d dtab.Dtab) activity.State[*dtab.BoundName] {
	set, ok, err := dtab.Eval(d, dtab.Leaf(path))
	if err != nil {
		return activity.FailedState[*dtab.BoundName](err)
	}
	if !ok || len(set) == 0 {
		return activity.FailedState[*dtab.BoundName]((&NoBrokersAvailableError{Path: path}).WithLocalDtab(d))
	}
	name := set[0]
	if len(set) > 1 {
		name = dtab.UnionName(set)
	}
	return activity.OkState(name)
}

// BindingFactory is the top-level entry point of this package: given a
// logical [dtab.Path] and a request-scoped local [dtab.Dtab], it resolves
// a concrete endpoint and acquires a service from it, sharing both the
// resolution step and the endpoint factory across concurrent callers that
// resolve to the same effective table or the same bound name.
//
// Acquire composes two caches:
//   - DtabCache, keyed by the effective table's rendered form, caches a
//     [*DynNameFactory] wrapping the reactive result of evaluating Path
//     under that table — evaluated once up front, ready to react to a
//     future [activity.Var.Update] from a longer-lived name source.
//   - NameCache, keyed by the resolved [dtab.BoundName]'s identity, shares
//     one endpoint [Factory] across every path/table combination that
//     resolves to the same name.
//
// IsAvailable reports only whether the path currently resolves under the
// last-used table; it does not reflect the health of any specific
// downstream endpoint, which is FailFastFactory's job one layer down.
type BindingFactory[C any, S io.Closer] struct {
	path          dtab.Path
	cfg           *Config
	endpointBuild func(*dtab.BoundName) (Factory[C, S], error)
	tracer        Tracer

	dtabCache *ServiceFactoryCache[string, C, S]
	nameCache *ServiceFactoryCache[string, C, S]

	mu        sync.Mutex
	lastAvail bool
}

// NewBindingFactory returns a [*BindingFactory] resolving path, using cfg
// for base-table lookup and cache sizing, endpointBuild to construct the
// downstream [Factory] for a resolved [dtab.BoundName], and tracer to
// annotate each acquisition attempt. tracer may be [NoopTracer].
func NewBindingFactory[C any, S io.Closer](path dtab.Path, cfg *Config, endpointBuild func(*dtab.BoundName) (Factory[C, S], error), tracer Tracer) *BindingFactory[C, S] {
	return &BindingFactory[C, S]{
		path:          path,
		cfg:           cfg,
		endpointBuild: endpointBuild,
		tracer:        WrapTracer(tracer, cfg.Logger),
		dtabCache:     NewServiceFactoryCache[string, C, S]("dtabcache", cfg.MaxNamerCacheSize),
		nameCache:     NewServiceFactoryCache[string, C, S]("namecache", cfg.MaxNameCacheSize),
	}
}

var _ Factory[any, io.Closer] = (*BindingFactory[any, io.Closer])(nil)

// Acquire implements [Factory] with an empty local table, so the effective
// table is the configured base table alone. conn is forwarded to the
// resolved endpoint's Acquire. See [*BindingFactory.AcquireWithLocalDtab]
// for a request-scoped local table.
func (b *BindingFactory[C, S]) Acquire(ctx context.Context, conn C) (S, error) {
	return b.AcquireWithLocalDtab(ctx, conn, dtab.Dtab{})
}

// buildDynNameFactory evaluates effective once to seed an [activity.Var],
// then wraps it in a [*DynNameFactory] whose build callback shares one
// endpoint [Factory] per resolved name via NameCache. This is the entry
// point a longer-lived name source (e.g. a namerd watch) would call
// [activity.Var.Update] on to push later resolutions through the same
// pipeline.
func (b *BindingFactory[C, S]) buildDynNameFactory(effective dtab.Dtab) *DynNameFactory[C, S] {
	names := activity.NewVar(evalDtabState(b.path, effective))
	build := func(name *dtab.BoundName) (Factory[C, S], error) {
		return b.nameCache.Get(name.CacheKey(), func() (Factory[C, S], error) {
			return b.endpointBuild(name)
		})
	}
	return NewDynNameFactory[C, S](b.path.String(), names, build, b.cfg.Logger, b.tracer)
}

// AcquireWithLocalDtab is [*BindingFactory.Acquire] with an explicit
// request-scoped local [dtab.Dtab], for callers that need per-request
// table overrides.
func (b *BindingFactory[C, S]) AcquireWithLocalDtab(ctx context.Context, conn C, local dtab.Dtab) (S, error) {
	var zero S

	base, err := b.cfg.BaseDtabProvider.Call(ctx, Unit{})
	if err != nil {
		return zero, err
	}
	effective := base.Concat(local)
	key := effective.String()

	b.tracer.RecordBinary("namer.path", b.path.String())
	b.tracer.RecordBinary("namer.dtab.base", base.String())

	dtabHandle, err := b.dtabCache.Get(key, func() (Factory[C, S], error) {
		return b.buildDynNameFactory(effective), nil
	})
	if err != nil {
		return zero, err
	}
	defer dtabHandle.Close(ctx)

	svc, err := dtabHandle.Acquire(ctx, conn)

	var namingErr *NamingError
	namingFailed := errors.As(err, &namingErr)

	b.mu.Lock()
	b.lastAvail = !namingFailed
	b.mu.Unlock()

	if err != nil {
		if namingFailed {
			// [*DynNameFactory.handleFailed] already traced namer.failure
			// exactly once for this transition; don't double-trace it.
			if nba, ok := namingErr.Cause.(*NoBrokersAvailableError); ok {
				return zero, nba.WithLocalDtab(local)
			}
			return zero, namingErr.Cause
		}
		b.tracer.RecordBinary("namer.failure", errKind(err))
		return zero, err
	}
	return svc, nil
}

// IsAvailable implements [Factory]: reports whether the last resolution
// attempt succeeded. It is conservative before any Acquire has run (the
// zero value, false).
func (b *BindingFactory[C, S]) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAvail
}

// Close implements [Factory]: closes both caches, and with them every
// cached [*DynNameFactory] and endpoint factory.
func (b *BindingFactory[C, S]) Close(ctx context.Context) error {
	err1 := b.dtabCache.Close(ctx)
	err2 := b.nameCache.Close(ctx)
	if err1 != nil {
		return err1
	}
	return err2
}
