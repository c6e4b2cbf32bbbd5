// SPDX-License-Identifier: GPL-3.0-or-later

// Package svcres provides client-side service resolution and resilience
// primitives: resolving a logical name to a concrete endpoint through a
// delegation table, caching the resulting factories, and shielding callers
// from a persistently failing endpoint.
//
// # Core Abstraction
//
// The package is built around two interfaces:
//
//	type Func[A, B any] interface {
//		Call(ctx context.Context, input A) (B, error)
//	}
//
//	type Factory[C any, S io.Closer] interface {
//		Acquire(ctx context.Context, conn C) (S, error)
//		IsAvailable() bool
//		Close(ctx context.Context) error
//	}
//
// Func represents an atomic, stateless operation with exactly one success
// mode and one failure mode; [Compose2] through [Compose8] chain Funcs into
// pipelines where the compiler verifies outputs match inputs across stages.
// Factory represents a stateful, closeable collaborator — an endpoint, a
// cache entry, or a resilience wrapper around either — queried repeatedly
// over its lifetime rather than invoked once.
//
// # Name Resolution
//
// The [dtab] subpackage implements delegation tables: a [dtab.Path] is
// resolved against a [dtab.Dtab] via [dtab.Eval] into a set of
// [dtab.BoundName] values, following prefix delegation and rewrite rules
// up to [dtab.MaxDelegations] deep. [BindingFactory] is the package's
// top-level entry point: given a logical path and a request-scoped local
// table, it resolves a name and acquires a service from it, sharing both
// the resolution step (DtabCache) and the endpoint factory (NameCache)
// across concurrent callers via [ServiceFactoryCache].
//
// For resolutions that change over time, the [activity] subpackage
// provides a minimal reactive container, [activity.Var], and
// [DynNameFactory] adapts a stream of resolved names into a [Factory] that
// queues Acquire calls made while a name is pending and rebuilds its
// downstream factory whenever the name changes.
//
// # Resilience
//
// [FailFastFactory] wraps a downstream [Factory] with a fail-fast health
// state machine: once it observes a failure, it marks the endpoint down
// and rejects Acquire calls immediately with [EndpointMarkedDownError]
// instead of dispatching them, retrying according to a jittered
// exponential [Backoffs] schedule via single off-request probes.
//
// # Connection Primitives
//
// These compose into the [Factory] built for a resolved name:
//   - [ConnectFunc]: dials a [netip.AddrPort] over a configured network
//   - [ObserveConnFunc]: observes a connection for structured I/O logging
//   - [CancelWatchFunc]: closes a connection on context cancellation (for
//     responsive ^C handling)
//   - [NewEndpointFunc]: lifts a constant endpoint into the Func world
//
// # Composition Utilities
//
//   - [Compose2] through [Compose8]: chain Funcs into pipelines
//   - [FuncAdapter]: wrap a function as a Func for ad-hoc custom behavior
//   - [Apply]: bind a fixed input to a Func
//   - [ConstFunc]: lift a pure value into a Func
//
// # Connection Lifecycle
//
// Dial operations ([ConnectFunc]) create connections and transfer
// ownership to the next pipeline stage on success; on error they return
// no connection to close. Wrapper types ([ObserveConnFunc]'s result,
// [CancelWatchFunc]'s result) own their underlying connection — the
// caller closes the outermost wrapper, which closes inward.
//
// # Observability
//
// All primitives support structured logging via [SLogger] (compatible
// with [log/slog]). By default, logging is disabled; set [Config.Logger]
// to a custom [*slog.Logger] to enable it. Error classification is
// configurable via [ErrClassifier]; by default, [DefaultErrClassifier]
// classifies errors with the errclass package.
//
// Primitives emit two kinds of structured log events:
//
//   - Span events (*Start/*Done pairs): record operation lifecycle
//     including timing and success/failure.
//   - State transitions ([FailFastFactory] marking an endpoint down or
//     available, [DynNameFactory] rebuilding on a name change): recorded
//     via [SLogger.Info].
//
// I/O-level events (read, write, deadline changes, probe attempts) are
// emitted at [slog.LevelDebug]; all other events use [slog.LevelInfo].
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7)
// for one operation, then attach it to the logger with [*slog.Logger.With]
// so every log entry from that operation correlates.
//
// [FailFastFactory] and [ServiceFactoryCache] also publish prometheus
// metrics for marked-dead/marked-available counts, unhealthy duration,
// retry counts, cache size, evictions, and one-shot builds.
//
// # Timeout and Context Philosophy
//
// This package is context-transparent: operations never modify the
// context they receive. The caller controls timeouts externally via
// [context.WithTimeout], [context.WithDeadline], or
// [signal.NotifyContext]. Connection pipelines should include
// [CancelWatchFunc] to bind the context lifecycle to the connection:
// without it, I/O operations may block past context cancellation.
package svcres
