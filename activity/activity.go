// SPDX-License-Identifier: GPL-3.0-or-later

// Package activity implements a narrow reactive-value contract: a value
// that is Pending, Ok(v), or Failed(err) over time, with an Observer
// capability and a Subscription token whose Close cancels delivery. It
// deliberately does not implement a general reactive framework
// (no map/filter/combinators over the underlying value).
package activity

import (
	"sort"
	"sync"
)

// Kind identifies which of the three observable states a [State] holds.
type Kind int

const (
	// Pending means the value has not yet resolved.
	Pending Kind = iota
	// Ok means the value has resolved successfully.
	Ok
	// Failed means resolution failed.
	Failed
)

// State is a snapshot of a reactive value at one instant: exactly one of
// Pending, Ok(value), or Failed(err).
type State[T any] struct {
	kind  Kind
	value T
	err   error
}

// PendingState returns a [State] in the Pending kind.
func PendingState[T any]() State[T] {
	return State[T]{kind: Pending}
}

// OkState returns a [State] in the Ok kind, holding value.
func OkState[T any](value T) State[T] {
	return State[T]{kind: Ok, value: value}
}

// FailedState returns a [State] in the Failed kind, holding err.
func FailedState[T any](err error) State[T] {
	return State[T]{kind: Failed, err: err}
}

// Kind reports which variant s holds.
func (s State[T]) Kind() Kind { return s.kind }

// Value returns the Ok value. It is the zero value of T unless Kind() == Ok.
func (s State[T]) Value() T { return s.value }

// Err returns the Failed error. It is nil unless Kind() == Failed.
func (s State[T]) Err() error { return s.err }

// Observer receives state transitions for a subscribed [Var]. Notify is
// called with transitions in source order; it must not block for long, as
// it runs synchronously on the publisher's goroutine (see [Var.Update]).
type Observer[T any] interface {
	Notify(State[T])
}

// ObserverFunc adapts a function to the [Observer] interface.
type ObserverFunc[T any] func(State[T])

// Notify implements [Observer].
func (f ObserverFunc[T]) Notify(s State[T]) { f(s) }

// Subscription is returned by [Var.Subscribe]; closing it cancels further
// delivery to the associated [Observer]. Close is idempotent.
type Subscription interface {
	Close()
}

// Var is a mutable reactive value: the producer side of the Activity
// contract. The zero Var is not usable; construct with [NewVar].
type Var[T any] struct {
	mu        sync.Mutex
	state     State[T]
	observers map[int]Observer[T]
	nextID    int
}

// NewVar returns a [*Var] initialized to the given state.
func NewVar[T any](initial State[T]) *Var[T] {
	return &Var[T]{state: initial, observers: make(map[int]Observer[T])}
}

// Subscribe registers obs to receive state transitions. obs is notified
// synchronously with the current state immediately upon subscribing, then
// with every subsequent [Var.Update] in call order, until the returned
// [Subscription] is closed.
func (v *Var[T]) Subscribe(obs Observer[T]) Subscription {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.observers[id] = obs
	current := v.state
	v.mu.Unlock()

	obs.Notify(current)

	return &varSubscription[T]{v: v, id: id}
}

// Update transitions v to s and notifies every current subscriber, in
// subscription order. Notification happens while holding no lock other
// than what's needed to snapshot the observer set, so an [Observer] may
// itself call [Var.Subscribe] or close its own subscription without
// deadlocking.
func (v *Var[T]) Update(s State[T]) {
	v.mu.Lock()
	v.state = s
	ids := make([]int, 0, len(v.observers))
	for id := range v.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	obs := make([]Observer[T], 0, len(ids))
	for _, id := range ids {
		obs = append(obs, v.observers[id])
	}
	v.mu.Unlock()

	for _, o := range obs {
		o.Notify(s)
	}
}

// Snapshot returns the current state without subscribing.
func (v *Var[T]) Snapshot() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

type varSubscription[T any] struct {
	v  *Var[T]
	id int
}

// Close implements [Subscription].
func (s *varSubscription[T]) Close() {
	s.v.mu.Lock()
	delete(s.v.observers, s.id)
	s.v.mu.Unlock()
}
