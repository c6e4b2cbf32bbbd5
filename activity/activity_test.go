// SPDX-License-Identifier: GPL-3.0-or-later

package activity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesCurrentStateImmediately(t *testing.T) {
	v := NewVar(PendingState[int]())

	var got []State[int]
	sub := v.Subscribe(ObserverFunc[int](func(s State[int]) {
		got = append(got, s)
	}))
	defer sub.Close()

	require.Len(t, got, 1)
	assert.Equal(t, Pending, got[0].Kind())
}

func TestUpdateNotifiesInOrder(t *testing.T) {
	v := NewVar(PendingState[int]())

	var kinds []Kind
	sub := v.Subscribe(ObserverFunc[int](func(s State[int]) {
		kinds = append(kinds, s.Kind())
	}))
	defer sub.Close()

	v.Update(OkState(42))
	v.Update(FailedState[int](errors.New("boom")))

	require.Equal(t, []Kind{Pending, Ok, Failed}, kinds)

	last := v.Snapshot()
	assert.Equal(t, Failed, last.Kind())
	assert.EqualError(t, last.Err(), "boom")
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	v := NewVar(PendingState[int]())

	count := 0
	sub := v.Subscribe(ObserverFunc[int](func(s State[int]) {
		count++
	}))
	assert.Equal(t, 1, count)

	sub.Close()
	v.Update(OkState(1))

	assert.Equal(t, 1, count)
}

func TestMultipleSubscribersAllNotified(t *testing.T) {
	v := NewVar(PendingState[int]())

	var a, b int
	sub1 := v.Subscribe(ObserverFunc[int](func(s State[int]) { a++ }))
	sub2 := v.Subscribe(ObserverFunc[int](func(s State[int]) { b++ }))
	defer sub1.Close()
	defer sub2.Close()

	v.Update(OkState(1))

	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}
