// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCloser struct {
	closed *int32
}

func (s *stubCloser) Close() error {
	atomic.AddInt32(s.closed, 1)
	return nil
}

type stubFactory struct {
	built       *int32
	closed      *int32
	acquireErr  error
	isAvailable bool
}

func newStubFactory() *stubFactory {
	return &stubFactory{built: new(int32), closed: new(int32), isAvailable: true}
}

func (f *stubFactory) Acquire(ctx context.Context, conn struct{}) (*stubCloser, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	atomic.AddInt32(f.built, 1)
	return &stubCloser{closed: f.closed}, nil
}

func (f *stubFactory) IsAvailable() bool { return f.isAvailable }

func (f *stubFactory) Close(ctx context.Context) error {
	atomic.AddInt32(f.closed, 1)
	return nil
}

var _ Factory[struct{}, *stubCloser] = (*stubFactory)(nil)

func TestServiceFactoryCacheSharesFactoryForSameKey(t *testing.T) {
	built := 0
	cache := NewServiceFactoryCache[string, struct{}, *stubCloser]("test", 2)
	build := func() (Factory[struct{}, *stubCloser], error) {
		built++
		return newStubFactory(), nil
	}

	h1, err := cache.Get("a", build)
	require.NoError(t, err)
	h2, err := cache.Get("a", build)
	require.NoError(t, err)

	assert.Equal(t, 1, built)
	assert.NoError(t, h1.Close(context.Background()))
	assert.NoError(t, h2.Close(context.Background()))
}

func TestServiceFactoryCacheEvictsIdleEntry(t *testing.T) {
	cache := NewServiceFactoryCache[string, struct{}, *stubCloser]("test", 1)
	build := func() (Factory[struct{}, *stubCloser], error) {
		return newStubFactory(), nil
	}

	h1, err := cache.Get("a", build)
	require.NoError(t, err)
	require.NoError(t, h1.Close(context.Background()))

	_, err = cache.Get("b", build)
	require.NoError(t, err)

	assert.Equal(t, float64(1), cache.sizeFloat())
}

func TestServiceFactoryCacheOneShotWhenFull(t *testing.T) {
	built := 0
	cache := NewServiceFactoryCache[string, struct{}, *stubCloser]("test", 1)
	build := func() (Factory[struct{}, *stubCloser], error) {
		built++
		return newStubFactory(), nil
	}

	h1, err := cache.Get("a", build) // pinned
	require.NoError(t, err)

	h2, err := cache.Get("b", build) // cache full, "a" pinned -> one-shot
	require.NoError(t, err)

	assert.Equal(t, 2, built)
	assert.NoError(t, h1.Close(context.Background()))
	assert.NoError(t, h2.Close(context.Background()))
}

func TestServiceFactoryCacheCloseClosesAllEntries(t *testing.T) {
	f := newStubFactory()
	cache := NewServiceFactoryCache[string, struct{}, *stubCloser]("test", 2)
	build := func() (Factory[struct{}, *stubCloser], error) {
		return f, nil
	}

	h, err := cache.Get("a", build)
	require.NoError(t, err)
	require.NoError(t, h.Close(context.Background()))

	require.NoError(t, cache.Close(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(f.closed))

	_, err = cache.Get("b", build)
	var svcClosed *ServiceClosedError
	assert.ErrorAs(t, err, &svcClosed)
}

var _ io.Closer = (*stubCloser)(nil)
