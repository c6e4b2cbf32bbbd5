// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"context"
	"testing"

	"github.com/bassosimone/svcres/dtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(base dtab.Dtab) *Config {
	cfg := NewConfig()
	cfg.BaseDtabProvider = ConstFunc(base)
	return cfg
}

type recordingTracer struct {
	entries [][2]string
}

func (t *recordingTracer) RecordBinary(key, value string) {
	t.entries = append(t.entries, [2]string{key, value})
}

func (t *recordingTracer) has(key string) bool {
	for _, e := range t.entries {
		if e[0] == key {
			return true
		}
	}
	return false
}

func TestBindingFactoryAcquireResolvesAndAcquires(t *testing.T) {
	base := dtab.Dtab{{Prefix: dtab.ParsePath("/t"), Tree: dtab.Leaf(dtab.ParsePath("/$/inet/127.0.0.1/1010"))}}
	cfg := newTestConfig(base)
	built := 0
	tracer := &recordingTracer{}

	b := NewBindingFactory(dtab.ParsePath("/t"), cfg, func(bn *dtab.BoundName) (Factory[struct{}, *stubCloser], error) {
		built++
		return newStubFactory(), nil
	}, tracer)
	defer b.Close(context.Background())

	svc, err := b.Acquire(context.Background(), struct{}{})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	assert.Equal(t, 1, built)
	assert.True(t, b.IsAvailable())
	assert.True(t, tracer.has("namer.path"))
	assert.True(t, tracer.has("namer.dtab.base"))
	assert.True(t, tracer.has("namer.name"))
}

func TestBindingFactoryNoBrokersAvailable(t *testing.T) {
	cfg := newTestConfig(dtab.Dtab{})
	b := NewBindingFactory(dtab.ParsePath("/missing"), cfg, func(bn *dtab.BoundName) (Factory[struct{}, *stubCloser], error) {
		return newStubFactory(), nil
	}, NoopTracer)
	defer b.Close(context.Background())

	_, err := b.Acquire(context.Background(), struct{}{})
	require.Error(t, err)
	var nba *NoBrokersAvailableError
	require.ErrorAs(t, err, &nba)
	assert.False(t, b.IsAvailable())
}

func TestBindingFactorySharesEndpointAcrossLocalTables(t *testing.T) {
	base := dtab.Dtab{{Prefix: dtab.ParsePath("/t"), Tree: dtab.Leaf(dtab.ParsePath("/$/inet/127.0.0.1/1010"))}}
	cfg := newTestConfig(base)
	built := 0

	b := NewBindingFactory(dtab.ParsePath("/foo/bar"), cfg, func(bn *dtab.BoundName) (Factory[struct{}, *stubCloser], error) {
		built++
		return newStubFactory(), nil
	}, NoopTracer)
	defer b.Close(context.Background())

	d1 := dtab.Dtab{{Prefix: dtab.ParsePath("/foo/bar"), Tree: dtab.Leaf(dtab.ParsePath("/t"))}}
	d2 := dtab.Dtab{
		{Prefix: dtab.ParsePath("/foo/bar"), Tree: dtab.Leaf(dtab.ParsePath("/t"))},
		{Prefix: dtab.ParsePath("/bar/baz"), Tree: dtab.Fail()},
	}

	svc1, err := b.AcquireWithLocalDtab(context.Background(), struct{}{}, d1)
	require.NoError(t, err)
	require.NoError(t, svc1.Close())

	svc2, err := b.AcquireWithLocalDtab(context.Background(), struct{}{}, d2)
	require.NoError(t, err)
	require.NoError(t, svc2.Close())

	assert.Equal(t, 1, built)
}
