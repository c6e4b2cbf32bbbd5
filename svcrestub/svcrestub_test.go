// SPDX-License-Identifier: GPL-3.0-or-later

package svcrestub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncFactoryDefaults(t *testing.T) {
	f := &FuncFactory[struct{}, *FuncCloser]{}

	svc, err := f.Acquire(context.Background(), struct{}{})
	require.NoError(t, err)
	assert.Nil(t, svc)
	assert.True(t, f.IsAvailable())
	assert.NoError(t, f.Close(context.Background()))
}

func TestFuncFactoryOverrides(t *testing.T) {
	closed := false
	f := &FuncFactory[struct{}, *FuncCloser]{
		AcquireFunc: func(ctx context.Context, conn struct{}) (*FuncCloser, error) {
			return &FuncCloser{}, nil
		},
		IsAvailableFunc: func() bool { return false },
		CloseFunc: func(ctx context.Context) error {
			closed = true
			return nil
		},
	}

	svc, err := f.Acquire(context.Background(), struct{}{})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.False(t, f.IsAvailable())
	require.NoError(t, f.Close(context.Background()))
	assert.True(t, closed)
}

func TestFuncTracerDefaultIsNoop(t *testing.T) {
	tr := &FuncTracer{}
	tr.RecordBinary("key", "value") // must not panic
}

func TestFuncTracerOverride(t *testing.T) {
	var got [2]string
	tr := &FuncTracer{
		RecordBinaryFunc: func(key, value string) { got = [2]string{key, value} },
	}
	tr.RecordBinary("k", "v")
	assert.Equal(t, [2]string{"k", "v"}, got)
}
