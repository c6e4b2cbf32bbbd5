// SPDX-License-Identifier: GPL-3.0-or-later

package dtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityRender(t *testing.T) {
	assert.Equal(t, "svc-a", StringIdentity("svc-a").Render())
	assert.Equal(t, "/foo/bar", PathIdentity(ParsePath("/foo/bar")).Render())
	assert.Contains(t, OpaqueIdentity("k", struct{ X int }{X: 1}).Render(), "X:1")
}

func TestIdentityEqual(t *testing.T) {
	a := StringIdentity("svc-a")
	b := StringIdentity("svc-a")
	c := StringIdentity("svc-b")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestUnionNameDeterministic(t *testing.T) {
	n1 := &BoundName{ID: StringIdentity("n1")}
	n2 := &BoundName{ID: StringIdentity("n2")}

	u1 := UnionName([]*BoundName{n1, n2})
	u2 := UnionName([]*BoundName{n2, n1})

	assert.Equal(t, u1.CacheKey(), u2.CacheKey())
}
