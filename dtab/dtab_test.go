// SPDX-License-Identifier: GPL-3.0-or-later

package dtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDtabConcat(t *testing.T) {
	base := Dtab{{Prefix: ParsePath("/t"), Tree: Leaf(ParsePath("/$/inet/0/1010"))}}
	local := Dtab{{Prefix: ParsePath("/foo/bar"), Tree: Leaf(ParsePath("/t"))}}

	eff := base.Concat(local)
	require.Len(t, eff, 2)
	assert.Equal(t, base[0], eff[0])
	assert.Equal(t, local[0], eff[1])

	// Concatenating with an empty local table returns base unchanged.
	assert.Equal(t, base, base.Concat(nil))
}

func TestDtabString(t *testing.T) {
	d := Dtab{{Prefix: ParsePath("/t"), Tree: Leaf(ParsePath("/$/inet/0/1010"))}}
	assert.Equal(t, "/t=>/$/inet/0/1010", d.String())
}

func TestDtabMatchPrefixFirstRuleWins(t *testing.T) {
	d := Dtab{
		{Prefix: ParsePath("/foo/bar"), Tree: Leaf(ParsePath("/x"))},
		{Prefix: ParsePath("/foo"), Tree: Leaf(ParsePath("/y"))},
	}
	entry, remainder, found := d.matchPrefix(ParsePath("/foo/bar/baz"))
	require.True(t, found)
	assert.Equal(t, ParsePath("/foo/bar"), entry.Prefix)
	assert.Equal(t, Path{"baz"}, remainder)

	_, _, found = d.matchPrefix(ParsePath("/unrelated"))
	assert.False(t, found)
}
