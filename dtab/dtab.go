// SPDX-License-Identifier: GPL-3.0-or-later

package dtab

import "strings"

// Dentry is a single delegation-table rewrite rule: paths with Prefix are
// rewritten according to Tree.
type Dentry struct {
	Prefix Path
	Tree   NameTree
}

// Dtab is an ordered list of [Dentry] rewrite rules. Lookup is a pure
// function of the table and the path (see [Eval]).
//
// Tables compose by concatenation: the effective table for a request is
// base ++ local, where base is process-wide and local is request-scoped.
type Dtab []Dentry

// Concat returns base ++ other, the effective table used by
// [svcres.BindingFactory.Acquire].
func (base Dtab) Concat(other Dtab) Dtab {
	if len(other) == 0 {
		return base
	}
	out := make(Dtab, 0, len(base)+len(other))
	out = append(out, base...)
	out = append(out, other...)
	return out
}

// String renders the table as "prefix1=>tree1;prefix2=>tree2".
func (d Dtab) String() string {
	parts := make([]string, len(d))
	for i, e := range d {
		parts[i] = e.Prefix.String() + "=>" + renderTree(e.Tree)
	}
	return strings.Join(parts, ";")
}

func renderTree(t NameTree) string {
	switch v := t.(type) {
	case leafPath:
		return v.path.String()
	case leafBound:
		return v.name.ID.Render()
	case unionTree:
		parts := make([]string, len(v.children))
		for i, c := range v.children {
			parts[i] = renderTree(c.Tree)
		}
		return "(" + strings.Join(parts, "|") + ")"
	case negTree:
		return "~"
	case failTree:
		return "!"
	case emptyTree:
		return "neverExists"
	default:
		return "?"
	}
}

// matchPrefix returns the first entry (in table order) whose Prefix is a
// prefix of p, the remainder of p after stripping that prefix, and whether
// a match was found. Table order, not prefix length, breaks ties: an
// earlier shorter-prefix entry shadows a later longer-prefix one.
func (d Dtab) matchPrefix(p Path) (Dentry, Path, bool) {
	for _, e := range d {
		if p.HasPrefix(e.Prefix) {
			return e, p[len(e.Prefix):], true
		}
	}
	return Dentry{}, nil, false
}
