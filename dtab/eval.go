// SPDX-License-Identifier: GPL-3.0-or-later

package dtab

import "errors"

// MaxDelegations bounds the number of successive rewrite-rule applications
// [Eval] performs before giving up. Resolving a path recurses until no
// further delegation rule applies; an unbounded or cyclic table can
// recurse forever, so this caps it.
const MaxDelegations = 100

// ErrDelegationTooDeep is returned by [Eval] when resolving a path requires
// more than [MaxDelegations] successive rewrites, indicating a cyclic or
// runaway [Dtab].
var ErrDelegationTooDeep = errors.New("dtab: delegation exceeded maximum depth")

// ErrNameTreeFail is returned by [Eval] when evaluation reaches an explicit
// [Fail] node.
var ErrNameTreeFail = errors.New("dtab: name tree evaluation failed")

// Eval evaluates tree under d, returning the resolved set of [BoundName]s
// and ok=true, or ok=false ("nothing") when no rule resolves the tree to a
// concrete name. This implements the None/Some(empty)/Some({n})/Some(S)
// distinctions that resolution is built on.
func Eval(d Dtab, tree NameTree) (set []*BoundName, ok bool, err error) {
	rewritten, err := rewriteTree(d, tree, nil, 0)
	if err != nil {
		return nil, false, err
	}
	return resolve(rewritten)
}

// rewriteTree applies d's rewrite rules to every leafPath reachable in tree,
// appending remainder to each leaf before looking it up. depth counts
// successive rule applications along the current delegation chain; every
// branch of a union starts from its parent's depth, so a cycle on any one
// branch is still caught.
func rewriteTree(d Dtab, tree NameTree, remainder Path, depth int) (NameTree, error) {
	if depth > MaxDelegations {
		return nil, ErrDelegationTooDeep
	}
	switch t := tree.(type) {
	case leafPath:
		return rewritePath(d, t.path.Append(remainder), depth)
	case leafBound:
		return t, nil
	case unionTree:
		children := make([]Weighted, len(t.children))
		for i, c := range t.children {
			rt, err := rewriteTree(d, c.Tree, remainder, depth)
			if err != nil {
				return nil, err
			}
			children[i] = Weighted{Weight: c.Weight, Tree: rt}
		}
		return unionTree{children: children}, nil
	case negTree, failTree, emptyTree:
		return t, nil
	default:
		return t, nil
	}
}

// rewritePath looks up the first rule matching p; if found, it rewrites
// p to the rule's tree (recursively resolving any leaves that tree
// contains). If no rule matches, p is a terminal leaf: it is left as-is
// for [resolve] to attempt an inet-convention resolution.
func rewritePath(d Dtab, p Path, depth int) (NameTree, error) {
	entry, remainder, found := d.matchPrefix(p)
	if !found {
		return leafPath{path: p}, nil
	}
	return rewriteTree(d, entry.Tree, remainder, depth+1)
}

// resolve walks a fully rewritten tree (no more applicable rules) down to a
// concrete set of [BoundName]s, or ok=false if every branch is unresolved.
func resolve(tree NameTree) ([]*BoundName, bool, error) {
	switch t := tree.(type) {
	case leafPath:
		if bn, ok := InetBoundName(t.path); ok {
			return []*BoundName{bn}, true, nil
		}
		return nil, false, nil
	case leafBound:
		return []*BoundName{t.name}, true, nil
	case emptyTree:
		return []*BoundName{}, true, nil
	case negTree:
		return nil, false, nil
	case failTree:
		return nil, false, ErrNameTreeFail
	case unionTree:
		return resolveUnion(t.children)
	default:
		return nil, false, nil
	}
}

func resolveUnion(children []Weighted) ([]*BoundName, bool, error) {
	var merged []*BoundName
	seen := make(map[string]bool)
	anyResolved := false
	for _, c := range children {
		set, ok, err := resolve(c.Tree)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		anyResolved = true
		for _, bn := range set {
			key := bn.CacheKey()
			if !seen[key] {
				seen[key] = true
				merged = append(merged, bn)
			}
		}
	}
	if !anyResolved {
		return nil, false, nil
	}
	return merged, true, nil
}
