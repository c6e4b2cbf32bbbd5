// SPDX-License-Identifier: GPL-3.0-or-later

package dtab

// NameTree is a tree over bindings, combined with union, weighted union,
// negation, and leaf operators. Evaluating a NameTree under a [Dtab]
// reduces it to a set of [BoundName]s or to "nothing" (see [Eval]).
//
// This is a closed algebra: the concrete variants below are the only
// implementations.
type NameTree interface {
	isNameTree()
}

// Leaf returns a [NameTree] leaf holding an unresolved logical [Path].
func Leaf(p Path) NameTree {
	return leafPath{path: p}
}

// LeafBound returns a [NameTree] leaf holding an already-resolved [BoundName].
func LeafBound(name *BoundName) NameTree {
	return leafBound{name: name}
}

// Weighted pairs a [NameTree] with a selection weight. Evaluation (see
// [Eval]) ignores Weight: a union resolves to the plain union of its
// children's names. Weighted selection among bound names is a
// load-balancer concern, out of scope here.
type Weighted struct {
	Weight float64
	Tree   NameTree
}

// Union returns the union of children. A plain (unweighted) union is
// Union(Weighted{Weight: 1, Tree: t1}, Weighted{Weight: 1, Tree: t2}, ...).
func Union(children ...Weighted) NameTree {
	return unionTree{children: children}
}

// Neg returns a [NameTree] representing an explicit non-match: it
// evaluates to "nothing", the same external effect as an unresolved leaf,
// but distinguishes "deliberately excluded" from "rule not found" in trace
// output and doc comments.
func Neg() NameTree {
	return negTree{}
}

// Fail returns a [NameTree] representing an explicit evaluation failure.
func Fail() NameTree {
	return failTree{}
}

// Empty returns a [NameTree] that resolves to the empty set (distinct from
// "nothing": Some(empty) and None both become [NoBrokersAvailableError]
// upstream, but they are different reactive states along the way).
func Empty() NameTree {
	return emptyTree{}
}

type leafPath struct{ path Path }
type leafBound struct{ name *BoundName }
type unionTree struct{ children []Weighted }
type negTree struct{}
type failTree struct{}
type emptyTree struct{}

func (leafPath) isNameTree()  {}
func (leafBound) isNameTree() {}
func (unionTree) isNameTree() {}
func (negTree) isNameTree()   {}
func (failTree) isNameTree()  {}
func (emptyTree) isNameTree() {}
