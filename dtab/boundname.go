// SPDX-License-Identifier: GPL-3.0-or-later

package dtab

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

// idKind distinguishes how an [Identity] was constructed, which in turn
// determines how [Identity.Render] formats it.
type idKind int

const (
	idString idKind = iota
	idPath
	idOpaque
)

// Identity is a [BoundName]'s opaque identity: the value used as a cache
// key and as a tracing label. Two Identity values are equal iff they were
// constructed from equal inputs of the same kind.
//
// An Identity may wrap a string, a structured [Path], or an arbitrary
// opaque value; this package defines a single rendering function
// ([Identity.Render]) rather than leaking any of these representations
// into traced payloads.
type Identity struct {
	kind   idKind
	key    string
	str    string
	path   Path
	opaque any
}

// StringIdentity constructs an [Identity] from a plain string, rendered verbatim.
func StringIdentity(s string) Identity {
	return Identity{kind: idString, key: "s:" + s, str: s}
}

// PathIdentity constructs an [Identity] from a [Path], rendered in canonical form.
func PathIdentity(p Path) Identity {
	return Identity{kind: idPath, key: "p:" + p.String(), path: p}
}

// OpaqueIdentity constructs an [Identity] from an arbitrary value, rendered
// via a generic structural printer ("%+v").
//
// opaqueKey must uniquely determine v for cache-keying purposes; it is the
// caller's responsibility to supply a stable key (e.g. derived from a
// discovery-system endpoint ID) since arbitrary values are not guaranteed
// comparable.
func OpaqueIdentity(opaqueKey string, v any) Identity {
	return Identity{kind: idOpaque, key: "o:" + opaqueKey, opaque: v}
}

// Render returns the canonical string representation used for tracing.
func (id Identity) Render() string {
	switch id.kind {
	case idString:
		return id.str
	case idPath:
		return id.path.String()
	default:
		return fmt.Sprintf("%+v", id.opaque)
	}
}

// CacheKey returns the comparable key used by [svcres.ServiceFactoryCache]'s
// NameCache to look up the factory bound to this identity.
func (id Identity) CacheKey() string {
	return id.key
}

// Equal reports whether id and other have the same cache key.
func (id Identity) Equal(other Identity) bool {
	return id.key == other.key
}

// BoundName is a fully resolved destination: an opaque [Identity] plus an
// observable set of network addresses and metadata. Equality and hashing
// are by Identity alone, never by Addrs or Meta.
//
// Addrs is a plain slice rather than a second reactive primitive: address
// representation is out of scope for this core, and the cache only ever
// keys on Identity (see DESIGN.md for the rationale).
type BoundName struct {
	ID    Identity
	Addrs []netip.AddrPort
	Meta  map[string]string
}

// CacheKey returns b.ID.CacheKey().
func (b *BoundName) CacheKey() string {
	return b.ID.CacheKey()
}

// UnionName synthesises an aggregate [BoundName] over members, used when
// resolution yields more than one concrete name: its identity is a
// deterministic combination of its members' identities (sorted so that the
// same set produces the same union name regardless of evaluation order)
// and its address set is the union of its members' addresses.
func UnionName(members []*BoundName) *BoundName {
	keys := make([]string, len(members))
	var addrs []netip.AddrPort
	for i, m := range members {
		keys[i] = m.CacheKey()
		addrs = append(addrs, m.Addrs...)
	}
	sort.Strings(keys)
	return &BoundName{
		ID:    OpaqueIdentity("union["+strings.Join(keys, ",")+"]", members),
		Addrs: addrs,
	}
}
