// SPDX-License-Identifier: GPL-3.0-or-later

package dtab

import (
	"net/netip"
	"strconv"
)

// ParseInet recognizes a [Path] of the form "/$/inet/<host>/<port>", the
// convention ("/$/inet/0/1010"). It returns the host, the port, and
// whether p matched the convention.
func ParseInet(p Path) (host string, port uint16, ok bool) {
	if len(p) != 4 || p[0] != "$" || p[1] != "inet" {
		return "", 0, false
	}
	n, err := strconv.ParseUint(p[3], 10, 16)
	if err != nil {
		return "", 0, false
	}
	return p[2], uint16(n), true
}

// InetBoundName builds the [BoundName] denoted by an inet-convention path,
// per [ParseInet]. Its Identity is the [Path] itself (rendered canonically
// for tracing), and its Addrs holds the single resolved address when host
// parses as an IP literal; a bare hostname (e.g. a placeholder like "0")
// resolves to an empty Addrs set, since DNS resolution of arbitrary
// hostnames is outside this package's pure, dtab-only evaluation.
func InetBoundName(p Path) (*BoundName, bool) {
	host, port, ok := ParseInet(p)
	if !ok {
		return nil, false
	}
	bn := &BoundName{ID: PathIdentity(p)}
	if addr, err := netip.ParseAddr(host); err == nil {
		bn.Addrs = []netip.AddrPort{netip.AddrPortFrom(addr, port)}
	}
	return bn, true
}
