// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"fmt"
	"net/netip"
)

// addressBook holds the simulation target and the rotating pool of source
// addresses queries are bound to before being sent.
//
// Sources are stored as a growable slice with a cursor, rather than the
// circular linked list an implementation borrowing a C event-loop idiom
// would reach for: Go slices already give us O(1) append and index-based
// rotation without manual pointer surgery.
type addressBook struct {
	target  netip.AddrPort
	hasDst  bool
	sources []netip.Addr
	cursor  int
}

// newAddressBook returns an empty [*addressBook].
func newAddressBook() *addressBook {
	return &addressBook{}
}

// SetTarget records the resolver queries are sent to.
func (a *addressBook) SetTarget(ip string, port uint16) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("dnssim: invalid target address %q: %w", ip, err)
	}
	a.target = netip.AddrPortFrom(addr, port)
	a.hasDst = true
	return nil
}

// Target returns the configured resolver address, if any.
func (a *addressBook) Target() (netip.AddrPort, bool) {
	return a.target, a.hasDst
}

// BindSource appends ip to the rotating pool of source addresses.
//
// Both IPv4 and IPv6 addresses are accepted: unlike a design that special
// cases struct in_addr, [net/netip] gives us a single representation for
// both families for free.
func (a *addressBook) BindSource(ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("dnssim: invalid source address %q: %w", ip, err)
	}
	a.sources = append(a.sources, addr)
	return nil
}

// NextSource returns the next source address in rotation.
//
// Returns false when no source address has been bound, in which case the
// caller should let the kernel pick an ephemeral local address.
func (a *addressBook) NextSource() (netip.Addr, bool) {
	if len(a.sources) == 0 {
		return netip.Addr{}, false
	}
	addr := a.sources[a.cursor]
	a.cursor = (a.cursor + 1) % len(a.sources)
	return addr, true
}

// SourceCount returns how many source addresses are currently bound.
func (a *addressBook) SourceCount() int {
	return len(a.sources)
}
