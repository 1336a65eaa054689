// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"encoding/binary"
	"net/netip"
)

// clientSlot tracks per-client accounting: how many requests a client has
// issued, how many of those the UDP transport matched a reply for, and how
// many of those replies carried rcode NOERROR.
type clientSlot struct {
	addr  netip.Addr
	inUse bool

	Total    uint64
	Answered uint64
	NoError  uint64
}

// clientTable maps a client key, derived from a packet's destination
// address, to a fixed pool of accounting slots.
//
// All slots are allocated and zeroed up front by [newClientTable]. A prior
// design left slots uninitialized until first use and only checked whether
// a separate index map had room, not whether the slot itself was already
// claimed; that allowed a lookup to read a slot that looked in-use but had
// never been assigned a real address. Initializing every slot at
// construction time removes that class of bug entirely: inUse is always a
// reliable signal.
type clientTable struct {
	slots []clientSlot
	max   uint32
}

// newClientTable returns a [*clientTable] admitting keys in [0, max).
func newClientTable(max int) *clientTable {
	return &clientTable{
		slots: make([]clientSlot, max),
		max:   uint32(max),
	}
}

// clientKeyFromAddr derives the 32-bit client key from the first four
// bytes of addr: the address's own bytes if addr is (or embeds) an IPv4
// address, or the leading four bytes of the 16-byte form otherwise.
//
// The key is a reinterpretation of address bytes, not a hash or an
// admission-order index, so two packets sharing the same leading four
// bytes always collide on the same slot.
func clientKeyFromAddr(addr netip.Addr) uint32 {
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	if addr.Is4() {
		b := addr.As4()
		return binary.BigEndian.Uint32(b[:])
	}
	b := addr.As16()
	return binary.BigEndian.Uint32(b[:4])
}

// Key returns the slot index for addr, derived from addr's own bytes, and
// whether addr falls within the table's admitted range.
//
// The returned bool is false when the derived key is not less than max;
// callers MUST check it before using the returned index and MUST treat a
// false result as "discard this packet", per the client table's contract.
// This replaces a sentinel index (e.g. zero, which collides with a
// legitimate first slot) with an explicit, impossible-to-ignore two-value
// return.
func (c *clientTable) Key(addr netip.Addr) (uint32, bool) {
	key := clientKeyFromAddr(addr)
	if key >= c.max {
		return 0, false
	}
	slot := &c.slots[key]
	slot.inUse = true
	slot.addr = addr
	return key, true
}

// Slot returns the accounting slot at idx.
//
// The caller must have obtained idx from [*clientTable.Key]; idx is not
// re-validated beyond a bounds check, since [*clientTable.Key] is the sole
// producer of indices handed to callers.
func (c *clientTable) Slot(idx uint32) *clientSlot {
	return &c.slots[idx]
}

// Len returns how many distinct client keys have been touched at least
// once.
func (c *clientTable) Len() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].inUse {
			n++
		}
	}
	return n
}
