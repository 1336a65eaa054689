// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import "net/netip"

// ObjKind identifies what an [Obj] node in a chain carries.
type ObjKind int

const (
	// ObjKindPayload carries the raw wire-format bytes of a query.
	ObjKindPayload ObjKind = iota

	// ObjKindIP carries the destination address a query was sent to,
	// which doubles as the simulated client identity.
	ObjKindIP
)

// Obj is one node of a chain of decoded layers backing an inbound packet,
// innermost node first, each pointing at the layer that produced it via
// Prev. [*Engine.Receive] walks the chain to recover the two pieces of
// information it actually needs — the payload and the destination address
// — regardless of how many intermediate layers a given upstream decoder
// threads in between.
type Obj struct {
	Kind    ObjKind
	Payload []byte
	Addr    netip.Addr
	Prev    *Obj
}

// extractClient walks o looking for the first [ObjKindPayload] node and the
// first [ObjKindIP] node, returning false if either is missing.
func extractClient(o *Obj) (netip.Addr, []byte, bool) {
	var (
		addr        netip.Addr
		payload     []byte
		haveAddr    bool
		havePayload bool
	)
	for cur := o; cur != nil; cur = cur.Prev {
		switch cur.Kind {
		case ObjKindIP:
			if !haveAddr {
				addr, haveAddr = cur.Addr, true
			}
		case ObjKindPayload:
			if !havePayload {
				payload, havePayload = cur.Payload, true
			}
		}
	}
	if !haveAddr || !havePayload {
		return netip.Addr{}, nil, false
	}
	return addr, payload, true
}

// Receive is the engine's published ingress hook: the outbound receiver
// function an upstream decoding pipeline calls once per inbound packet.
// It walks chain to recover the destination address and payload, derives
// the client key, and — if both preconditions hold — hands off to the
// request registry to create a new request.
//
// Receive must be called from the same goroutine that drives
// [*Engine.RunNowait]; like every other exported method that touches
// engine state, it takes no locks of its own.
//
// Receive is the sole incrementer of Processed: every call counts,
// regardless of outcome, which keeps the invariant
// processed == answered + discarded + timed_out + in_flight auditable
// against the statistics ledger.
func (e *Engine) Receive(chain *Obj) {
	e.stats.IncProcessed()

	addr, payload, ok := extractClient(chain)
	if !ok {
		e.stats.IncDiscarded()
		e.cfg.Logger.Debug("dnssim: dropping malformed packet chain")
		return
	}

	key, ok := e.clients.Key(addr)
	if !ok {
		e.stats.IncDiscarded()
		e.cfg.Logger.Debug("dnssim: dropping packet with out-of-range client key", "client", addr.String())
		return
	}

	e.createRequestUDP(addr, key, payload)
}
