// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"net/netip"
	"time"
)

// requestState is the terminal classification of a [request].
type requestState int

const (
	requestPending requestState = iota
	requestSucceeded
	requestTimedOut
	requestFailed
)

// request tracks a single simulated DNS query for its entire lifetime,
// from creation through exactly one terminal event (success, timeout, or
// a dial, send or socket read failure).
//
// generation is a redundant safety net on top of the registry's map-key
// uniqueness: every asynchronous event captures the generation value that
// was current when the event was armed, and [*Engine] compares it against
// the request's current generation before acting on the event. Since
// [RequestID] values are never reused, the map lookup alone already
// rejects events for freed requests; generation exists purely as a second,
// independent check, in the same spirit as a C implementation's reference
// count guarding a raw back-pointer.
type request struct {
	id         RequestID
	generation uint64

	clientAddr netip.Addr
	clientKey  uint32

	payload []byte
	msgID   uint16

	createdAt time.Time
	timeout   time.Duration
	timer     *time.Timer

	query *query

	state        requestState
	freeAfterUse bool
	lastErr      error
}

// isTerminal reports whether r has reached one of its terminal states.
func (r *request) isTerminal() bool {
	return r.state != requestPending
}
