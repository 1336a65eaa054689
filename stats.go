// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import "time"

// Snapshot records the delta in request accounting observed between two
// consecutive statistics collections. Ongoing is reported as an
// instantaneous gauge rather than a delta, since it names a count of
// currently-open sockets, not an event that occurred during the interval.
type Snapshot struct {
	// ID uniquely identifies this snapshot.
	ID string

	// CollectedAt is when this snapshot was taken.
	CollectedAt time.Time

	// Processed is how many inbound packets the ingress dispatcher
	// admitted to [*Engine.Receive] since the previous snapshot,
	// regardless of outcome.
	Processed uint64

	// Total is how many requests were created since the previous
	// snapshot. A request is counted before its query is sent, so one
	// whose dial or send fails is still included.
	Total uint64

	// Answered is how many replies were matched to a request since the
	// previous snapshot, regardless of rcode.
	Answered uint64

	// NoError is how many of those matched replies carried rcode
	// NOERROR since the previous snapshot.
	NoError uint64

	// Discarded is how many admitted packets were dropped before or
	// during request creation (out-of-range key, malformed chain,
	// malformed DNS header, dial or send failure), plus how many
	// requests failed on a socket read error after their query was
	// sent, since the previous snapshot.
	Discarded uint64

	// TimedOut is how many requests timed out since the previous
	// snapshot.
	TimedOut uint64

	// Ongoing is the current count of query sockets still open.
	Ongoing int64
}

// Totals reports the statistics ledger's lifetime counters, unaffected by
// [*statsLedger.Collect].
type Totals struct {
	Processed uint64
	Total     uint64
	Answered  uint64
	NoError   uint64
	Discarded uint64
	TimedOut  uint64
	Ongoing   int64
}

// statsLedger accumulates lifetime counters and periodically emits
// [Snapshot] values capturing the delta since the last collection.
//
// Snapshots are appended to a growable slice rather than threaded through
// a linked list: the ledger only ever needs to walk the chain in
// insertion order, which a slice gives us for free, and a slice amortizes
// better than a list of individually heap-allocated nodes.
type statsLedger struct {
	processed, total, answered, noerror, discarded, timedOut uint64
	lastProcessed, lastTotal, lastAnswered, lastNoError      uint64
	lastDiscarded, lastTimedOut                              uint64
	ongoing                                                  int64
	snapshots                                                []Snapshot
}

// newStatsLedger returns an empty [*statsLedger].
func newStatsLedger() *statsLedger {
	return &statsLedger{}
}

// IncProcessed records that the ingress dispatcher admitted an inbound
// packet to [*Engine.Receive], regardless of its eventual disposition.
func (s *statsLedger) IncProcessed() {
	s.processed++
}

// IncTotal records that a request was created; it is called before the
// request's query is sent.
func (s *statsLedger) IncTotal() {
	s.total++
}

// IncAnswered records that a reply was matched to a request, regardless
// of rcode.
func (s *statsLedger) IncAnswered() {
	s.answered++
}

// IncNoError records that a matched reply carried rcode NOERROR.
func (s *statsLedger) IncNoError() {
	s.noerror++
}

// IncDiscarded records that an admitted packet was dropped before
// reaching a terminal answered/timed-out disposition.
func (s *statsLedger) IncDiscarded() {
	s.discarded++
}

// IncTimedOut records that a request timed out.
func (s *statsLedger) IncTimedOut() {
	s.timedOut++
}

// IncOngoing records that a query socket was opened.
func (s *statsLedger) IncOngoing() {
	s.ongoing++
}

// DecOngoing records that a query socket was closed.
func (s *statsLedger) DecOngoing() {
	s.ongoing--
}

// Collect appends a new [Snapshot] capturing the delta since the previous
// collection and returns it.
func (s *statsLedger) Collect(now time.Time) Snapshot {
	snap := Snapshot{
		ID:          NewSnapshotID(),
		CollectedAt: now,
		Processed:   s.processed - s.lastProcessed,
		Total:       s.total - s.lastTotal,
		Answered:    s.answered - s.lastAnswered,
		NoError:     s.noerror - s.lastNoError,
		Discarded:   s.discarded - s.lastDiscarded,
		TimedOut:    s.timedOut - s.lastTimedOut,
		Ongoing:     s.ongoing,
	}
	s.lastProcessed, s.lastTotal = s.processed, s.total
	s.lastAnswered, s.lastNoError = s.answered, s.noerror
	s.lastDiscarded, s.lastTimedOut = s.discarded, s.timedOut
	s.snapshots = append(s.snapshots, snap)
	return snap
}

// Snapshots returns every snapshot collected so far, in collection order.
func (s *statsLedger) Snapshots() []Snapshot {
	return s.snapshots
}

// Totals returns the lifetime counters, unaffected by [*statsLedger.Collect].
func (s *statsLedger) Totals() Totals {
	return Totals{
		Processed: s.processed,
		Total:     s.total,
		Answered:  s.answered,
		NoError:   s.noerror,
		Discarded: s.discarded,
		TimedOut:  s.timedOut,
		Ongoing:   s.ongoing,
	}
}
