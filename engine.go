// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

var (
	errNoTarget       = errors.New("dnssim: no target configured")
	errRequestTimeout = errors.New("dnssim: request timed out")
)

func errNonSuccessRcode(rcode int) error {
	return fmt.Errorf("dnssim: reply rcode %s", dns.RcodeToString[rcode])
}

// LoopStatus reports whether [*Engine.RunNowait] did any work.
type LoopStatus int

const (
	// LoopIdle means no event was pending.
	LoopIdle LoopStatus = iota

	// LoopProgressed means at least one event was processed.
	LoopProgressed
)

// eventKind discriminates the payload carried by [event].
type eventKind int

const (
	eventReply eventKind = iota
	eventTimeout
	eventQueryError
	eventStatsTick
)

// event is the single type every background goroutine is allowed to
// produce. [*Engine.RunNowait] is the sole consumer and the sole place
// engine state is mutated, which is what keeps this engine lock-free
// despite running its I/O on ordinary goroutines rather than a single
// thread.
type event struct {
	kind       eventKind
	reqID      RequestID
	generation uint64

	// eventReply fields, populated by [*Engine.receiveQueryReply].
	msgID     uint16
	rcode     int
	truncated bool

	// err carries the failure for eventQueryError (socket read failure)
	// and, when non-nil on eventReply, an unpack failure for the reply
	// payload.
	err error
}

// Engine drives the simulated request/query/timeout lifecycle described in
// doc.go. All exported methods except the ones documented otherwise are
// expected to be called from a single goroutine; none of them take locks.
type Engine struct {
	cfg *Config

	addressBook *addressBook
	clients     *clientTable
	stats       *statsLedger

	transport Transport

	requests   map[RequestID]*request
	generation uint64

	nextQueryID uint64

	events chan event
	closed chan struct{}
	wg     *errgroup.Group

	ctx    context.Context
	cancel context.CancelFunc

	statsDone chan struct{}
}

// New returns a new [*Engine] admitting at most maxClients distinct
// simulated clients. A nil cfg is replaced with [NewConfig]'s defaults.
func New(maxClients int, cfg *Config) *Engine {
	if cfg == nil {
		cfg = NewConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:         cfg,
		addressBook: newAddressBook(),
		clients:     newClientTable(maxClients),
		stats:       newStatsLedger(),
		transport:   TransportUDPOnly,
		requests:    make(map[RequestID]*request),
		events:      make(chan event, cfg.EventQueueSize),
		closed:      make(chan struct{}),
		wg:          &errgroup.Group{},
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetTransport selects the wire transport used for subsequent queries.
//
// Only [TransportUDPOnly] is accepted, exactly as the engine never falls
// back to another transport when a reply is truncated (see
// [*Engine.handleReply]'s handling of TC=1 replies); every other value,
// including [TransportUDP], is a configuration error, not a panic, since
// callers may reasonably probe for support.
func (e *Engine) SetTransport(t Transport) error {
	if t != TransportUDPOnly {
		return fmt.Errorf("dnssim: transport %s not implemented", t)
	}
	e.transport = t
	return nil
}

// SetTarget configures the resolver address queries are sent to.
func (e *Engine) SetTarget(ip string, port uint16) error {
	return e.addressBook.SetTarget(ip, port)
}

// BindSource adds ip to the rotating pool of source addresses new queries
// are bound to.
func (e *Engine) BindSource(ip string) error {
	return e.addressBook.BindSource(ip)
}

// RunNowait drains and processes every event currently queued, without
// blocking for new ones. Callers drive the engine forward by invoking
// this repeatedly, e.g. from their own poll loop.
func (e *Engine) RunNowait() LoopStatus {
	progressed := false
	for {
		select {
		case ev := <-e.events:
			e.handleEvent(ev)
			progressed = true
		default:
			if progressed {
				return LoopProgressed
			}
			return LoopIdle
		}
	}
}

// handleEvent applies a single event to engine state. This is the only
// function in the engine that mutates requests, clients, or stats on
// behalf of a background goroutine; [*Engine.Receive] is the other, called
// synchronously from the same goroutine as RunNowait.
func (e *Engine) handleEvent(ev event) {
	switch ev.kind {
	case eventReply:
		e.handleReply(ev)

	case eventTimeout:
		req, ok := e.requests[ev.reqID]
		if !ok || req.generation != ev.generation || req.isTerminal() {
			return
		}
		req.state = requestTimedOut
		req.lastErr = errRequestTimeout
		e.stats.IncTimedOut()
		e.cfg.Logger.Info("dnssim: request timed out", "requestID", string(req.id))
		e.closeRequest(req)

	case eventQueryError:
		req, ok := e.requests[ev.reqID]
		if !ok || req.generation != ev.generation || req.isTerminal() {
			return
		}
		req.state = requestFailed
		req.lastErr = ev.err
		e.stats.IncDiscarded()
		e.cfg.Logger.Info("dnssim: query failed",
			"requestID", string(req.id), "class", e.cfg.ErrClassifier.Classify(ev.err))
		e.closeRequest(req)

	case eventStatsTick:
		snap := e.stats.Collect(e.cfg.TimeNow())
		e.cfg.Logger.Info("dnssim: statistics snapshot",
			"snapshotID", snap.ID,
			"processed", snap.Processed,
			"answered", snap.Answered,
			"discarded", snap.Discarded,
			"ongoing", snap.Ongoing)
	}
}

// handleReply applies the reply-matching contract of §4.E: a reply is
// matched to req purely because it arrived on req's own socket (each
// query owns its endpoint), so the only remaining checks are validity
// ones — the saved message ID and the truncated flag — not a lookup.
func (e *Engine) handleReply(ev event) {
	req, ok := e.requests[ev.reqID]
	if !ok || req.generation != ev.generation || req.isTerminal() {
		return
	}

	if ev.err != nil {
		// MALFORMED: per-response soft drop, like a mismatched message
		// ID. The request keeps running until its timeout fires.
		e.cfg.Logger.Debug("dnssim: dropping unparseable reply",
			"requestID", string(req.id), "error", ev.err.Error())
		return
	}

	if ev.msgID != req.msgID {
		// MSGID mismatch: per-response soft drop. The request keeps
		// running until a valid reply arrives or its timeout fires.
		e.cfg.Logger.Debug("dnssim: dropping reply with mismatched message ID",
			"requestID", string(req.id), "want", req.msgID, "got", ev.msgID)
		return
	}

	if ev.truncated {
		// This engine never falls back to TCP (see [Transport]), so a
		// truncated reply cannot be completed: drop it and let the
		// request run out its timeout, the same outcome a real UDP-only
		// resolver client would reach.
		e.cfg.Logger.Info("dnssim: dropping truncated reply", "requestID", string(req.id))
		return
	}

	e.stats.IncAnswered()
	slot := e.clients.Slot(req.clientKey)
	slot.Answered++
	if ev.rcode == dns.RcodeSuccess {
		e.stats.IncNoError()
		slot.NoError++
	}

	req.state = requestSucceeded
	if ev.rcode != dns.RcodeSuccess {
		req.lastErr = errNonSuccessRcode(ev.rcode)
	}
	e.cfg.Logger.Info("dnssim: reply matched", "requestID", string(req.id), "rcode", dns.RcodeToString[ev.rcode])
	e.closeRequest(req)
}

// Request returns the current state of a request by ID.
func (e *Engine) Request(id RequestID) (state requestState, err error, ok bool) {
	req, ok := e.requests[id]
	if !ok {
		return 0, nil, false
	}
	return req.state, req.lastErr, true
}

// Free explicitly releases a request's bookkeeping, regardless of whether
// it was created with FreeAfterUse. It is a no-op, returning false, if id
// is not (or is no longer) present in the registry.
func (e *Engine) Free(id RequestID) bool {
	req, ok := e.requests[id]
	if !ok {
		return false
	}
	e.teardownQuery(req)
	delete(e.requests, req.id)
	return true
}

// StatCollect starts a background ticker that periodically enqueues a
// statistics snapshot event every interval. Calling it again before
// [*Engine.StatFinish] is a no-op.
func (e *Engine) StatCollect(interval time.Duration) {
	if e.statsDone != nil {
		return
	}
	done := make(chan struct{})
	e.statsDone = done

	e.wg.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case e.events <- event{kind: eventStatsTick}:
				case <-e.closed:
					return nil
				}
			case <-done:
				return nil
			case <-e.closed:
				return nil
			}
		}
	})
}

// StatFinish stops the periodic ticker started by [*Engine.StatCollect], if
// any, and synchronously collects one final snapshot.
func (e *Engine) StatFinish() {
	if e.statsDone != nil {
		close(e.statsDone)
		e.statsDone = nil
	}
	e.stats.Collect(e.cfg.TimeNow())
}

// Snapshots returns every statistics snapshot collected so far.
func (e *Engine) Snapshots() []Snapshot {
	return e.stats.Snapshots()
}

// Totals returns the statistics ledger's lifetime counters.
func (e *Engine) Totals() Totals {
	return e.stats.Totals()
}

// Close stops all background goroutines and closes any outstanding query
// sockets. It blocks until every goroutine has returned.
func (e *Engine) Close() error {
	select {
	case <-e.closed:
		return nil
	default:
		close(e.closed)
	}
	e.cancel()
	for _, req := range e.requests {
		if req.timer != nil {
			req.timer.Stop()
		}
	}
	return e.wg.Wait()
}
