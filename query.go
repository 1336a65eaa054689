// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"net"

	"github.com/miekg/dns"
)

// query is the single in-flight UDP exchange backing a [request].
//
// This engine never retransmits, so a request owns at most one query.
// [Config.MaxQueriesPerRequest] is not consulted here or anywhere else.
type query struct {
	id   uint64
	conn net.Conn
}

// issueUDPQuery dials the configured target, optionally bound to the next
// rotating source address, writes req.payload, and arms a background
// goroutine to read the single expected reply.
//
// This is the only place the engine performs network I/O outside of the
// event loop; the goroutine it starts never touches engine state, it only
// ever produces a value on e.events (see doc.go).
func (e *Engine) issueUDPQuery(req *request) error {
	target, ok := e.addressBook.Target()
	if !ok {
		return errNoTarget
	}

	dialer := e.cfg.Dialer
	if src, ok := e.addressBook.NextSource(); ok {
		dialer = boundDialer{base: e.cfg.Dialer, laddr: &net.UDPAddr{IP: src.AsSlice(), Zone: src.Zone()}}
	}

	// Reuse the composable connect/observe primitives: dial then wrap the
	// connection so per-I/O reads, writes, and the eventual close are
	// logged exactly like every other pipeline in this package.
	connectOp := &ConnectFunc{
		Dialer:        dialer,
		ErrClassifier: e.cfg.ErrClassifier,
		Logger:        e.cfg.Logger,
		Network:       "udp",
		TimeNow:       e.cfg.TimeNow,
	}
	observeOp := NewObserveConnFunc(e.cfg, e.cfg.Logger)
	cancelWatchOp := NewCancelWatchFunc()
	pipe := Compose4(NewEndpointFunc(target), connectOp, observeOp, cancelWatchOp)

	// e.ctx is cancelled by [*Engine.Close], which is what actually closes
	// every live query socket; [*Engine.closeRequest] closing a single
	// socket early just unregisters that request's own watcher.
	conn, err := pipe.Call(e.ctx, Unit{})
	if err != nil {
		return err
	}

	if _, err := conn.Write(req.payload); err != nil {
		conn.Close()
		return err
	}

	e.nextQueryID++
	q := &query{id: e.nextQueryID, conn: conn}
	req.query = q
	e.stats.IncOngoing()

	e.wg.Go(func() error {
		e.receiveQueryReply(req, q)
		return nil
	})
	return nil
}

// receiveQueryReply blocks on a single read from q's connection, parses
// the DNS header, and forwards the outcome to the event loop. It never
// mutates engine state directly: it only ever sends on e.events. Parsing
// here is pure and side-effect free, so doing it off the event-loop
// goroutine does not violate the single-mutator rule.
func (e *Engine) receiveQueryReply(req *request, q *query) {
	buf := make([]byte, 4096)
	n, err := q.conn.Read(buf)
	if err != nil {
		select {
		case e.events <- event{kind: eventQueryError, reqID: req.id, generation: req.generation, err: err}:
		case <-e.closed:
		}
		return
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(buf[:n]); err != nil {
		select {
		case e.events <- event{kind: eventReply, reqID: req.id, generation: req.generation, err: err}:
		case <-e.closed:
		}
		return
	}

	ev := event{
		kind:       eventReply,
		reqID:      req.id,
		generation: req.generation,
		msgID:      msg.Id,
		rcode:      msg.Rcode,
		truncated:  msg.Truncated,
	}
	select {
	case e.events <- ev:
	case <-e.closed:
	}
}
