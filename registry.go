// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// createRequestUDP allocates a request on behalf of an already-admitted
// client key, parses payload's DNS header, sends it as a single UDP
// datagram, and arms the request's timeout.
//
// addr and key have already passed the ingress dispatcher's preconditions
// (§4.F): this function owns only the request-creation steps of §4.D,
// starting from DNS header parsing. A malformed header increments
// discarded before any request is created or counted. A dial or send
// failure runs the failure epilogue: increment discarded and close the
// request.
func (e *Engine) createRequestUDP(addr netip.Addr, key uint32, payload []byte) {
	msg := new(dns.Msg)
	if err := msg.Unpack(payload); err != nil {
		e.stats.IncDiscarded()
		e.cfg.Logger.Debug("dnssim: dropping malformed query payload", "error", err.Error())
		return
	}

	e.generation++
	req := &request{
		id:           NewRequestID(),
		generation:   e.generation,
		clientAddr:   addr,
		clientKey:    key,
		payload:      payload,
		msgID:        msg.Id,
		createdAt:    e.cfg.TimeNow(),
		timeout:      e.cfg.Timeout,
		freeAfterUse: e.cfg.FreeAfterUse,
	}
	e.requests[req.id] = req

	e.clients.Slot(key).Total++
	e.stats.IncTotal()

	if err := e.issueUDPQuery(req); err != nil {
		req.state = requestFailed
		req.lastErr = err
		e.stats.IncDiscarded()
		e.cfg.Logger.Info("dnssim: request creation failed",
			"requestID", string(req.id), "class", e.cfg.ErrClassifier.Classify(err))
		e.closeRequest(req)
		return
	}

	e.armTimeout(req)
	e.cfg.Logger.Info("dnssim: request created", "requestID", string(req.id), "client", addr.String())
}

// armTimeout starts the background timer backing req's deadline.
func (e *Engine) armTimeout(req *request) {
	req.timer = time.AfterFunc(req.timeout, func() {
		select {
		case e.events <- event{kind: eventTimeout, reqID: req.id, generation: req.generation}:
		case <-e.closed:
		}
	})
}

// teardownQuery stops req's timer and closes its socket, if any.
//
// It never removes req from the request registry: that is
// [*Engine.maybeFreeRequest]'s and [*Engine.Free]'s job.
func (e *Engine) teardownQuery(req *request) {
	if req.timer != nil {
		req.timer.Stop()
	}
	if req.query != nil {
		req.query.conn.Close()
		req.query = nil
		e.stats.DecOngoing()
	}
}

// closeRequest runs the terminal-state epilogue for req: tear down its
// query, then free it immediately if it was created with FreeAfterUse.
func (e *Engine) closeRequest(req *request) {
	e.teardownQuery(req)
	e.maybeFreeRequest(req)
}

// maybeFreeRequest deletes req from the registry when it requested
// automatic cleanup.
func (e *Engine) maybeFreeRequest(req *request) {
	if req.freeAfterUse {
		delete(e.requests, req.id)
	}
}
