// SPDX-License-Identifier: GPL-3.0-or-later

// Package dnssim simulates DNS client traffic against a single resolver.
//
// # Purpose
//
// [*Engine] replays DNS queries over UDP on behalf of many simulated
// clients, correlates replies by DNS message ID, and keeps per-client and
// aggregate accounting. It is meant for load-testing and measurement
// scenarios where a resolver needs to be driven with realistic concurrent
// query traffic without standing up real client machines.
//
// # Core Abstraction
//
// [*Engine] is a single-threaded, lock-free event loop. Callers feed it
// inbound packets with [*Engine.Receive] and drive it forward by calling
// [*Engine.RunNowait] repeatedly, typically from their own poll loop
// alongside other event sources. Background goroutines (one per in-flight
// socket read, one for the statistics ticker, one per armed timeout) never
// touch engine state directly: each one only ever produces a value on a
// single internal channel, and RunNowait is the sole place that channel is
// drained and state mutated. This preserves a single-threaded execution
// model using ordinary goroutines and channels instead of a callback-based
// reactor.
//
// # Components
//
//   - Address book ([*addressBook]): resolver target and rotating source
//     address pool.
//   - Client table ([*clientTable]): derives a bounded client key from the
//     first four bytes of a packet's destination address and keeps
//     per-client Total/Answered/NoError accounting.
//   - Statistics ledger ([*statsLedger], [Snapshot], [Totals]): periodic
//     deltas and lifetime totals over Processed/Total/Answered/NoError/
//     Discarded/TimedOut counters plus the Ongoing gauge.
//   - Request registry (registry.go, [request] keyed by [RequestID]): the
//     lifecycle of a single query, from creation to exactly one terminal
//     outcome.
//   - UDP query transport (query.go, transport.go): opens one socket per
//     query, reusing the package's composable dial/observe/cancel-watch
//     primitives (see [Compose2] and friends).
//   - Ingress dispatcher ([*Engine.Receive]): walks an inbound packet's
//     object chain, derives its client key, and admits it into the request
//     registry. It is the sole incrementer of the Processed counter, so
//     every admitted or discarded packet is accounted for exactly once.
//     Reply correlation happens separately, on the UDP receive path
//     (query.go), matched structurally by socket ownership and validated
//     against the saved DNS message ID.
//
// # Observability
//
// All components support structured logging via [SLogger] (compatible
// with [log/slog]). By default, logging is disabled; set [Config.Logger]
// to a custom [*slog.Logger] to enable it. Error classification is
// configurable via [ErrClassifier]; by default, [DefaultErrClassifier]
// classifies common network errors (timeouts, connection refused/reset,
// unreachable, etc.) into short labels suitable for grouping results.
//
// Each new request is assigned an identifier generated by [NewRequestID];
// log lines related to that request's lifecycle carry it under the
// "requestID" key so they can be correlated.
//
// # Lifecycle Safety
//
// Requests are keyed by [RequestID], a UUIDv7 string never reused within
// an engine's lifetime, which already prevents a stale asynchronous event
// from being mistaken for a live request. Each request additionally
// carries a generation counter compared against the value captured when
// an asynchronous event (timeout, socket error) was armed, as a second,
// independent check against the same class of bug.
//
// # Design Boundaries
//
// This package intentionally only implements DNS-over-UDP query traffic
// generation and reply correlation. The following are out of scope:
//
//   - Query retransmission and retry/backoff policy
//   - DNS-over-TCP and DNS-over-TLS query transports (recognized by
//     [*Engine.SetTransport] but rejected as unimplemented), and
//     DNS-over-HTTPS, which has no [Transport] value at all
//   - Response caching or resolver-side behavior of any kind
//
// These concerns belong in a higher-level package built on top of this one.
package dnssim
