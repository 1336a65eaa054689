// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// RequestID uniquely identifies a request for its entire lifetime.
//
// Request IDs are never reused, which is the primary defense against
// stale-callback bugs: a handle keyed by a RequestID that is no longer
// present in the registry is, by construction, a handle to a freed
// request (see [request.generation] for the redundant secondary check).
type RequestID string

// NewRequestID returns a new, universally unique [RequestID].
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewRequestID() RequestID {
	return RequestID(runtimex.PanicOnError1(uuid.NewV7()).String())
}

// NewSnapshotID returns a UUIDv7 identifying a statistics snapshot.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSnapshotID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
