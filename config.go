// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"net"
	"time"
)

// Config holds common configuration for [*Engine] operations.
//
// Pass this to [New] to pre-wire dependencies. All fields have sensible
// defaults set by [NewConfig].
type Config struct {
	// Dialer is used to open UDP sockets for outgoing queries.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// Logger receives lifecycle and protocol events.
	//
	// Set by [NewConfig] to [DefaultSLogger].
	Logger SLogger

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// Timeout is the per-request timeout armed when a request is
	// created. This is a writable field: changing it takes effect for
	// every request created afterward, matching the engine's
	// writable timeout_ms configuration surface.
	//
	// Set by [NewConfig] to two seconds.
	Timeout time.Duration

	// FreeAfterUse, when true, makes the engine drop a request's
	// bookkeeping as soon as it reaches a terminal state. When false
	// (the default), callers are responsible for calling [*Engine.Free]
	// once done inspecting a terminal request. This is a writable field,
	// matching the engine's writable free_after_use configuration
	// surface.
	//
	// Set by [NewConfig] to false.
	FreeAfterUse bool

	// MaxQueriesPerRequest is carried in the configuration, but no part
	// of the engine reads it: a request always holds at most one query,
	// whatever this field says.
	//
	// Set by [NewConfig] to 16.
	MaxQueriesPerRequest int

	// EventQueueSize sizes the buffered channel background goroutines use
	// to hand events back to the event loop (see doc.go).
	//
	// Set by [NewConfig] to 1024.
	EventQueueSize int
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:               &net.Dialer{},
		ErrClassifier:        DefaultErrClassifier,
		Logger:               DefaultSLogger(),
		TimeNow:              time.Now,
		Timeout:              2 * time.Second,
		FreeAfterUse:         false,
		MaxQueriesPerRequest: 16,
		EventQueueSize:       1024,
	}
}
