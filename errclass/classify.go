//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/errclass.go
//

package errclass

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Exported classification labels.
//
// These are stable strings suitable for structured logging and for
// grouping measurement results by failure mode.
const (
	EADDRNOTAVAIL   = "eaddrnotavail"
	EADDRINUSE      = "eaddrinuse"
	ECONNABORTED    = "econnaborted"
	ECONNREFUSED    = "econnrefused"
	ECONNRESET      = "econnreset"
	EHOSTUNREACH    = "ehostunreach"
	EINVAL          = "einval"
	EINTR           = "eintr"
	ENETDOWN        = "enetdown"
	ENETUNREACH     = "enetunreach"
	ENOBUFS         = "enobufs"
	ENOTCONN        = "enotconn"
	EPROTONOSUPPORT = "eprotonosupport"
	ETIMEDOUT       = "etimedout"
	ECANCELED       = "ecanceled"
	EEOF            = "eeof"
	EGENERIC        = "egeneric"
)

// New classifies err into one of the labels declared above.
//
// New returns the empty string when err is nil. Errors it cannot
// recognize are classified as [EGENERIC].
func New(err error) string {
	if err == nil {
		return ""
	}

	// context errors take priority since they wrap os-level errors
	// (e.g. a dial cancelled mid-flight also reports ECONNABORTED).
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ETIMEDOUT
	case errors.Is(err, context.Canceled):
		return ECANCELED
	case errors.Is(err, io.EOF):
		return EEOF
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ETIMEDOUT
	}

	var serr syscall.Errno
	if errors.As(err, &serr) {
		switch serr {
		case errEADDRNOTAVAIL:
			return EADDRNOTAVAIL
		case errEADDRINUSE:
			return EADDRINUSE
		case errECONNABORTED:
			return ECONNABORTED
		case errECONNREFUSED:
			return ECONNREFUSED
		case errECONNRESET:
			return ECONNRESET
		case errEHOSTUNREACH:
			return EHOSTUNREACH
		case errEINVAL:
			return EINVAL
		case errEINTR:
			return EINTR
		case errENETDOWN:
			return ENETDOWN
		case errENETUNREACH:
			return ENETUNREACH
		case errENOBUFS:
			return ENOBUFS
		case errENOTCONN:
			return ENOTCONN
		case errEPROTONOSUPPORT:
			return EPROTONOSUPPORT
		case errETIMEDOUT:
			return ETIMEDOUT
		}
	}

	return EGENERIC
}
