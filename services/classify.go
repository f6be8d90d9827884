package services

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"Mikrotik-Dashboard/errs"

	"github.com/go-routeros/routeros/v3"
)

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func classifyConnectError(err error) errs.Kind {
	if k := errs.KindOf(err); k != errs.Unknown {
		return k
	}
	if isTimeout(err) {
		return errs.Timeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return errs.NetworkUnreachable
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.ECONNRESET):
		return errs.NetworkUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return errs.NetworkUnreachable
	}
	return errs.Unknown
}

// classifyLoginError treats any !trap during login as rejected credentials;
// transport failures are classified like dial errors.
func classifyLoginError(err error) errs.Kind {
	var devErr *routeros.DeviceError
	if errors.As(err, &devErr) {
		return errs.Authentication
	}
	return classifyConnectError(err)
}

// isSessionDead reports whether err means the session can no longer be used.
// RouterOS !trap replies leave the session intact.
func isSessionDead(err error) bool {
	var devErr *routeros.DeviceError
	if errors.As(err, &devErr) {
		return false
	}
	if isTimeout(err) || errors.Is(err, context.Canceled) {
		return true
	}
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	return false
}

// classifyCallError maps a failed remote call to the taxonomy. The device
// message of a !trap is passed through because it is what the operator needs.
func classifyCallError(err error) *errs.Error {
	var classified *errs.Error
	if errors.As(err, &classified) {
		return classified
	}
	var devErr *routeros.DeviceError
	if errors.As(err, &devErr) {
		msg := "router returned an error"
		if devErr.Sentence != nil && devErr.Sentence.Map["message"] != "" {
			msg = "router returned an error: " + devErr.Sentence.Map["message"]
		}
		return errs.Wrap(errs.Unknown, err, msg)
	}
	if isTimeout(err) {
		return errs.Wrap(errs.Timeout, err, "router call timed out")
	}
	if isSessionDead(err) {
		return errs.Wrap(errs.NetworkUnreachable, err, "router connection lost")
	}
	return errs.Wrap(errs.Unknown, err, "router call failed")
}
