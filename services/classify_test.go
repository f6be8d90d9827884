package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"Mikrotik-Dashboard/errs"

	"github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
	"github.com/stretchr/testify/assert"
)

func deviceError(msg string) error {
	return &routeros.DeviceError{Sentence: &proto.Sentence{
		Word: "!trap",
		Map:  map[string]string{"message": msg},
	}}
}

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, errs.NetworkUnreachable},
		{"no route", fmt.Errorf("dial: %w", syscall.EHOSTUNREACH), errs.NetworkUnreachable},
		{"dns", &net.DNSError{Err: "no such host", Name: "router.invalid", IsNotFound: true}, errs.NetworkUnreachable},
		{"deadline", context.DeadlineExceeded, errs.Timeout},
		{"io deadline", fmt.Errorf("read: %w", os.ErrDeadlineExceeded), errs.Timeout},
		{"already classified", errs.ConnectionFailed(errs.Authentication, nil), errs.Authentication},
		{"other", errors.New("boom"), errs.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyConnectError(tt.err))
		})
	}
}

func TestClassifyLoginError(t *testing.T) {
	assert.Equal(t, errs.Authentication, classifyLoginError(deviceError("invalid user name or password (6)")))
	assert.Equal(t, errs.Timeout, classifyLoginError(os.ErrDeadlineExceeded))
}

func TestIsSessionDead(t *testing.T) {
	assert.True(t, isSessionDead(io.EOF))
	assert.True(t, isSessionDead(fmt.Errorf("read: %w", syscall.ECONNRESET)))
	assert.True(t, isSessionDead(fmt.Errorf("write: %w", syscall.EPIPE)))
	assert.True(t, isSessionDead(net.ErrClosed))
	assert.True(t, isSessionDead(context.DeadlineExceeded))
	assert.False(t, isSessionDead(deviceError("no such command")))
	assert.False(t, isSessionDead(errors.New("unexpected reply")))
}

func TestClassifyCallError(t *testing.T) {
	err := classifyCallError(deviceError("no such item"))
	assert.Equal(t, errs.Unknown, err.Kind)
	assert.Equal(t, "router returned an error: no such item", err.Msg)

	err = classifyCallError(io.EOF)
	assert.Equal(t, errs.NetworkUnreachable, err.Kind)

	err = classifyCallError(os.ErrDeadlineExceeded)
	assert.Equal(t, errs.Timeout, err.Kind)

	err = classifyCallError(errors.New("weird"))
	assert.Equal(t, errs.Unknown, err.Kind)
	assert.Equal(t, "router call failed", err.Msg)
}
