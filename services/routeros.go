package services

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"Mikrotik-Dashboard/errs"

	"github.com/go-routeros/routeros/v3"
)

// Record is one flat key-value reply sentence from the router.
type Record map[string]string

// Conn is a live RouterOS API session.
type Conn interface {
	Call(ctx context.Context, path string, params []string) ([]Record, error)
	Close() error
}

// Dialer opens RouterOS API sessions. Implementations return errors
// classified with errs.ConnectionFailed where they can tell the cause.
type Dialer interface {
	Dial(ctx context.Context, address, username, password string) (Conn, error)
}

// RouterOSDialer speaks the RouterOS API over plain TCP using go-routeros.
type RouterOSDialer struct {
	// Timeout bounds the TCP dial plus login, and every later call.
	Timeout time.Duration
}

func NewRouterOSDialer(timeout time.Duration) *RouterOSDialer {
	return &RouterOSDialer{Timeout: timeout}
}

func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (d *RouterOSDialer) Dial(ctx context.Context, address, username, password string) (Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errs.ConnectionFailed(classifyConnectError(err), fmt.Errorf("tcp dial failed: %w", err))
	}

	if err := nc.SetDeadline(d.deadline(ctx)); err != nil {
		nc.Close()
		return nil, errs.ConnectionFailed(errs.Unknown, err)
	}
	stop := context.AfterFunc(ctx, func() {
		nc.SetDeadline(time.Now())
	})
	defer stop()

	client, err := routeros.NewClient(nc)
	if err != nil {
		nc.Close()
		return nil, errs.ConnectionFailed(classifyConnectError(err), fmt.Errorf("routeros client creation failed: %w", err))
	}

	if err := client.Login(username, password); err != nil {
		client.Close()
		return nil, errs.ConnectionFailed(classifyLoginError(err), fmt.Errorf("login failed: %w", err))
	}

	if !stop() {
		client.Close()
		return nil, errs.ConnectionFailed(errs.Timeout, ctx.Err())
	}
	if err := nc.SetDeadline(time.Time{}); err != nil {
		client.Close()
		return nil, errs.ConnectionFailed(errs.Unknown, err)
	}

	return &routerosConn{netConn: nc, client: client, timeout: d.Timeout}, nil
}

func (d *RouterOSDialer) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(d.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		return dl
	}
	return deadline
}

// routerosConn wraps a synchronous go-routeros client. The client cannot
// interleave commands, so calls are serialized.
type routerosConn struct {
	mu      sync.Mutex
	netConn net.Conn
	client  *routeros.Client
	timeout time.Duration
}

func (c *routerosConn) Call(ctx context.Context, path string, params []string) ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.netConn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		c.netConn.SetDeadline(time.Now())
	})
	defer stop()

	reply, err := c.client.RunArgs(append([]string{path}, params...))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, err
	}

	records := make([]Record, 0, len(reply.Re))
	for _, re := range reply.Re {
		rec := make(Record, len(re.Map))
		for k, v := range re.Map {
			rec[k] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close does not take the call lock so that it can abort a hung call.
func (c *routerosConn) Close() error {
	return c.client.Close()
}
