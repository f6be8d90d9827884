package services

import (
	"context"
	"net"
	"testing"
	"time"

	"Mikrotik-Dashboard/errs"

	"github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveFakeRouter accepts one API connection on a loopback port and hands it
// to handle. done is closed when the test ends.
func serveFakeRouter(t *testing.T, handle func(r proto.Reader, w proto.Writer, done <-chan struct{})) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		ln.Close()
	})
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		handle(proto.NewReader(nc), proto.NewWriter(nc), done)
	}()
	return ln.Addr().String()
}

func writeSentence(w proto.Writer, words ...string) {
	w.BeginSentence()
	for _, word := range words {
		w.WriteWord(word)
	}
	_ = w.EndSentence()
}

func acceptLogin(r proto.Reader, w proto.Writer) bool {
	if _, err := r.ReadSentence(); err != nil {
		return false
	}
	writeSentence(w, "!done")
	return true
}

func TestRouterOSDialerLoginTrapIsAuthentication(t *testing.T) {
	logins := make(chan *proto.Sentence, 1)
	addr := serveFakeRouter(t, func(r proto.Reader, w proto.Writer, done <-chan struct{}) {
		sen, err := r.ReadSentence()
		if err != nil {
			return
		}
		logins <- sen
		writeSentence(w, "!trap", "=message=invalid user name or password (6)")
		writeSentence(w, "!done")
		<-done
	})

	conn, err := NewRouterOSDialer(2*time.Second).Dial(context.Background(), addr, "admin", "wrong")
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.Equal(t, errs.Authentication, errs.KindOf(err))
	var devErr *routeros.DeviceError
	assert.ErrorAs(t, err, &devErr)

	login := <-logins
	assert.Equal(t, "/login", login.Word)
	assert.Equal(t, "admin", login.Map["name"])
}

func TestRouterOSDialerSilentRouterTimesOut(t *testing.T) {
	addr := serveFakeRouter(t, func(r proto.Reader, _ proto.Writer, done <-chan struct{}) {
		_, _ = r.ReadSentence()
		<-done
	})

	start := time.Now()
	conn, err := NewRouterOSDialer(200*time.Millisecond).Dial(context.Background(), addr, "admin", "secret")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Nil(t, conn)
	assert.Equal(t, errs.Timeout, errs.KindOf(err))
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRouterOSDialerHonoursContextDeadline(t *testing.T) {
	addr := serveFakeRouter(t, func(r proto.Reader, _ proto.Writer, done <-chan struct{}) {
		_, _ = r.ReadSentence()
		<-done
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := NewRouterOSDialer(time.Minute).Dial(ctx, addr, "admin", "secret")

	require.Error(t, err)
	assert.Equal(t, errs.Timeout, errs.KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRouterOSDialerRefusedIsUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = NewRouterOSDialer(time.Second).Dial(context.Background(), addr, "admin", "secret")
	require.Error(t, err)
	assert.Equal(t, errs.NetworkUnreachable, errs.KindOf(err))
}

func TestRouterOSConnCallReturnsRecords(t *testing.T) {
	sent := make(chan *proto.Sentence, 1)
	addr := serveFakeRouter(t, func(r proto.Reader, w proto.Writer, done <-chan struct{}) {
		if !acceptLogin(r, w) {
			return
		}
		sen, err := r.ReadSentence()
		if err != nil {
			return
		}
		sent <- sen
		writeSentence(w, "!re", "=name=ether1", "=running=true")
		writeSentence(w, "!re", "=name=ether2", "=running=false")
		writeSentence(w, "!done")
		<-done
	})

	conn, err := NewRouterOSDialer(2*time.Second).Dial(context.Background(), addr, "admin", "secret")
	require.NoError(t, err)
	defer conn.Close()

	records, err := conn.Call(context.Background(), "/interface/print", []string{"=.proplist=name,running"})
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{"name": "ether1", "running": "true"},
		{"name": "ether2", "running": "false"},
	}, records)
	got := <-sent
	assert.Equal(t, "/interface/print", got.Word)
	assert.Equal(t, "name,running", got.Map[".proplist"])
}

func TestRouterOSConnStalledCallKillsSession(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		ctx     func() (context.Context, context.CancelFunc)
	}{
		{
			name:    "call timeout",
			timeout: 150 * time.Millisecond,
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithCancel(context.Background())
			},
		},
		{
			name:    "context deadline",
			timeout: time.Minute,
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 150*time.Millisecond)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := serveFakeRouter(t, func(r proto.Reader, w proto.Writer, done <-chan struct{}) {
				if !acceptLogin(r, w) {
					return
				}
				_, _ = r.ReadSentence()
				<-done
			})

			conn, err := NewRouterOSDialer(tt.timeout).Dial(context.Background(), addr, "admin", "secret")
			require.NoError(t, err)
			defer conn.Close()

			ctx, cancel := tt.ctx()
			defer cancel()
			start := time.Now()
			_, err = conn.Call(ctx, "/system/resource/print", nil)

			require.Error(t, err)
			assert.True(t, isSessionDead(err), "err = %v", err)
			assert.Equal(t, errs.Timeout, classifyCallError(err).Kind)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}
