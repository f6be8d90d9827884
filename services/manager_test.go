package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"

	"github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu      sync.Mutex
	records map[string]*models.ConnectionRecord
	touched map[string]time.Time
}

func newFakeSource(recs ...*models.ConnectionRecord) *fakeSource {
	s := &fakeSource{
		records: make(map[string]*models.ConnectionRecord),
		touched: make(map[string]time.Time),
	}
	for _, r := range recs {
		s.records[r.ID] = r
	}
	return s
}

func (s *fakeSource) Get(_ context.Context, id string) (*models.ConnectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, errs.Newf(errs.NotFound, "connection %s not found", id)
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeSource) TouchLastConnected(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id] = at
	return nil
}

func (s *fakeSource) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

type fakeConn struct {
	mu       sync.Mutex
	replies  map[string][]Record
	callErr  error
	block    bool
	closeErr error
	closed   atomic.Bool
	calls    atomic.Int32
}

func (c *fakeConn) Call(ctx context.Context, path string, _ []string) ([]Record, error) {
	c.calls.Add(1)
	c.mu.Lock()
	block, callErr, replies := c.block, c.callErr, c.replies[path]
	c.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if callErr != nil {
		return nil, callErr
	}
	return replies, nil
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return c.closeErr
}

func (c *fakeConn) failWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callErr = err
}

type fakeDialer struct {
	mu    sync.Mutex
	dials atomic.Int32
	gate  chan struct{}
	err   error
	conns []*fakeConn
	newFn func() *fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, _, _, _ string) (Conn, error) {
	d.dials.Add(1)
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, errs.ConnectionFailed(errs.Timeout, ctx.Err())
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{}
	if d.newFn != nil {
		c = d.newFn()
	}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func testRecord(id string) *models.ConnectionRecord {
	return &models.ConnectionRecord{
		ID:       id,
		Name:     "R1",
		Address:  "10.0.0.1",
		Port:     models.DefaultRouterPort,
		Username: "admin",
		Password: "x",
	}
}

func newTestManager(t *testing.T, d *fakeDialer, timeout time.Duration, recs ...*models.ConnectionRecord) (*SessionManager, *fakeSource) {
	t.Helper()
	src := newFakeSource(recs...)
	m := NewSessionManager(src, d, timeout, zap.NewNop())
	t.Cleanup(m.Close)
	return m, src
}

func TestEnsureConnectedDialsOnce(t *testing.T) {
	d := &fakeDialer{}
	m, src := newTestManager(t, d, time.Second, testRecord("r1"))
	ctx := context.Background()

	assert.False(t, m.IsConnected("r1"))
	assert.Equal(t, StateDisconnected, m.State("r1"))

	require.NoError(t, m.EnsureConnected(ctx, "r1"))
	require.NoError(t, m.EnsureConnected(ctx, "r1"))

	assert.True(t, m.IsConnected("r1"))
	assert.Equal(t, int32(1), d.dials.Load())

	src.mu.Lock()
	_, touched := src.touched["r1"]
	src.mu.Unlock()
	assert.True(t, touched)
}

func TestConnectUnknownID(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, time.Second)

	err := m.Connect(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotFound))
	assert.Zero(t, d.dials.Load())
	assert.Empty(t, m.Snapshot())
}

func TestConcurrentConnectSingleDial(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{})}
	m, _ := newTestManager(t, d, 5*time.Second, testRecord("r1"))

	const callers = 10
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			results <- m.Connect(context.Background(), "r1")
		}()
	}

	require.Eventually(t, func() bool { return d.dials.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateConnecting, m.State("r1"))
	close(d.gate)

	for i := 0; i < callers; i++ {
		require.NoError(t, <-results)
	}
	assert.Equal(t, int32(1), d.dials.Load())
	assert.True(t, m.IsConnected("r1"))
}

func TestConnectDifferentIDsIndependent(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"), testRecord("r2"))

	var wg sync.WaitGroup
	for _, id := range []string{"r1", "r2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, m.Connect(context.Background(), id))
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(2), d.dials.Load())
	assert.True(t, m.IsConnected("r1"))
	assert.True(t, m.IsConnected("r2"))
}

func TestConnectAuthenticationFailureIsNotRetried(t *testing.T) {
	authErr := errs.ConnectionFailed(errs.Authentication, errors.New("invalid user name or password"))
	d := &fakeDialer{err: authErr}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := m.Connect(ctx, "r1")
		require.Error(t, err)
		assert.Equal(t, errs.Authentication, errs.KindOf(err))
		assert.Equal(t, "router rejected the credentials", errs.Message(err))
	}

	assert.Equal(t, int32(2), d.dials.Load())
	assert.Equal(t, StateFailed, m.State("r1"))
	assert.False(t, m.IsConnected("r1"))
	assert.Equal(t, errs.Authentication, errs.KindOf(m.LastError("r1")))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "failed", snap[0].State)
	assert.Equal(t, "router rejected the credentials", snap[0].LastError)
}

func TestConnectUnclassifiedDialError(t *testing.T) {
	d := &fakeDialer{err: io.ErrUnexpectedEOF}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"))

	err := m.Connect(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, errs.Unknown, errs.KindOf(err))
	assert.Equal(t, "connection to router failed", errs.Message(err))
}

func TestConnectCallerCancelDoesNotFailOthers(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{})}
	m, _ := newTestManager(t, d, 5*time.Second, testRecord("r1"))

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- m.Connect(first, "r1") }()
	require.Eventually(t, func() bool { return d.dials.Load() == 1 }, time.Second, 5*time.Millisecond)

	secondErr := make(chan error, 1)
	go func() { secondErr <- m.Connect(context.Background(), "r1") }()

	cancel()
	require.Error(t, <-firstErr)

	close(d.gate)
	require.NoError(t, <-secondErr)
	assert.True(t, m.IsConnected("r1"))
	assert.Equal(t, int32(1), d.dials.Load())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	d := &fakeDialer{newFn: func() *fakeConn { return &fakeConn{closeErr: errors.New("connection reset")} }}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"))
	ctx := context.Background()

	require.NoError(t, m.Disconnect(ctx, "never-seen"))

	require.NoError(t, m.Connect(ctx, "r1"))
	conn := d.last()

	require.NoError(t, m.Disconnect(ctx, "r1"))
	assert.True(t, conn.closed.Load())
	assert.False(t, m.IsConnected("r1"))
	assert.Equal(t, StateDisconnected, m.State("r1"))

	require.NoError(t, m.Disconnect(ctx, "r1"))
}

func TestExecuteDiscardsDeadSession(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"))
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, "r1"))
	dead := d.last()
	dead.failWith(io.EOF)

	_, err := m.Execute(ctx, "r1", "/interface/print", nil)
	require.Error(t, err)
	assert.Equal(t, errs.NetworkUnreachable, errs.KindOf(err))
	assert.Equal(t, int32(1), dead.calls.Load(), "failed call must not be retried inline")
	assert.False(t, m.IsConnected("r1"))
	assert.True(t, dead.closed.Load())

	_, err = m.Execute(ctx, "r1", "/interface/print", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), d.dials.Load())
	assert.True(t, m.IsConnected("r1"))
}

func TestExecuteDeviceErrorKeepsSession(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"))
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, "r1"))
	d.last().failWith(&routeros.DeviceError{Sentence: &proto.Sentence{
		Word: "!trap",
		Map:  map[string]string{"message": "no such command prefix"},
	}})

	_, err := m.Execute(ctx, "r1", "/bogus/print", nil)
	require.Error(t, err)
	assert.Equal(t, errs.Unknown, errs.KindOf(err))
	assert.Equal(t, "router returned an error: no such command prefix", errs.Message(err))
	assert.True(t, m.IsConnected("r1"))
	assert.Equal(t, int32(1), d.dials.Load())
}

func TestExecuteTimeoutDiscardsSession(t *testing.T) {
	d := &fakeDialer{newFn: func() *fakeConn { return &fakeConn{block: true} }}
	m, _ := newTestManager(t, d, 50*time.Millisecond, testRecord("r1"))
	ctx := context.Background()

	_, err := m.Execute(ctx, "r1", "/system/resource/print", nil)
	require.Error(t, err)
	assert.Equal(t, errs.Timeout, errs.KindOf(err))
	assert.False(t, m.IsConnected("r1"))
}

func TestDeleteSessionThenEnsureConnectedIsNotFound(t *testing.T) {
	d := &fakeDialer{}
	m, src := newTestManager(t, d, time.Second, testRecord("r1"))
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, "r1"))
	conn := d.last()

	src.remove("r1")
	m.DeleteSession(ctx, "r1")

	assert.False(t, m.IsConnected("r1"))
	assert.True(t, conn.closed.Load())

	err := m.EnsureConnected(ctx, "r1")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotFound))
	assert.Equal(t, int32(1), d.dials.Load())
}

func TestDeleteSessionWhileConnecting(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{})}
	m, src := newTestManager(t, d, 5*time.Second, testRecord("r1"))
	ctx := context.Background()

	result := make(chan error, 1)
	go func() { result <- m.Connect(ctx, "r1") }()
	require.Eventually(t, func() bool { return d.dials.Load() == 1 }, time.Second, 5*time.Millisecond)

	src.remove("r1")
	m.DeleteSession(ctx, "r1")
	close(d.gate)

	err := <-result
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotFound))
	assert.False(t, m.IsConnected("r1"))
	require.Eventually(t, func() bool {
		c := d.last()
		return c != nil && c.closed.Load()
	}, time.Second, 5*time.Millisecond)
}

func TestConnectAfterDisconnectWhileConnectingStartsFreshAttempt(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{})}
	m, _ := newTestManager(t, d, 5*time.Second, testRecord("r1"))
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- m.Connect(ctx, "r1") }()
	require.Eventually(t, func() bool { return d.dials.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Disconnect(ctx, "r1"))

	second := make(chan error, 1)
	go func() { second <- m.Connect(ctx, "r1") }()
	require.Eventually(t, func() bool { return d.dials.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(d.gate)

	err := <-first
	require.Error(t, err)
	assert.Equal(t, "connection was closed while connecting", errs.Message(err))

	require.NoError(t, <-second)
	assert.True(t, m.IsConnected("r1"))
	assert.Equal(t, int32(2), d.dials.Load())
}

func TestLostReason(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"), testRecord("r2"))
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, "r1"))
	require.NoError(t, m.Connect(ctx, "r2"))
	assert.NoError(t, m.LostReason("r1"))

	d.conns[0].failWith(io.EOF)
	_, err := m.Execute(ctx, "r1", "/system/resource/print", nil)
	require.Error(t, err)
	assert.ErrorIs(t, m.LostReason("r1"), io.EOF)

	require.NoError(t, m.Disconnect(ctx, "r2"))
	assert.NoError(t, m.LostReason("r2"), "a requested disconnect is not a loss")

	require.NoError(t, m.Connect(ctx, "r1"))
	assert.NoError(t, m.LostReason("r1"))

	d.last().failWith(io.EOF)
	_, _ = m.Execute(ctx, "r1", "/system/resource/print", nil)
	require.Error(t, m.LostReason("r1"))
	require.NoError(t, m.Disconnect(ctx, "r1"))
	assert.NoError(t, m.LostReason("r1"))
}

func TestKeepAliveProbeDiscardsWithoutReconnecting(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"), testRecord("r2"))
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, "r1"))
	r1 := d.last()
	require.NoError(t, m.Connect(ctx, "r2"))
	r1.failWith(io.EOF)

	m.probeAll(ctx)

	assert.False(t, m.IsConnected("r1"))
	assert.True(t, m.IsConnected("r2"))
	assert.Equal(t, int32(2), d.dials.Load())
}

func TestExampleScenarioReconnectsTransparently(t *testing.T) {
	d := &fakeDialer{newFn: func() *fakeConn {
		return &fakeConn{replies: map[string][]Record{
			"/interface/print": {{".id": "*1", "name": "ether1", "running": "true"}},
		}}
	}}
	m, _ := newTestManager(t, d, time.Second, testRecord("r1"))
	data := NewRouterData(m, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, "r1"))
	assert.True(t, m.IsConnected("r1"))

	ifaces, err := data.GetInterfaces(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "ether1", ifaces[0].Name)
	assert.NotNil(t, ifaces[0].Addresses)

	require.NoError(t, m.Disconnect(ctx, "r1"))
	assert.False(t, m.IsConnected("r1"))

	ifaces, err = data.GetInterfaces(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, ifaces, 1)
	assert.Equal(t, int32(2), d.dials.Load())
	assert.True(t, m.IsConnected("r1"))
}
