package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	errDisconnectedWhileConnecting = errs.New(errs.Unknown, "connection was closed while connecting")
	errDeletedWhileConnecting      = errs.New(errs.NotFound, "connection was deleted while connecting")
)

// SessionManager maps connection ids to at most one RouterSession.
// Connect attempts for the same id are collapsed into one in-flight dial;
// attempts for different ids run independently. The table lock is never held
// across network I/O.
type SessionManager struct {
	records ConnectionSource
	dialer  Dialer
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*RouterSession
	inflight singleflight.Group
	// lost holds the cause for ids whose live session died, until the next
	// successful connect or an explicit disconnect.
	lost map[string]error
}

func NewSessionManager(records ConnectionSource, dialer Dialer, timeout time.Duration, log *zap.Logger) *SessionManager {
	return &SessionManager{
		records:  records,
		dialer:   dialer,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*RouterSession),
		lost:     make(map[string]error),
	}
}

// Connect opens a session for id unless one is already connected. Concurrent
// callers for the same id share a single attempt and its outcome.
func (m *SessionManager) Connect(ctx context.Context, id string) error {
	if m.IsConnected(id) {
		return nil
	}

	ch := m.inflight.DoChan(id, func() (any, error) {
		return nil, m.connect(ctx, id)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		kind := errs.Unknown
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = errs.Timeout
		}
		return errs.Wrap(kind, ctx.Err(), "gave up waiting for the router connection")
	}
}

// connect runs inside the singleflight group, so at most one instance per id
// is active. It is detached from the first caller's cancellation so that
// joined callers are not failed by it.
func (m *SessionManager) connect(parent context.Context, id string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), m.timeout)
	defer cancel()

	sess := &RouterSession{connectionID: id, state: StateConnecting, createdAt: m.now()}

	m.mu.Lock()
	if cur, ok := m.sessions[id]; ok && cur.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	// Registered before the record lookup so a concurrent DeleteSession
	// always sees the attempt.
	m.sessions[id] = sess
	m.mu.Unlock()

	rec, err := m.records.Get(ctx, id)
	if err != nil {
		m.mu.Lock()
		if m.sessions[id] == sess {
			delete(m.sessions, id)
		}
		m.mu.Unlock()
		connectAttempts.WithLabelValues("not_found").Inc()
		return err
	}

	m.log.Info("connecting to router",
		zap.String("connection_id", id),
		zap.String("name", rec.Name),
		zap.String("address", rec.Address),
		zap.Int("port", rec.Port),
	)

	conn, dialErr := m.dialer.Dial(ctx, JoinHostPort(rec.Address, rec.Port), rec.Username, rec.Password)

	m.mu.Lock()
	current := m.sessions[id] == sess
	if dialErr != nil {
		cerr := asConnectError(dialErr)
		if current {
			sess.state = StateFailed
			sess.lastError = cerr
		}
		m.mu.Unlock()
		connectAttempts.WithLabelValues(errs.KindOf(cerr).String()).Inc()
		m.log.Warn("router connect failed",
			zap.String("connection_id", id),
			zap.Stringer("kind", errs.KindOf(cerr)),
			zap.Error(dialErr),
		)
		return cerr
	}
	if !current {
		reason := sess.discarded
		m.mu.Unlock()
		if err := conn.Close(); err != nil {
			m.log.Warn("closing discarded session", zap.String("connection_id", id), zap.Error(err))
		}
		connectAttempts.WithLabelValues("discarded").Inc()
		if reason == nil {
			reason = errDisconnectedWhileConnecting
		}
		return reason
	}
	sess.state = StateConnected
	sess.conn = conn
	sess.lastError = nil
	delete(m.lost, id)
	m.updateGaugeLocked()
	m.mu.Unlock()

	connectAttempts.WithLabelValues("ok").Inc()
	if err := m.records.TouchLastConnected(ctx, id, m.now()); err != nil {
		m.log.Warn("recording last connected time", zap.String("connection_id", id), zap.Error(err))
	}
	m.log.Info("connected to router", zap.String("connection_id", id), zap.String("name", rec.Name))
	return nil
}

func asConnectError(err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.ConnectionFailed(classifyConnectError(err), err)
}

// Disconnect closes and forgets the session for id. It succeeds when there is
// nothing to close, and close errors are only logged. A pending connect
// attempt fails, and the next Connect starts a new one.
func (m *SessionManager) Disconnect(ctx context.Context, id string) error {
	m.remove(id, errDisconnectedWhileConnecting)
	m.inflight.Forget(id)
	return nil
}

// DeleteSession tears down everything known about id. Used when the
// connection record itself is deleted.
func (m *SessionManager) DeleteSession(ctx context.Context, id string) {
	m.remove(id, errDeletedWhileConnecting)
	m.inflight.Forget(id)
}

func (m *SessionManager) remove(id string, reason error) {
	m.mu.Lock()
	delete(m.lost, id)
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	conn := sess.conn
	sess.conn = nil
	sess.state = StateDisconnected
	sess.discarded = reason
	m.updateGaugeLocked()
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Warn("closing router session", zap.String("connection_id", id), zap.Error(err))
		}
	}
	m.log.Info("router session closed", zap.String("connection_id", id))
}

// IsConnected is a pure read of the session table.
func (m *SessionManager) IsConnected(id string) bool {
	return m.State(id) == StateConnected
}

func (m *SessionManager) State(id string) SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess.state
	}
	return StateDisconnected
}

// LostReason returns why the last live session for id died, or nil when the
// router was never connected, was disconnected on request, or has since
// reconnected.
func (m *SessionManager) LostReason(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lost[id]
}

// LastError returns the error of a failed session, if any.
func (m *SessionManager) LastError(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok && sess.state == StateFailed {
		return sess.lastError
	}
	return nil
}

// EnsureConnected is the only way data queries obtain a session: it returns
// immediately when connected and otherwise performs one connect.
func (m *SessionManager) EnsureConnected(ctx context.Context, id string) error {
	if m.IsConnected(id) {
		return nil
	}
	return m.Connect(ctx, id)
}

// Execute runs one remote call, connecting first if needed. When the call
// shows the session is dead the session is discarded so the next call starts
// clean; the failed call itself is not retried.
func (m *SessionManager) Execute(ctx context.Context, id, path string, params []string) ([]Record, error) {
	if err := m.EnsureConnected(ctx, id); err != nil {
		return nil, err
	}
	return m.call(ctx, id, path, params)
}

func (m *SessionManager) call(ctx context.Context, id, path string, params []string) ([]Record, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok || sess.state != StateConnected {
		m.mu.Unlock()
		return nil, errs.New(errs.NetworkUnreachable, "router session closed before the call was sent")
	}
	conn := sess.conn
	m.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	records, err := conn.Call(callCtx, path, params)
	if err == nil {
		callDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
		return records, nil
	}

	if isSessionDead(err) {
		callDuration.WithLabelValues("dead").Observe(time.Since(start).Seconds())
		m.discard(id, sess, err)
	} else {
		callDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
	}
	m.log.Debug("router call failed",
		zap.String("connection_id", id),
		zap.String("path", path),
		zap.Error(err),
	)
	return nil, classifyCallError(err)
}

// discard drops sess if it is still the current session for id.
func (m *SessionManager) discard(id string, sess *RouterSession, cause error) {
	m.mu.Lock()
	if m.sessions[id] != sess {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	conn := sess.conn
	sess.conn = nil
	sess.state = StateDisconnected
	m.lost[id] = cause
	m.updateGaugeLocked()
	m.mu.Unlock()

	discardedSessions.Inc()
	m.log.Warn("router session lost, discarding", zap.String("connection_id", id), zap.Error(cause))
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Debug("closing dead session", zap.String("connection_id", id), zap.Error(err))
		}
	}
}

// Snapshot lists all sessions the manager knows about, ordered by id.
func (m *SessionManager) Snapshot() []models.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.SessionInfo, 0, len(m.sessions))
	for id, sess := range m.sessions {
		info := models.SessionInfo{
			ConnectionID: id,
			State:        sess.state.String(),
			CreatedAt:    sess.createdAt,
		}
		if sess.lastError != nil {
			info.LastError = errs.Message(sess.lastError)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out
}

func (m *SessionManager) connectedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id, sess := range m.sessions {
		if sess.state == StateConnected {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Close disconnects every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.remove(id, errDisconnectedWhileConnecting)
		m.inflight.Forget(id)
	}
}

func (m *SessionManager) updateGaugeLocked() {
	n := 0
	for _, sess := range m.sessions {
		if sess.state == StateConnected {
			n++
		}
	}
	liveSessions.Set(float64(n))
}
