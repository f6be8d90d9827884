package services

import "time"

type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// RouterSession is one connection attempt or live session for a router. It
// is owned by SessionManager and only mutated under the manager's lock.
type RouterSession struct {
	connectionID string
	state        SessionState
	conn         Conn  // only in StateConnected
	lastError    error // only in StateFailed
	createdAt    time.Time

	// discarded is set when the session is removed from the table while a
	// connect attempt is still running; the attempt returns it.
	discarded error
}
