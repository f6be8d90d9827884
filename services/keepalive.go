package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const keepalivePath = "/system/identity/print"

// KeepAlive probes every connected session on each tick so that routers
// which went away are discarded before the next UI poll hits them. It never
// opens new sessions. Returns when ctx is done.
func (m *SessionManager) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeAll(ctx)
		}
	}
}

func (m *SessionManager) probeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range m.connectedIDs() {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := m.call(ctx, id, keepalivePath, nil); err != nil {
				m.log.Warn("keepalive probe failed", zap.String("connection_id", id), zap.Error(err))
			}
		}(id)
	}
	wg.Wait()
}
