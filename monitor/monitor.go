// Package monitor polls every connected router and raises alerts for high
// CPU, memory or bandwidth, interfaces going down and sessions that are lost.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"
	"Mikrotik-Dashboard/notifications"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	RuleHighCPU        = "high_cpu"
	RuleHighMemory     = "high_memory"
	RuleInterfaceDown  = "interface_down"
	RuleHighBandwidth  = "high_bandwidth"
	RuleConnectionLost = "connection_lost"
)

var alertsRaised = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mikrotik_alerts_total",
		Help: "Alerts raised by the monitor, by rule.",
	},
	[]string{"rule"},
)

func init() {
	prometheus.MustRegister(alertsRaised)
}

// Connections lists the routers to watch and reports their session state.
// Only connected routers are queried; LostReason is non-nil for a router
// whose live session died and was not reconnected or disconnected since.
type Connections interface {
	List(ctx context.Context) ([]*models.ConnectionRecord, error)
	IsConnected(id string) bool
	LostReason(id string) error
}

// RouterData is the subset of the data facade the monitor reads.
type RouterData interface {
	GetResourceInfo(ctx context.Context, id string) (*models.ResourceInfo, error)
	GetInterfaces(ctx context.Context, id string) ([]models.Interface, error)
	GetInterfaceTraffic(ctx context.Context, id, iface string) (*models.TrafficStats, error)
}

type alertKey struct {
	connectionID string
	rule         string
	subject      string
}

type Monitor struct {
	rules    *Rules
	conns    Connections
	data     RouterData
	notifier notifications.Notifier
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[alertKey]time.Time
	running  map[string]map[string]bool // connection id -> interface -> running
	failures map[string]int
}

func New(rules *Rules, conns Connections, data RouterData, notifier notifications.Notifier, log *zap.Logger) *Monitor {
	return &Monitor{
		rules:    rules,
		conns:    conns,
		data:     data,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		lastSent: make(map[alertKey]time.Time),
		running:  make(map[string]map[string]bool),
		failures: make(map[string]int),
	}
}

// Run checks all routers every rules interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info("alert monitor started", zap.Duration("interval", m.rules.Interval.Std()))
	ticker := time.NewTicker(m.rules.Interval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("alert monitor stopped")
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll runs one round over every stored connection.
func (m *Monitor) CheckAll(ctx context.Context) {
	recs, err := m.conns.List(ctx)
	if err != nil {
		m.log.Error("listing connections", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, rec := range recs {
		wg.Add(1)
		go func(rec *models.ConnectionRecord) {
			defer wg.Done()
			m.check(ctx, rec)
		}(rec)
	}
	wg.Wait()
	m.forgetMissing(recs)
}

func (m *Monitor) check(ctx context.Context, rec *models.ConnectionRecord) {
	if !m.conns.IsConnected(rec.ID) {
		m.notConnected(ctx, rec)
		return
	}
	res, err := m.data.GetResourceInfo(ctx, rec.ID)
	if err != nil {
		m.checkFailed(ctx, rec, err)
		return
	}
	m.mu.Lock()
	delete(m.failures, rec.ID)
	m.mu.Unlock()

	if r := m.rules.HighCPU; r.Enabled && res.CPULoad >= r.Threshold {
		m.raise(ctx, rec, RuleHighCPU, "cpu", notifications.SeverityWarning,
			fmt.Sprintf("CPU load %d%% exceeds %d%%", res.CPULoad, r.Threshold))
	}
	if r := m.rules.HighMemory; r.Enabled && res.TotalMemory > 0 && res.MemoryUsedPercent >= r.Threshold {
		m.raise(ctx, rec, RuleHighMemory, "memory", notifications.SeverityWarning,
			fmt.Sprintf("memory usage %d%% exceeds %d%%", res.MemoryUsedPercent, r.Threshold))
	}

	if !m.rules.InterfaceDown.Enabled && !m.rules.HighBandwidth.Enabled {
		return
	}
	ifaces, err := m.data.GetInterfaces(ctx, rec.ID)
	if err != nil {
		m.log.Warn("reading interfaces", zap.String("connection_id", rec.ID), zap.Error(err))
		return
	}
	if m.rules.InterfaceDown.Enabled {
		for _, name := range m.wentDown(rec.ID, ifaces) {
			m.raise(ctx, rec, RuleInterfaceDown, name, notifications.SeverityCritical,
				fmt.Sprintf("interface %s is down", name))
		}
	}
	if m.rules.HighBandwidth.Enabled {
		m.checkBandwidth(ctx, rec, ifaces)
	}
}

// notConnected handles a router without a live session. A router the
// operator never connected or disconnected is left alone; one whose session
// died counts as a failed check.
func (m *Monitor) notConnected(ctx context.Context, rec *models.ConnectionRecord) {
	cause := m.conns.LostReason(rec.ID)
	if cause == nil {
		m.mu.Lock()
		delete(m.failures, rec.ID)
		delete(m.running, rec.ID)
		m.mu.Unlock()
		return
	}
	m.checkFailed(ctx, rec, errs.Wrap(errs.NetworkUnreachable, cause, "router session lost"))
}

// checkBandwidth compares the busier direction of every running interface
// with its link speed. Interfaces of unknown speed are skipped.
func (m *Monitor) checkBandwidth(ctx context.Context, rec *models.ConnectionRecord, ifaces []models.Interface) {
	r := m.rules.HighBandwidth
	for _, iface := range ifaces {
		if iface.Disabled || !iface.Running || iface.Speed == 0 || contains(r.ExcludedInterfaces, iface.Name) {
			continue
		}
		stats, err := m.data.GetInterfaceTraffic(ctx, rec.ID, iface.Name)
		if err != nil {
			m.log.Warn("reading interface traffic",
				zap.String("connection_id", rec.ID),
				zap.String("interface", iface.Name),
				zap.Error(err),
			)
			continue
		}
		peak := max(stats.RxBitsPerSec, stats.TxBitsPerSec)
		pct := peak * 100 / iface.Speed
		if pct >= r.Threshold {
			m.raise(ctx, rec, RuleHighBandwidth, iface.Name, notifications.SeverityWarning,
				fmt.Sprintf("interface %s at %d%% of link speed, threshold %d%%", iface.Name, pct, r.Threshold))
		}
	}
}

// wentDown records the running state of every watched interface and returns
// those that were running on the previous check and are not now. Disabled
// interfaces are administrative, not failures.
func (m *Monitor) wentDown(id string, ifaces []models.Interface) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.running[id]
	next := make(map[string]bool, len(ifaces))
	var down []string
	for _, iface := range ifaces {
		if iface.Disabled || contains(m.rules.InterfaceDown.ExcludedInterfaces, iface.Name) {
			continue
		}
		next[iface.Name] = iface.Running
		if was, seen := prev[iface.Name]; seen && was && !iface.Running {
			down = append(down, iface.Name)
		}
	}
	m.running[id] = next
	return down
}

func (m *Monitor) checkFailed(ctx context.Context, rec *models.ConnectionRecord, err error) {
	if errs.Is(err, errs.NotFound) {
		return
	}
	m.mu.Lock()
	m.failures[rec.ID]++
	n := m.failures[rec.ID]
	m.mu.Unlock()

	m.log.Warn("router check failed",
		zap.String("connection_id", rec.ID),
		zap.Int("consecutive_failures", n),
		zap.Error(err),
	)
	r := m.rules.ConnectionLost
	if r.Enabled && n >= r.Retries {
		m.raise(ctx, rec, RuleConnectionLost, "", notifications.SeverityCritical,
			fmt.Sprintf("router unreachable: %s", errs.Message(err)))
	}
}

func (m *Monitor) raise(ctx context.Context, rec *models.ConnectionRecord, rule, subject string, sev notifications.Severity, text string) {
	key := alertKey{connectionID: rec.ID, rule: rule, subject: subject}
	now := m.now()

	m.mu.Lock()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.rules.cooldownFor(rule) {
		m.mu.Unlock()
		return
	}
	m.lastSent[key] = now
	m.mu.Unlock()

	alertsRaised.WithLabelValues(rule).Inc()
	m.log.Warn("alert raised",
		zap.String("connection_id", rec.ID),
		zap.String("rule", rule),
		zap.String("subject", subject),
		zap.String("text", text),
	)

	msg := notifications.Message{
		ConnectionID: rec.ID,
		DeviceName:   rec.Name,
		Rule:         rule,
		Subject:      subject,
		Severity:     sev,
		Text:         text,
		Time:         now,
	}
	if err := m.notifier.Send(ctx, msg); err != nil {
		m.log.Warn("alert delivery incomplete", zap.String("rule", rule), zap.Error(err))
	}
}

func (m *Monitor) forgetMissing(recs []*models.ConnectionRecord) {
	live := make(map[string]bool, len(recs))
	for _, rec := range recs {
		live[rec.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.running {
		if !live[id] {
			delete(m.running, id)
		}
	}
	for id := range m.failures {
		if !live[id] {
			delete(m.failures, id)
		}
	}
	for key := range m.lastSent {
		if !live[key.connectionID] {
			delete(m.lastSent, key)
		}
	}
}
