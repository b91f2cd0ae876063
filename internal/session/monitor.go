package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"gtm-console/internal/domain"
)

// DefaultPollInterval es la frecuencia de consulta a /health.
const DefaultPollInterval = 30 * time.Second

var (
	ErrMonitorRunning = errors.New("health monitor already running")
	ErrMonitorClosed  = errors.New("health monitor closed")
)

// HealthChecker es la parte del backend que usa el monitor.
type HealthChecker interface {
	Health(ctx context.Context) (domain.ConnectionStatus, error)
}

// StatusListener recibe el estado anterior y el nuevo en cada poll.
type StatusListener func(prev, curr domain.ConnectionStatus)

// HealthMonitor consulta periodicamente el backend y guarda el ultimo estado.
type HealthMonitor struct {
	client   HealthChecker
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	current   domain.ConnectionStatus
	previous  domain.ConnectionStatus
	listeners []StatusListener
	epoch     uint64
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewHealthMonitor(client HealthChecker, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	connecting := domain.ConnectionStatus{State: domain.HealthConnecting, Message: "Connecting..."}
	return &HealthMonitor{
		client:   client,
		interval: interval,
		logger:   logger,
		current:  connecting,
		previous: connecting,
	}
}

// Subscribe registra un listener. Debe llamarse antes de Start.
func (m *HealthMonitor) Subscribe(fn StatusListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *HealthMonitor) Status() domain.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *HealthMonitor) Previous() domain.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous
}

// Start lanza el loop de polling: un poll inmediato y luego uno por tick.
func (m *HealthMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if m.cancel != nil {
		m.mu.Unlock()
		return ErrMonitorRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.epoch++
	epoch := m.epoch
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go m.loop(loopCtx, epoch, done)
	return nil
}

func (m *HealthMonitor) loop(ctx context.Context, epoch uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx, epoch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx, epoch)
		}
	}
}

// Stop detiene el polling y espera a que el loop termine. Es idempotente.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.epoch++
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close detiene el monitor para siempre: el estado queda congelado y Poll ya
// no consulta el backend.
func (m *HealthMonitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.Stop()
}

// Poll hace una consulta fuera del loop. Un Stop concurrente descarta el resultado.
func (m *HealthMonitor) Poll(ctx context.Context) domain.ConnectionStatus {
	m.mu.Lock()
	if m.closed {
		st := m.current
		m.mu.Unlock()
		return st
	}
	epoch := m.epoch
	m.mu.Unlock()

	st, _ := m.poll(ctx, epoch)
	return st
}

func (m *HealthMonitor) poll(ctx context.Context, epoch uint64) (domain.ConnectionStatus, bool) {
	st, err := m.client.Health(ctx)
	if err != nil {
		m.logger.Warn("health check failed", zap.Error(err))
		st = domain.ConnectionStatus{
			State:         domain.HealthUnhealthy,
			Message:       err.Error(),
			Authenticated: false,
		}
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Debug("discarding stale health result")
		return st, false
	}
	prev := m.current
	m.previous = prev
	m.current = st
	listeners := append([]StatusListener(nil), m.listeners...)
	m.mu.Unlock()

	if prev.State != st.State {
		m.logger.Info("connection status changed",
			zap.String("from", string(prev.State)),
			zap.String("to", string(st.State)),
		)
	}
	for _, fn := range listeners {
		fn(prev, st)
	}
	return st, true
}
