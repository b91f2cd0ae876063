package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"gtm-console/internal/domain"
)

type scriptedHealth struct {
	mu      sync.Mutex
	results []domain.ConnectionStatus
	errs    []error
	calls   int
}

func (h *scriptedHealth) Health(ctx context.Context) (domain.ConnectionStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.calls
	h.calls++
	if i >= len(h.results) {
		i = len(h.results) - 1
	}
	var err error
	if i < len(h.errs) {
		err = h.errs[i]
	}
	return h.results[i], err
}

func (h *scriptedHealth) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type blockingHealth struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *blockingHealth) Health(ctx context.Context) (domain.ConnectionStatus, error) {
	h.once.Do(func() { close(h.started) })
	<-h.release
	return healthy(), nil
}

func healthy() domain.ConnectionStatus {
	return domain.ConnectionStatus{State: domain.HealthHealthy, Message: "ok", Authenticated: true}
}

func unhealthy() domain.ConnectionStatus {
	return domain.ConnectionStatus{State: domain.HealthUnhealthy, Message: "down"}
}

func TestHealthMonitorPoll_FailureDegradesToUnhealthy(t *testing.T) {
	checker := &scriptedHealth{
		results: []domain.ConnectionStatus{{}},
		errs:    []error{errors.New("connection refused")},
	}
	m := NewHealthMonitor(checker, time.Minute, zap.NewNop())

	if m.Status().State != domain.HealthConnecting {
		t.Fatalf("expected connecting before first poll, got %s", m.Status().State)
	}

	st := m.Poll(context.Background())
	if st.State != domain.HealthUnhealthy || st.Authenticated {
		t.Fatalf("expected unhealthy unauthenticated, got %+v", st)
	}
	if st.Message != "connection refused" {
		t.Fatalf("expected failure reason in message, got %q", st.Message)
	}
}

func TestHealthMonitorPoll_TracksPrevious(t *testing.T) {
	checker := &scriptedHealth{results: []domain.ConnectionStatus{unhealthy(), healthy()}}
	m := NewHealthMonitor(checker, time.Minute, nil)

	var transitions [][2]domain.HealthState
	m.Subscribe(func(prev, curr domain.ConnectionStatus) {
		transitions = append(transitions, [2]domain.HealthState{prev.State, curr.State})
	})

	m.Poll(context.Background())
	m.Poll(context.Background())

	if m.Previous().State != domain.HealthUnhealthy || m.Status().State != domain.HealthHealthy {
		t.Fatalf("unexpected prev/current: %s/%s", m.Previous().State, m.Status().State)
	}
	want := [][2]domain.HealthState{
		{domain.HealthConnecting, domain.HealthUnhealthy},
		{domain.HealthUnhealthy, domain.HealthHealthy},
	}
	if len(transitions) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(transitions))
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("notification %d: expected %v, got %v", i, want[i], transitions[i])
		}
	}
}

func TestHealthMonitorStart_PollsImmediatelyAndOnTick(t *testing.T) {
	checker := &scriptedHealth{results: []domain.ConnectionStatus{healthy()}}
	m := NewHealthMonitor(checker, 10*time.Millisecond, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrMonitorRunning) {
		t.Fatalf("expected ErrMonitorRunning, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for checker.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()
	m.Stop()

	calls := checker.Calls()
	if calls < 3 {
		t.Fatalf("expected at least 3 polls, got %d", calls)
	}
	time.Sleep(30 * time.Millisecond)
	if checker.Calls() != calls {
		t.Fatalf("expected polling to stop, calls went from %d to %d", calls, checker.Calls())
	}
}

func TestHealthMonitorStop_DiscardsLateResult(t *testing.T) {
	checker := &blockingHealth{started: make(chan struct{}), release: make(chan struct{})}
	m := NewHealthMonitor(checker, time.Minute, nil)

	notified := 0
	m.Subscribe(func(prev, curr domain.ConnectionStatus) { notified++ })

	done := make(chan struct{})
	go func() {
		m.Poll(context.Background())
		close(done)
	}()
	<-checker.started

	m.Stop()
	close(checker.release)
	<-done

	if m.Status().State != domain.HealthConnecting {
		t.Fatalf("expected late result discarded, got %s", m.Status().State)
	}
	if notified != 0 {
		t.Fatalf("expected no notifications, got %d", notified)
	}
}

func TestHealthMonitorClose_FreezesStatus(t *testing.T) {
	checker := &scriptedHealth{results: []domain.ConnectionStatus{unhealthy(), healthy()}}
	m := NewHealthMonitor(checker, time.Minute, nil)

	m.Poll(context.Background())
	m.Close()

	st := m.Poll(context.Background())
	if st.State != domain.HealthUnhealthy || m.Status().State != domain.HealthUnhealthy {
		t.Fatalf("expected status frozen at unhealthy, got %s", m.Status().State)
	}
	if m.Previous().State != domain.HealthConnecting {
		t.Fatalf("expected previous untouched, got %s", m.Previous().State)
	}
	if checker.Calls() != 1 {
		t.Fatalf("expected no health call after close, got %d calls", checker.Calls())
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrMonitorClosed) {
		t.Fatalf("expected ErrMonitorClosed, got %v", err)
	}
}
