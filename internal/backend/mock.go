package backend

import (
	"context"
	"sync"

	"gtm-console/internal/domain"
)

// MockClient permite tests sin levantar un backend real.
type MockClient struct {
	mu        sync.Mutex
	Status    domain.ConnectionStatus
	HealthErr error
	Response  string
	ChatErr   error

	ChatCalls   int
	LastMessage string
	LastHistory []domain.Message
}

func (m *MockClient) Health(ctx context.Context) (domain.ConnectionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Status, m.HealthErr
}

func (m *MockClient) Chat(ctx context.Context, message string, history []domain.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls++
	m.LastMessage = message
	m.LastHistory = append([]domain.Message(nil), history...)
	return m.Response, m.ChatErr
}

// SetStatus cambia el estado devuelto por Health de forma segura entre goroutines.
func (m *MockClient) SetStatus(st domain.ConnectionStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = st
	m.HealthErr = err
}

// Calls devuelve la cantidad de llamadas a Chat y el ultimo historial recibido.
func (m *MockClient) Calls() (int, string, []domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ChatCalls, m.LastMessage, append([]domain.Message(nil), m.LastHistory...)
}
