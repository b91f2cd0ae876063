package session

import (
	"sync"
	"time"

	"gtm-console/internal/domain"
)

// EventType clasifica los cambios de estado que ve la capa de presentacion.
type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventStatusUpdated   EventType = "status_updated"
	EventDispatcherState EventType = "dispatcher_state"
)

// Event es la unidad que reciben los suscriptores de la sesion.
type Event struct {
	Type      EventType                `json:"type"`
	SessionID string                   `json:"session_id"`
	Message   *domain.Message          `json:"message,omitempty"`
	Status    *domain.ConnectionStatus `json:"status,omitempty"`
	State     domain.DispatcherState   `json:"state,omitempty"`
	At        time.Time                `json:"at"`
}

// Subscriber no debe bloquear ni llamar a Session.Stop.
type Subscriber func(Event)

type eventBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Subscriber
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]Subscriber)}
}

func (b *eventBus) subscribe(fn Subscriber) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *eventBus) publish(evt Event) {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(evt)
	}
}
