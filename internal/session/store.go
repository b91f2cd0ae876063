package session

import (
	"sync"
	"time"

	"gtm-console/internal/domain"
)

// ConversationStore es el log ordenado y de solo-append del transcript.
// Los ids salen de un unico contador protegido por el mismo lock que el slice.
// notifyMu se toma antes que mu y se mantiene durante la notificacion, asi el
// observer ve los mensajes en orden de id. El observer no debe hacer Append.
type ConversationStore struct {
	notifyMu sync.Mutex
	mu       sync.Mutex
	lastID   int64
	messages []domain.Message
	markers  map[string]struct{}
	now      func() time.Time
	observer func(domain.Message)
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		markers: make(map[string]struct{}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Append agrega un mensaje y devuelve la copia almacenada.
func (s *ConversationStore) Append(role domain.Role, content string) domain.Message {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	msg := s.appendLocked(role, content)
	s.mu.Unlock()

	s.notify(msg)
	return msg
}

// AppendOnce agrega el mensaje solo si marker nunca fue usado en este store.
func (s *ConversationStore) AppendOnce(marker string, role domain.Role, content string) (domain.Message, bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if _, seen := s.markers[marker]; seen {
		s.mu.Unlock()
		return domain.Message{}, false
	}
	s.markers[marker] = struct{}{}
	msg := s.appendLocked(role, content)
	s.mu.Unlock()

	s.notify(msg)
	return msg, true
}

// appendWithHistory toma el snapshot previo y agrega el mensaje en un solo paso.
func (s *ConversationStore) appendWithHistory(role domain.Role, content string) (domain.Message, []domain.Message) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	history := make([]domain.Message, len(s.messages))
	copy(history, s.messages)
	msg := s.appendLocked(role, content)
	s.mu.Unlock()

	s.notify(msg)
	return msg, history
}

func (s *ConversationStore) appendLocked(role domain.Role, content string) domain.Message {
	s.lastID++
	msg := domain.Message{
		ID:        s.lastID,
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *ConversationStore) notify(msg domain.Message) {
	if s.observer != nil {
		s.observer(msg)
	}
}

// Snapshot devuelve una copia del transcript en orden de insercion.
func (s *ConversationStore) Snapshot() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// HasMarker reporta si AppendOnce ya consumio el marker.
func (s *ConversationStore) HasMarker(marker string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.markers[marker]
	return ok
}
