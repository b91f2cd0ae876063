package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gtm-console/internal/backend"
	"gtm-console/internal/domain"
)

var ErrSessionStopped = errors.New("session stopped")

// InitialNotice abre todo transcript nuevo.
const InitialNotice = "🚀 MCP HubSpot Agent Initialized"

var quickActions = []string{
	"Hello",
	"Show me recent leads",
	"How are my calls performing?",
	"What's my sales pipeline looking like?",
	"Help me understand my revenue",
}

// Options agrupa la configuracion de una sesion.
type Options struct {
	PollInterval   time.Duration
	RequireHealthy bool
	Logger         *zap.Logger
}

// Session es el estado completo de una conversacion: transcript, salud del
// backend y dispatcher. La capa de presentacion solo lee y se suscribe; las
// mutaciones pasan por los metodos documentados.
type Session struct {
	id         string
	logger     *zap.Logger
	live       *liveness
	bus        *eventBus
	store      *ConversationStore
	monitor    *HealthMonitor
	guard      *WelcomeGuard
	dispatcher *ChatDispatcher
}

// New arma la sesion sobre el cliente de backend. El polling empieza con Start.
func New(client backend.Client, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id))

	s := &Session{
		id:     id,
		logger: logger,
		live:   &liveness{},
		bus:    newEventBus(),
		store:  NewConversationStore(),
	}
	s.store.observer = s.onAppend
	s.monitor = NewHealthMonitor(client, opts.PollInterval, logger)
	s.guard = newWelcomeGuard(s.store, s.live, logger)
	s.dispatcher = newChatDispatcher(client, s.store, s.monitor, s.live, opts.RequireHealthy, logger)
	s.dispatcher.onState = s.onDispatcherState

	s.monitor.Subscribe(s.onStatus)
	s.monitor.Subscribe(s.guard.Observe)

	s.store.Append(domain.RoleSystem, InitialNotice)
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Start lanza el polling de salud.
func (s *Session) Start(ctx context.Context) error {
	if !s.live.alive() {
		return ErrSessionStopped
	}
	s.logger.Info("session started")
	return s.monitor.Start(ctx)
}

// Stop termina la sesion: frena el polling y descarta respuestas pendientes.
// Es idempotente.
func (s *Session) Stop() {
	if !s.live.stop() {
		return
	}
	s.dispatcher.stop()
	s.monitor.Close()
	s.logger.Info("session stopped", zap.Int("messages", s.store.Len()))
}

// Poll fuerza una consulta de salud fuera del timer.
func (s *Session) Poll(ctx context.Context) domain.ConnectionStatus {
	return s.monitor.Poll(ctx)
}

func (s *Session) Messages() []domain.Message {
	return s.store.Snapshot()
}

func (s *Session) Status() domain.ConnectionStatus {
	return s.monitor.Status()
}

func (s *Session) State() domain.DispatcherState {
	return s.dispatcher.State()
}

func (s *Session) Input() string {
	return s.dispatcher.Input()
}

func (s *Session) SetInput(text string) {
	s.dispatcher.SetInput(text)
}

func (s *Session) Submit(text string) bool {
	return s.dispatcher.Submit(text)
}

func (s *Session) SubmitInput() bool {
	return s.dispatcher.SubmitInput()
}

// Wait bloquea hasta que no haya consultas de chat en vuelo.
func (s *Session) Wait() {
	s.dispatcher.Wait()
}

func (s *Session) WelcomeShown() bool {
	return s.guard.Shown()
}

// QuickActions devuelve los disparadores sugeridos de conversacion.
func (s *Session) QuickActions() []string {
	return append([]string(nil), quickActions...)
}

// UseQuickAction carga la sugerencia i en el buffer de entrada. Solo se
// habilita con el backend healthy.
func (s *Session) UseQuickAction(i int) bool {
	if i < 0 || i >= len(quickActions) || !s.Status().Healthy() {
		return false
	}
	s.dispatcher.SetInput(quickActions[i])
	return true
}

// Subscribe registra fn para todos los eventos de la sesion y devuelve la
// funcion para desuscribirse.
func (s *Session) Subscribe(fn Subscriber) func() {
	return s.bus.subscribe(fn)
}

func (s *Session) onAppend(msg domain.Message) {
	s.bus.publish(Event{
		Type:      EventMessageAppended,
		SessionID: s.id,
		Message:   &msg,
		At:        time.Now().UTC(),
	})
}

func (s *Session) onStatus(_, curr domain.ConnectionStatus) {
	s.live.run(s.live.token(), func() {
		s.bus.publish(Event{
			Type:      EventStatusUpdated,
			SessionID: s.id,
			Status:    &curr,
			At:        time.Now().UTC(),
		})
	})
}

func (s *Session) onDispatcherState(st domain.DispatcherState) {
	s.bus.publish(Event{
		Type:      EventDispatcherState,
		SessionID: s.id,
		State:     st,
		At:        time.Now().UTC(),
	})
}
