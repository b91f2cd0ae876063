package session

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"gtm-console/internal/domain"
)

// DiagnosticMessage reemplaza la respuesta cuando la consulta de chat falla.
const DiagnosticMessage = "🚨 I encountered an error while processing your request. " +
	"Please check the MCP connection status and try again. Make sure your backend server is running!"

// ChatClient es la parte del backend que usa el dispatcher.
type ChatClient interface {
	Chat(ctx context.Context, message string, history []domain.Message) (string, error)
}

type statusReader interface {
	Status() domain.ConnectionStatus
}

// ChatDispatcher maneja el ciclo request/response de una consulta del usuario.
// Solo admite una consulta en vuelo; el guard vive aca y no en quien llama.
type ChatDispatcher struct {
	client         ChatClient
	store          *ConversationStore
	health         statusReader
	live           *liveness
	logger         *zap.Logger
	requireHealthy bool
	onState        func(domain.DispatcherState)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    domain.DispatcherState
	input    string
	inflight sync.WaitGroup
}

func newChatDispatcher(
	client ChatClient,
	store *ConversationStore,
	health statusReader,
	live *liveness,
	requireHealthy bool,
	logger *zap.Logger,
) *ChatDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatDispatcher{
		client:         client,
		store:          store,
		health:         health,
		live:           live,
		logger:         logger,
		requireHealthy: requireHealthy,
		ctx:            ctx,
		cancel:         cancel,
		state:          domain.DispatcherIdle,
	}
}

func (d *ChatDispatcher) State() domain.DispatcherState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *ChatDispatcher) Input() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.input
}

func (d *ChatDispatcher) SetInput(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.input = text
}

// SubmitInput envia el contenido del buffer de entrada.
func (d *ChatDispatcher) SubmitInput() bool {
	return d.Submit(d.Input())
}

// Submit agrega el mensaje del usuario tal como fue escrito y lanza la
// consulta en background con el texto recortado.
// Devuelve false sin tocar nada si el texto esta vacio, hay una consulta en
// vuelo o el backend no esta healthy.
func (d *ChatDispatcher) Submit(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if d.requireHealthy && !d.health.Status().Healthy() {
		return false
	}

	d.mu.Lock()
	if d.state != domain.DispatcherIdle {
		d.mu.Unlock()
		return false
	}
	d.state = domain.DispatcherSending
	d.inflight.Add(1)
	d.mu.Unlock()

	// El append optimista ocurre antes de que la consulta resuelva.
	tok := d.live.token()
	var history []domain.Message
	accepted := d.live.run(tok, func() {
		_, history = d.store.appendWithHistory(domain.RoleUser, text)
	})

	d.mu.Lock()
	if !accepted {
		d.state = domain.DispatcherIdle
		d.mu.Unlock()
		d.inflight.Done()
		return false
	}
	d.input = ""
	d.mu.Unlock()

	d.notifyState(domain.DispatcherSending)
	go d.dispatch(tok, trimmed, history)
	return true
}

func (d *ChatDispatcher) dispatch(tok uint64, text string, history []domain.Message) {
	defer d.inflight.Done()

	content, err := d.client.Chat(d.ctx, text, history)
	if err != nil {
		d.logger.Warn("chat request failed", zap.Error(err))
		content = DiagnosticMessage
	}

	if !d.live.run(tok, func() { d.store.Append(domain.RoleAssistant, content) }) {
		d.logger.Debug("discarding chat response after session stop")
	}

	d.mu.Lock()
	d.state = domain.DispatcherIdle
	d.mu.Unlock()
	d.notifyState(domain.DispatcherIdle)
}

func (d *ChatDispatcher) notifyState(st domain.DispatcherState) {
	if d.onState != nil && d.live.alive() {
		d.onState(st)
	}
}

// Wait bloquea hasta que no quede ninguna consulta en vuelo.
func (d *ChatDispatcher) Wait() {
	d.inflight.Wait()
}

// stop cancela la consulta en vuelo; su respuesta ya no muta el store.
func (d *ChatDispatcher) stop() {
	d.cancel()
}
