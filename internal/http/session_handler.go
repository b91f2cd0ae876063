package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gtm-console/internal/domain"
	"gtm-console/internal/session"
)

// ConsoleSession es lo que la capa HTTP necesita de la sesion.
type ConsoleSession interface {
	ID() string
	Status() domain.ConnectionStatus
	State() domain.DispatcherState
	Messages() []domain.Message
	Input() string
	SetInput(text string)
	Submit(text string) bool
	QuickActions() []string
	UseQuickAction(i int) bool
	Subscribe(fn session.Subscriber) func()
}

// SessionHandler expone el estado de la sesion a los renderizadores.
type SessionHandler struct {
	logger  *zap.Logger
	session ConsoleSession
}

// NewSessionHandler crea una instancia de SessionHandler.
func NewSessionHandler(logger *zap.Logger, s ConsoleSession) *SessionHandler {
	return &SessionHandler{logger: logger, session: s}
}

// GetSession maneja GET /session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":     h.session.ID(),
		"status": h.session.Status(),
		"state":  h.session.State(),
		"input":  h.session.Input(),
	})
}

// ListMessages maneja GET /session/messages.
func (h *SessionHandler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.session.Messages()})
}

// PostMessage maneja POST /session/messages. La respuesta del backend llega
// despues como evento o en el transcript.
func (h *SessionHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}

	if !h.session.Submit(req.Content) {
		status, reason := h.rejection()
		h.logger.Info("message rejected", zap.String("reason", reason))
		c.JSON(status, gin.H{"error": reason})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (h *SessionHandler) rejection() (int, string) {
	if h.session.State() != domain.DispatcherIdle {
		return http.StatusConflict, "request in flight"
	}
	if !h.session.Status().Healthy() {
		return http.StatusServiceUnavailable, "backend not healthy"
	}
	return http.StatusConflict, "session closed"
}

// PutInput maneja PUT /session/input.
func (h *SessionHandler) PutInput(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.session.SetInput(req.Content)
	c.JSON(http.StatusOK, gin.H{"input": h.session.Input()})
}

// ListQuickActions maneja GET /session/quick-actions.
func (h *SessionHandler) ListQuickActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"quick_actions": h.session.QuickActions(),
		"enabled":       h.session.Status().Healthy(),
	})
}

// UseQuickAction maneja POST /session/quick-actions/:index.
func (h *SessionHandler) UseQuickAction(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	if !h.session.UseQuickAction(idx) {
		c.JSON(http.StatusConflict, gin.H{"error": "quick action unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"input": h.session.Input()})
}

// StreamEvents maneja GET /session/events como Server-Sent Events.
func (h *SessionHandler) StreamEvents(c *gin.Context) {
	events := make(chan session.Event, 32)
	unsubscribe := h.session.Subscribe(func(evt session.Event) {
		select {
		case events <- evt:
		default:
			h.logger.Warn("dropping session event for slow client", zap.String("event", string(evt.Type)))
		}
	})
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case evt := <-events:
			c.SSEvent(string(evt.Type), evt)
			return true
		}
	})
}
