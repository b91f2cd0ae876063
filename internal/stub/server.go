package stub

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Backend simula el servicio de integracion para desarrollo local.
type Backend struct {
	logger   *zap.Logger
	platform string

	mu            sync.RWMutex
	healthy       bool
	authenticated bool
	message       string
	lastSync      time.Time
}

// NewBackend crea un backend healthy. Si platform no esta vacio, /health
// responde anidado bajo esa clave.
func NewBackend(logger *zap.Logger, platform string) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		logger:        logger,
		platform:      strings.TrimSpace(platform),
		healthy:       true,
		authenticated: true,
		message:       "Connected to HubSpot",
		lastSync:      time.Now().UTC(),
	}
}

// SetHealth cambia lo que reporta /health.
func (b *Backend) SetHealth(healthy bool, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthy = healthy
	b.authenticated = healthy
	b.message = message
	if healthy {
		b.lastSync = time.Now().UTC()
	}
}

// Router monta las rutas bajo prefix (por ejemplo /api/mcp) y la raiz /health.
func (b *Backend) Router(prefix string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	prefix = "/" + strings.Trim(prefix, "/")
	if prefix != "/" {
		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})
	}

	g := r.Group(prefix)
	g.GET("/health", b.Health)
	g.POST("/chat", b.Chat)
	return r
}

// Health maneja GET {prefix}/health.
func (b *Backend) Health(c *gin.Context) {
	b.mu.RLock()
	status := gin.H{
		"status":        "unhealthy",
		"message":       b.message,
		"authenticated": b.authenticated,
	}
	if b.healthy {
		status["status"] = "healthy"
		status["last_sync"] = b.lastSync.Format("2006-01-02T15:04:05.000000")
	}
	b.mu.RUnlock()

	if b.platform != "" {
		c.JSON(http.StatusOK, gin.H{b.platform: status})
		return
	}
	c.JSON(http.StatusOK, status)
}

type chatRequest struct {
	Message             string              `json:"message" binding:"required"`
	ConversationHistory []map[string]string `json:"conversation_history"`
}

// Chat maneja POST {prefix}/chat.
func (b *Backend) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		b.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid request"})
		return
	}

	b.mu.RLock()
	healthy := b.healthy
	b.mu.RUnlock()

	b.logger.Info("chat request",
		zap.Int("history", len(req.ConversationHistory)),
		zap.Bool("healthy", healthy),
	)

	c.JSON(http.StatusOK, gin.H{
		"response":     Reply(req.Message, healthy),
		"timestamp":    time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
		"context_used": true,
	})
}
