package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"gtm-console/internal/domain"
)

// TimestampLayout es la forma canonica de los timestamps enviados en el historial.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrNotConfigured    = errors.New("backend client not configured")
	ErrUnexpectedStatus = errors.New("backend unexpected status")
	ErrEmptyResponse    = errors.New("backend empty response")
	ErrPlatformMissing  = errors.New("health platform missing")
)

// Client define las dos llamadas que la consola hace al backend.
type Client interface {
	Health(ctx context.Context) (domain.ConnectionStatus, error)
	Chat(ctx context.Context, message string, history []domain.Message) (string, error)
}

// HTTPClient implementa Client contra el servicio de integracion via JSON/HTTP.
type HTTPClient struct {
	baseURL  string
	platform string
	health   *http.Client
	chat     *http.Client
	logger   *zap.Logger
}

// NewHTTPClient construye un cliente con timeouts independientes para health y chat.
// Si platform no esta vacio, el estado se lee de esa clave de la respuesta de /health.
func NewHTTPClient(baseURL, platform string, healthTimeout, chatTimeout time.Duration, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if healthTimeout <= 0 {
		healthTimeout = 10 * time.Second
	}
	if chatTimeout <= 0 {
		chatTimeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		platform: strings.TrimSpace(platform),
		health:   &http.Client{Timeout: healthTimeout},
		chat:     &http.Client{Timeout: chatTimeout},
		logger:   logger,
	}
}

func (c *HTTPClient) Health(ctx context.Context) (domain.ConnectionStatus, error) {
	if c == nil || c.health == nil {
		return domain.ConnectionStatus{}, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return domain.ConnectionStatus{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(c.health, req)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}

	raw := json.RawMessage(respBody)
	if c.platform != "" {
		var byPlatform map[string]json.RawMessage
		if err := json.Unmarshal(respBody, &byPlatform); err != nil {
			return domain.ConnectionStatus{}, fmt.Errorf("unmarshal health: %w", err)
		}
		entry, ok := byPlatform[c.platform]
		if !ok || string(entry) == "null" {
			return domain.ConnectionStatus{}, fmt.Errorf("%w: %s", ErrPlatformMissing, c.platform)
		}
		raw = entry
	}

	var hp healthPayload
	if err := json.Unmarshal(raw, &hp); err != nil {
		return domain.ConnectionStatus{}, fmt.Errorf("unmarshal health: %w", err)
	}
	return hp.toStatus(), nil
}

func (c *HTTPClient) Chat(ctx context.Context, message string, history []domain.Message) (string, error) {
	if c == nil || c.chat == nil {
		return "", ErrNotConfigured
	}

	reqBody := chatRequest{
		Message:             message,
		ConversationHistory: EncodeHistory(history),
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(c.chat, req)
	if err != nil {
		return "", err
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if strings.TrimSpace(cr.Response) == "" {
		return "", ErrEmptyResponse
	}
	return cr.Response, nil
}

func (c *HTTPClient) do(hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend error status",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(respBody), 256)),
		)
		return nil, fmt.Errorf("%w: status=%d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return respBody, nil
}

// EncodeHistory traduce el transcript al formato conversation_history del backend.
func EncodeHistory(history []domain.Message) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(history))
	for _, m := range history {
		out = append(out, HistoryEntry{
			Type:      wireType(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(TimestampLayout),
		})
	}
	return out
}

func wireType(role domain.Role) string {
	switch role {
	case domain.RoleAssistant:
		return "bot"
	case domain.RoleSystem:
		return "system"
	default:
		return "user"
	}
}

// HistoryEntry es un elemento de conversation_history.
type HistoryEntry struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type chatRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []HistoryEntry `json:"conversation_history"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type healthPayload struct {
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	LastSync      *string `json:"last_sync"`
	Authenticated bool    `json:"authenticated"`
}

func (p healthPayload) toStatus() domain.ConnectionStatus {
	st := domain.ConnectionStatus{
		State:         domain.HealthUnhealthy,
		Message:       p.Message,
		Authenticated: p.Authenticated,
	}
	if strings.EqualFold(strings.TrimSpace(p.Status), string(domain.HealthHealthy)) {
		st.State = domain.HealthHealthy
	}
	if p.LastSync != nil {
		if ts, ok := parseSyncTime(*p.LastSync); ok {
			st.LastSyncTime = &ts
		}
	}
	return st
}

// El backend usa isoformat(), que puede venir sin zona horaria.
var syncLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseSyncTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range syncLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
