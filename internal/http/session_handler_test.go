package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gtm-console/internal/backend"
	"gtm-console/internal/domain"
	"gtm-console/internal/session"
)

func newTestRouter(t *testing.T, client *backend.MockClient) (*gin.Engine, *session.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := session.New(client, session.Options{RequireHealthy: true, Logger: zap.NewNop()})
	t.Cleanup(s.Stop)
	return NewRouter(zap.NewNop(), NewSessionHandler(zap.NewNop(), s)), s
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetSession(t *testing.T) {
	r, s := newTestRouter(t, &backend.MockClient{Status: domain.ConnectionStatus{State: domain.HealthHealthy}})
	s.Poll(context.Background())

	rec := doJSON(r, http.MethodGet, "/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		ID     string                  `json:"id"`
		Status domain.ConnectionStatus `json:"status"`
		State  domain.DispatcherState  `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != s.ID() || resp.Status.State != domain.HealthHealthy || resp.State != domain.DispatcherIdle {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPostMessage_AcceptedAndTranscript(t *testing.T) {
	client := &backend.MockClient{Status: domain.ConnectionStatus{State: domain.HealthHealthy}, Response: "X"}
	r, s := newTestRouter(t, client)
	s.Poll(context.Background())

	rec := doJSON(r, http.MethodPost, "/session/messages", map[string]string{"content": "hello"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	s.Wait()

	rec = doJSON(r, http.MethodGet, "/session/messages", nil)
	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	n := len(resp.Messages)
	if n < 2 || resp.Messages[n-2].Content != "hello" || resp.Messages[n-1].Content != "X" {
		t.Fatalf("unexpected transcript %+v", resp.Messages)
	}
}

func TestPostMessage_Rejections(t *testing.T) {
	client := &backend.MockClient{Status: domain.ConnectionStatus{State: domain.HealthUnhealthy}}
	r, s := newTestRouter(t, client)
	s.Poll(context.Background())

	if rec := doJSON(r, http.MethodPost, "/session/messages", map[string]string{"content": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodPost, "/session/messages", map[string]string{"content": "   "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for whitespace, got %d", rec.Code)
	}
	if rec := doJSON(r, http.MethodPost, "/session/messages", map[string]string{"content": "hello"}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while unhealthy, got %d", rec.Code)
	}
	if len(s.Messages()) != 1 {
		t.Fatalf("expected transcript untouched, got %d", len(s.Messages()))
	}
}

func TestInputAndQuickActions(t *testing.T) {
	client := &backend.MockClient{Status: domain.ConnectionStatus{State: domain.HealthHealthy}}
	r, s := newTestRouter(t, client)

	if rec := doJSON(r, http.MethodPost, "/session/quick-actions/0", nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 before healthy, got %d", rec.Code)
	}
	s.Poll(context.Background())

	rec := doJSON(r, http.MethodGet, "/session/quick-actions", nil)
	var list struct {
		QuickActions []string `json:"quick_actions"`
		Enabled      bool     `json:"enabled"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !list.Enabled || len(list.QuickActions) == 0 {
		t.Fatalf("unexpected quick actions %+v", list)
	}

	if rec := doJSON(r, http.MethodPost, "/session/quick-actions/1", nil); rec.Code != http.StatusOK || s.Input() != list.QuickActions[1] {
		t.Fatalf("expected input loaded, got %d %q", rec.Code, s.Input())
	}
	if rec := doJSON(r, http.MethodPost, "/session/quick-actions/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad index, got %d", rec.Code)
	}

	if rec := doJSON(r, http.MethodPut, "/session/input", map[string]string{"content": "draft"}); rec.Code != http.StatusOK || s.Input() != "draft" {
		t.Fatalf("expected input updated, got %d %q", rec.Code, s.Input())
	}
}
