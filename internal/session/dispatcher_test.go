package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"gtm-console/internal/backend"
	"gtm-console/internal/domain"
)

// httpChatClient reporta healthy desde el mock y usa HTTP real para /chat.
type httpChatClient struct {
	*backend.MockClient
	chat *backend.HTTPClient
}

func (c httpChatClient) Chat(ctx context.Context, message string, history []domain.Message) (string, error) {
	return c.chat.Chat(ctx, message, history)
}

func TestSubmit_TransportFailuresAppendDiagnostic(t *testing.T) {
	malformed := func(t *testing.T) string {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response": 123}`))
		}))
		t.Cleanup(srv.Close)
		return srv.URL
	}
	refused := func(t *testing.T) string {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		return srv.URL
	}

	for name, baseURL := range map[string]func(*testing.T) string{
		"malformed payload":  malformed,
		"connection refused": refused,
	} {
		baseURL := baseURL
		t.Run(name, func(t *testing.T) {
			client := httpChatClient{
				MockClient: &backend.MockClient{Status: healthy()},
				chat:       backend.NewHTTPClient(baseURL(t), "", time.Second, time.Second, zap.NewNop()),
			}
			s := newTestSession(t, client)
			s.Poll(context.Background())

			if !s.Submit("hello") {
				t.Fatalf("expected submit accepted")
			}
			s.Wait()

			user, reply := lastTwo(t, s.Messages())
			if user.Role != domain.RoleUser || user.Content != "hello" {
				t.Fatalf("unexpected user message %+v", user)
			}
			if reply.Role != domain.RoleAssistant || reply.Content != DiagnosticMessage {
				t.Fatalf("expected diagnostic reply, got %+v", reply)
			}
			if s.State() != domain.DispatcherIdle {
				t.Fatalf("expected idle after failure, got %s", s.State())
			}
		})
	}
}

func TestSubmit_StoresRawTextSendsTrimmed(t *testing.T) {
	client := &backend.MockClient{Status: healthy(), Response: "X"}
	s := newTestSession(t, client)
	s.Poll(context.Background())

	if !s.Submit("  hello \n") {
		t.Fatalf("expected submit accepted")
	}
	s.Wait()

	user, _ := lastTwo(t, s.Messages())
	if user.Content != "  hello \n" {
		t.Fatalf("expected raw text stored, got %q", user.Content)
	}
	if _, msg, _ := client.Calls(); msg != "hello" {
		t.Fatalf("expected trimmed text sent, got %q", msg)
	}
}

func TestStop_PollDoesNotChangeStatus(t *testing.T) {
	client := &backend.MockClient{Status: unhealthy()}
	s := newTestSession(t, client)
	s.Poll(context.Background())
	s.Stop()

	client.SetStatus(healthy(), nil)
	if st := s.Poll(context.Background()); st.State != domain.HealthUnhealthy {
		t.Fatalf("expected frozen status from poll, got %s", st.State)
	}
	if s.Status().State != domain.HealthUnhealthy {
		t.Fatalf("expected status frozen after stop, got %s", s.Status().State)
	}
	if s.WelcomeShown() {
		t.Fatalf("expected no welcome after stop")
	}
}
