package session

import (
	"go.uber.org/zap"

	"gtm-console/internal/domain"
)

const (
	welcomeMarker = "welcome"

	// WelcomeNotice se agrega una sola vez, al llegar por primera vez a healthy.
	WelcomeNotice = "🎯 HubSpot MCP Agent is ready! I can help you analyze your HubSpot data using natural language. " +
		"Just ask me anything about your leads, calls, deals, or sales performance!\n\n" +
		"Try asking: \"Hello\" or \"Show me my recent leads\""
)

// WelcomeGuard reacciona al flanco hacia healthy agregando el aviso de bienvenida.
type WelcomeGuard struct {
	store  *ConversationStore
	live   *liveness
	logger *zap.Logger
}

func newWelcomeGuard(store *ConversationStore, live *liveness, logger *zap.Logger) *WelcomeGuard {
	return &WelcomeGuard{store: store, live: live, logger: logger}
}

// Observe se conecta como StatusListener del HealthMonitor.
func (g *WelcomeGuard) Observe(prev, curr domain.ConnectionStatus) {
	if prev.State == domain.HealthHealthy || curr.State != domain.HealthHealthy {
		return
	}

	var (
		msg   domain.Message
		added bool
	)
	g.live.run(g.live.token(), func() {
		msg, added = g.store.AppendOnce(welcomeMarker, domain.RoleAssistant, WelcomeNotice)
	})
	if added {
		g.logger.Info("welcome notice appended", zap.Int64("message_id", msg.ID))
	}
}

// Shown reporta si el aviso ya forma parte del transcript.
func (g *WelcomeGuard) Shown() bool {
	return g.store.HasMarker(welcomeMarker)
}
