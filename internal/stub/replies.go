package stub

import "strings"

const degradedReply = "⚠️ I notice there are some connectivity issues with the MCP platforms. " +
	"Let me help you with what data I can access, but some information might be limited."

type replyRule struct {
	keywords []string
	reply    string
}

// El orden importa: gana la primera regla que matchea.
var replyRules = []replyRule{
	{
		keywords: []string{"hello", "hi", "hey", "good morning", "good afternoon"},
		reply: "👋 Hello! I'm your HubSpot MCP Agent. I can help you analyze leads, review call performance, " +
			"examine your sales pipeline, or answer any specific questions about your HubSpot data. What would you like to explore?",
	},
	{
		keywords: []string{"lead", "contact", "prospect", "customer"},
		reply:    "📊 **Lead Analysis:**\n\n• Recent leads are concentrated in the Qualified stage.\n• Follow up with the newest contacts first.",
	},
	{
		keywords: []string{"call", "phone", "conversation"},
		reply:    "📞 **Call Performance:**\n\n• Most recent calls were completed.\n• Consider scheduling follow-ups for calls without an outcome.",
	},
	{
		keywords: []string{"pipeline", "deal", "stage"},
		reply:    "💼 **Sales Pipeline:**\n\n• Deals are spread across discovery, proposal and negotiation.\n• Focus on deals stuck in negotiation.",
	},
	{
		keywords: []string{"revenue", "budget", "money", "sales"},
		reply:    "💰 **Revenue Overview:**\n\n• Closed-won revenue is trending up.\n• Pipeline value covers next month's target.",
	},
}

const defaultReply = "🤖 I can help you with leads, calls, deals and revenue in your HubSpot account. " +
	"Try asking about recent leads, call performance or your sales pipeline!"

// Reply elige una respuesta enlatada por palabras clave.
func Reply(message string, healthy bool) string {
	if !healthy {
		return degradedReply
	}
	lower := strings.ToLower(message)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, rule := range replyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					return rule.reply
				}
				continue
			}
			for _, w := range words {
				if w == kw || strings.TrimSuffix(w, "s") == kw {
					return rule.reply
				}
			}
		}
	}
	return defaultReply
}
