package perception

import (
	"fmt"
	"strings"
)

// SerializeConversation flattens history into a single prompt for agents
// that take one text input.
func SerializeConversation(history []Message) string {
	var b strings.Builder
	b.WriteString("<conversation>\n")
	for _, m := range history {
		label := "User"
		if m.Role == RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "\n### %s\n%s\n", label, strings.TrimRight(m.Content, "\n"))
	}
	b.WriteString("</conversation>\n\nReply to the last User message as the Assistant. Reply with the message text only.")
	return b.String()
}

// CombinePrompt embeds the system prompt ahead of the conversation for
// agents without a system prompt flag.
func CombinePrompt(systemPrompt, conversation string) string {
	if strings.TrimSpace(systemPrompt) == "" {
		return conversation
	}
	return fmt.Sprintf("<system_instructions>\n%s\n</system_instructions>\n\n%s", systemPrompt, conversation)
}

// normalizeForAPI makes history acceptable to chat APIs that require the
// first turn to come from the user.
func normalizeForAPI(history []Message) []Message {
	out := make([]Message, 0, len(history)+1)
	if len(history) == 0 || history[0].Role != RoleUser {
		out = append(out, Message{Role: RoleUser, Content: "(continuing our conversation)"})
	}
	return append(out, history...)
}
