package agent

import (
	"strings"

	"github.com/voxgate-io/voxgate/pkg/core/session"
)

const (
	promptPreamble = "You are a helpful AI assistant. Here is our conversation so far:\n\n"

	// Appended whenever the window holds more than one message, so the model
	// treats the turn as a continuation rather than a fresh conversation.
	promptContinuation = "Please continue our conversation naturally, remembering what we discussed earlier.\n"
)

// BuildPrompt assembles the generation prompt from a history window. Each
// message is labeled by role; the stored history already includes the
// current user message when this is called from a turn.
func BuildPrompt(history []session.Message) string {
	var b strings.Builder
	b.WriteString(promptPreamble)

	for _, msg := range history {
		label := "User"
		if msg.Role == session.RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}

	if len(history) > 1 {
		b.WriteString(promptContinuation)
	}
	return b.String()
}
