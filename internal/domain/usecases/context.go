package usecases

import (
	"strings"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
)

const (
	contextHeader      = "Previous conversation:"
	contextInstruction = "Using the conversation above for context, answer the following question:"
)

// BuildContext renders prior turns, oldest first, under a fixed header.
// Empty history renders as "".
func BuildContext(history []entities.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(contextHeader)
	for _, turn := range history {
		sb.WriteString("\n")
		sb.WriteString(speaker(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
	}
	return sb.String()
}

func speaker(role string) string {
	if strings.EqualFold(role, entities.RoleAssistant) {
		return "Assistant"
	}
	return "User"
}

// BuildPrompt prefixes question with the conversation context, if any.
func BuildPrompt(question string, history []entities.ChatMessage) string {
	ctx := BuildContext(history)
	if ctx == "" {
		return question
	}
	return ctx + "\n\n" + contextInstruction + " " + question
}
