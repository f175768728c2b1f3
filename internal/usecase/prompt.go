package usecase

import (
	"strings"

	"chat-widget/internal/domain"
)

const defaultSystemPrompt = "You are a friendly assistant embedded in a website chat widget."

func buildPromptMessages(systemPrompt, message string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: buildSystemPrompt(systemPrompt)},
		{Role: domain.RoleUser, Content: message},
	}
}

func buildSystemPrompt(systemPrompt string) string {
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return strings.Join([]string{
		systemPrompt,
		"",
		"Behavior Rules:",
		behaviorRules(),
	}, "\n")
}

func behaviorRules() string {
	return strings.Join([]string{
		"1) Answer only the current message; earlier messages are not available to you.",
		"2) Reply in plain text without markdown, since the widget renders text verbatim.",
		"3) Keep replies short enough to read in a small chat window.",
		"4) If you cannot help, say so in one sentence.",
	}, "\n")
}
