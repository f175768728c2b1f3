package domain

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic message shape sent to the LLM by the
// reply service.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
