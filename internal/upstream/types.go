package upstream

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Mode string

const (
	ModePolish Mode = "polish"
	ModeToEn   Mode = "to_en"
)

var prompts = map[Mode]string{
	ModePolish: "Improve grammar and tone. Keep meaning.",
	ModeToEn:   "Translate to natural English. Fix grammar.",
}

// Valid reports whether m has a prompt.
func (m Mode) Valid() bool {
	_, ok := prompts[m]
	return ok
}

// SystemPrompt builds the system message sent for mode m.
func SystemPrompt(m Mode) string {
	return "You are a writing assistant. " + prompts[m] + " Return only the result, no explanations."
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Text string
	Mode Mode
}

// Client performs one completion call per Transform. Failures are always
// *apierr.Error values from the proxy taxonomy.
type Client interface {
	Transform(ctx context.Context, req Request) (string, error)
}
