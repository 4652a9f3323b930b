package models

import "fmt"

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the provider-agnostic input of a generation call.
type GenerationRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"maxTokens"`
	// Stream is accepted for compatibility; responses are always delivered whole.
	Stream bool `json:"stream"`
}

// Validate checks the request shape before any provider is contacted.
func (r *GenerationRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidRequest)
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: at least one message is required", ErrInvalidRequest)
	}
	if r.Temperature < 0 || r.Temperature > 1 {
		return fmt.Errorf("%w: temperature %v outside [0, 1]", ErrInvalidRequest, r.Temperature)
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidRequest, i, msg.Role)
		}
	}
	return nil
}

// Usage is the token accounting reported by a provider.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// GenerationResponse is the normalized result of a generation call.
type GenerationResponse struct {
	Content  string `json:"content"`
	Usage    *Usage `json:"usage,omitempty"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
}
