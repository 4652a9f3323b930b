package registry

import (
	"content_gateway/internal/models"
	"content_gateway/internal/utils"
)

const (
	ProviderGoogle     = "google"
	ProviderOpenRouter = "openrouter"
	ProviderTogether   = "together"
	ProviderBaseten    = "baseten"
)

// Builtin returns the providers shipped with the gateway. They are registered
// before anything loaded at runtime, so their ids cannot be shadowed.
func Builtin() []models.Provider {
	return []models.Provider{
		{
			ID:        ProviderGoogle,
			Name:      "Google Gemini",
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
			APIKeyEnv: "GOOGLE_API_KEY",
			Auth:      models.AuthAPIKey,
			Format:    models.FormatGoogle,
			Models: []models.Model{
				{
					ID:           "gemini-2.0-flash",
					Name:         "Gemini 2.0 Flash",
					UpstreamID:   "gemini-2.0-flash",
					Tier:         models.TierFree,
					Capabilities: []string{"text", "long-context", "fast"},
					MaxTokens:    8192,
					Streaming:    true,
				},
				{
					ID:           "gemini-1.5-flash",
					Name:         "Gemini 1.5 Flash",
					UpstreamID:   "gemini-1.5-flash",
					Tier:         models.TierFree,
					Capabilities: []string{"text", "fast"},
					MaxTokens:    8192,
				},
				{
					ID:           "gemini-1.5-pro",
					Name:         "Gemini 1.5 Pro",
					UpstreamID:   "gemini-1.5-pro",
					Tier:         models.TierPro,
					Capabilities: []string{"text", "long-context", "reasoning"},
					MaxTokens:    8192,
					CostPer1K:    utils.FloatPtr(0.0035),
				},
			},
		},
		{
			ID:        ProviderOpenRouter,
			Name:      "OpenRouter",
			BaseURL:   "https://openrouter.ai/api/v1",
			APIKeyEnv: "OPENROUTER_API_KEY",
			Auth:      models.AuthBearer,
			Format:    models.FormatOpenAI,
			Headers: map[string]string{
				"HTTP-Referer": "https://contentgateway.app",
				"X-Title":      "Content Gateway",
			},
			Models: []models.Model{
				{
					ID:           "llama-3.1-8b-free",
					Name:         "Llama 3.1 8B (free)",
					UpstreamID:   "meta-llama/llama-3.1-8b-instruct:free",
					Tier:         models.TierFree,
					Capabilities: []string{"text"},
					MaxTokens:    4096,
				},
				{
					ID:           "gpt-4o-mini",
					Name:         "GPT-4o mini",
					UpstreamID:   "openai/gpt-4o-mini",
					Tier:         models.TierPro,
					Capabilities: []string{"text", "fast"},
					MaxTokens:    16384,
					CostPer1K:    utils.FloatPtr(0.0006),
					Streaming:    true,
				},
				{
					ID:           "claude-3.5-sonnet",
					Name:         "Claude 3.5 Sonnet",
					UpstreamID:   "anthropic/claude-3.5-sonnet",
					Tier:         models.TierPro,
					Capabilities: []string{"text", "reasoning", "long-form"},
					MaxTokens:    8192,
					CostPer1K:    utils.FloatPtr(0.015),
					Streaming:    true,
				},
			},
		},
		{
			ID:        ProviderTogether,
			Name:      "Together.ai",
			BaseURL:   "https://api.together.xyz/v1",
			APIKeyEnv: "TOGETHER_API_KEY",
			Auth:      models.AuthBearer,
			Format:    models.FormatOpenAI,
			Models: []models.Model{
				{
					ID:           "llama-3.3-70b-turbo",
					Name:         "Llama 3.3 70B Instruct Turbo",
					UpstreamID:   "meta-llama/Llama-3.3-70B-Instruct-Turbo",
					Tier:         models.TierPro,
					Capabilities: []string{"text", "long-form"},
					MaxTokens:    4096,
					CostPer1K:    utils.FloatPtr(0.00088),
				},
				{
					ID:           "mixtral-8x7b",
					Name:         "Mixtral 8x7B Instruct",
					UpstreamID:   "mistralai/Mixtral-8x7B-Instruct-v0.1",
					Tier:         models.TierFree,
					Capabilities: []string{"text"},
					MaxTokens:    4096,
				},
			},
		},
		{
			ID:        ProviderBaseten,
			Name:      "Baseten",
			BaseURL:   "https://inference.baseten.co/v1",
			APIKeyEnv: "BASETEN_API_KEY",
			Auth:      models.AuthCustom,
			Format:    models.FormatOpenAI,
			Headers: map[string]string{
				"Authorization": "Api-Key " + models.APIKeyPlaceholder,
			},
			Models: []models.Model{
				{
					ID:           "deepseek-v3",
					Name:         "DeepSeek V3",
					UpstreamID:   "deepseek-ai/DeepSeek-V3-0324",
					Tier:         models.TierPro,
					Capabilities: []string{"text", "reasoning"},
					MaxTokens:    8192,
					CostPer1K:    utils.FloatPtr(0.0012),
				},
			},
		},
	}
}

// NewBuiltin returns a registry holding only the built-in providers.
func NewBuiltin() (*Registry, error) {
	return New(Builtin()...)
}
