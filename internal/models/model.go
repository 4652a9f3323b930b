package models

// Tier is the access class that gates which models a caller may select.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// Allows reports whether a caller on tier t may use a model on tier modelTier.
// Pro callers see every model; free callers only see free models.
func (t Tier) Allows(modelTier Tier) bool {
	switch t {
	case TierPro:
		return true
	case TierFree:
		return modelTier == TierFree
	default:
		return false
	}
}

//
// Model (catalog entry)
//

type Model struct {
	// 1. Identity
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	ProviderID string `json:"provider" yaml:"provider"`
	UpstreamID string `json:"upstreamId" yaml:"upstream_id"`

	// 2. Access & capabilities
	Tier         Tier     `json:"tier" yaml:"tier"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities"`
	// Streaming is declared by some catalog entries but no adapter delivers
	// partial results.
	Streaming bool `json:"streaming" yaml:"streaming"`

	// 3. Limits & pricing
	MaxTokens int      `json:"maxTokens" yaml:"max_tokens"`
	CostPer1K *float64 `json:"costPer1k,omitempty" yaml:"cost_per_1k"`
}

// ClampTokens returns the output token budget sent upstream for a request
// asking for requested tokens. Non-positive requests get the model maximum.
func (m *Model) ClampTokens(requested int) int {
	if requested <= 0 || requested > m.MaxTokens {
		return m.MaxTokens
	}
	return requested
}

// CalculateCost returns the USD cost of usage at the model's per-1K-token price.
// Models without a declared price cost nothing.
func (m *Model) CalculateCost(usage *Usage) float64 {
	if m.CostPer1K == nil || usage == nil {
		return 0.0
	}

	tokens := usage.TotalTokens
	if tokens == 0 {
		tokens = usage.PromptTokens + usage.CompletionTokens
	}

	return (float64(tokens) / 1000.0) * *m.CostPer1K
}
