package models

import "context"

// AuthStyle enumerates how a provider expects its API key.
type AuthStyle string

const (
	// AuthBearer sends "Authorization: Bearer <key>".
	AuthBearer AuthStyle = "bearer"
	// AuthAPIKey sends "X-API-Key: <key>".
	AuthAPIKey AuthStyle = "apikey"
	// AuthCustom places the key through the provider's custom headers,
	// substituting APIKeyPlaceholder.
	AuthCustom AuthStyle = "custom"
)

// RequestFormat enumerates the supported request/response wire families.
type RequestFormat string

const (
	FormatOpenAI RequestFormat = "openai"
	FormatGoogle RequestFormat = "google"
	FormatCustom RequestFormat = "custom"
)

// APIKeyPlaceholder is replaced by the provider API key in custom header values.
const APIKeyPlaceholder = "${API_KEY}"

// CustomRequest is everything a custom request function needs for one call.
type CustomRequest struct {
	Provider  *Provider
	Model     *Model
	Request   *GenerationRequest
	APIKey    string
	MaxTokens int // already clamped to Model.MaxTokens
}

// RequestFunc performs one generation call for a provider with FormatCustom.
type RequestFunc func(ctx context.Context, call CustomRequest) (*GenerationResponse, error)

// Provider describes one upstream vendor's connection details and owned models.
type Provider struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	BaseURL   string            `json:"baseUrl" yaml:"base_url"`
	APIKeyEnv string            `json:"apiKeyEnv" yaml:"api_key_env"`
	Auth      AuthStyle         `json:"auth" yaml:"auth"`
	Format    RequestFormat     `json:"format" yaml:"format"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers"`
	Models    []Model           `json:"models" yaml:"models"`

	// Driver names a built-in request function for FormatCustom providers
	// declared in catalog files or the database, e.g. "genai".
	Driver string `json:"driver,omitempty" yaml:"driver"`

	// Request serves FormatCustom providers. Without it they cannot be called.
	Request RequestFunc `json:"-" yaml:"-"`
}

// Clone returns a copy of p whose slices and maps are not shared with p.
func (p Provider) Clone() Provider {
	out := p
	if p.Headers != nil {
		out.Headers = make(map[string]string, len(p.Headers))
		for k, v := range p.Headers {
			out.Headers[k] = v
		}
	}
	out.Models = make([]Model, len(p.Models))
	copy(out.Models, p.Models)
	return out
}
