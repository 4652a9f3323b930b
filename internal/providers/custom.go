package providers

import (
	"context"
	"fmt"

	"content_gateway/internal/models"
)

// DriverGenAI serves a custom-format provider through the Gemini SDK.
const DriverGenAI = "genai"

// BindDriver attaches the request function named by p.Driver. Descriptors
// loaded from catalogs cannot carry Go functions, so this is how they get one.
// Descriptors that already have a request function, or no driver, are left alone.
func BindDriver(p *models.Provider) error {
	if p.Driver == "" || p.Request != nil {
		return nil
	}
	if p.Format != models.FormatCustom {
		return fmt.Errorf("%w: provider %s names driver %q but has format %q",
			models.ErrInvalidDescriptor, p.ID, p.Driver, p.Format)
	}

	switch p.Driver {
	case DriverGenAI:
		p.Request = NewGenAIRequest(p.BaseURL)
		return nil
	default:
		return fmt.Errorf("%w: provider %s names unknown driver %q", models.ErrInvalidDescriptor, p.ID, p.Driver)
	}
}

// CustomProvider delegates to the request function carried by the descriptor.
type CustomProvider struct {
	descriptor *models.Provider
	apiKey     string
}

// NewCustomProvider wraps p.Request, refusing descriptors without one.
func NewCustomProvider(p *models.Provider, apiKey string) (*CustomProvider, error) {
	if p.Request == nil {
		return nil, fmt.Errorf("%w: provider %s declares a custom format but no request function",
			models.ErrUnsupportedFormat, p.ID)
	}
	return &CustomProvider{descriptor: p, apiKey: apiKey}, nil
}

func (p *CustomProvider) ID() string                 { return p.descriptor.ID }
func (p *CustomProvider) Name() string               { return p.descriptor.Name }
func (p *CustomProvider) Type() models.RequestFormat { return models.FormatCustom }

// Generate invokes the custom function and stamps the served model and provider.
func (p *CustomProvider) Generate(ctx context.Context, model *models.Model, req *models.GenerationRequest) (*models.GenerationResponse, error) {
	resp, err := p.descriptor.Request(ctx, models.CustomRequest{
		Provider:  p.descriptor,
		Model:     model,
		Request:   req,
		APIKey:    p.apiKey,
		MaxTokens: model.ClampTokens(req.MaxTokens),
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, models.InvalidResponseError(p.descriptor.ID, "custom request returned no response")
	}

	out := *resp
	out.Model = model.ID
	out.Provider = p.descriptor.ID
	return &out, nil
}
