package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"content_gateway/internal/models"
)

// Provider is implemented by each request-format family (OpenAI-compatible,
// Google, custom). One Generate call issues exactly one upstream request.
type Provider interface {
	// ID returns the provider descriptor id
	ID() string

	// Name returns the display name of this provider
	Name() string

	// Type returns the request format this provider speaks
	Type() models.RequestFormat

	// Generate sends one generation request for model and normalizes the reply
	Generate(ctx context.Context, model *models.Model, req *models.GenerationRequest) (*models.GenerationResponse, error)
}

// EnvLookup reads an environment variable.
type EnvLookup func(key string) (string, bool)

// Options holds what Resolve needs besides the descriptor.
type Options struct {
	// HTTPClient is shared by every provider; nil means http.DefaultClient.
	HTTPClient *http.Client

	// LookupEnv reads API keys; nil means os.LookupEnv.
	LookupEnv EnvLookup
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return http.DefaultClient
}

func (o Options) lookupEnv() EnvLookup {
	if o.LookupEnv != nil {
		return o.LookupEnv
	}
	return os.LookupEnv
}

// Resolve constructs the client for p. The API key is read here, so a missing
// key fails before any request is built.
func Resolve(p *models.Provider, opts Options) (Provider, error) {
	if p.Format == models.FormatCustom && p.Request == nil {
		return nil, fmt.Errorf("%w: provider %s declares a custom format but no request function",
			models.ErrUnsupportedFormat, p.ID)
	}

	apiKey, err := lookupAPIKey(p, opts.lookupEnv())
	if err != nil {
		return nil, err
	}

	switch p.Format {
	case models.FormatOpenAI:
		return NewOpenAIProvider(p, apiKey, opts.httpClient()), nil
	case models.FormatGoogle:
		return NewGoogleProvider(p, apiKey, opts.httpClient()), nil
	case models.FormatCustom:
		return NewCustomProvider(p, apiKey)
	default:
		return nil, fmt.Errorf("%w: provider %s has format %q", models.ErrUnsupportedFormat, p.ID, p.Format)
	}
}

func lookupAPIKey(p *models.Provider, lookup EnvLookup) (string, error) {
	if p.APIKeyEnv == "" {
		if p.Format == models.FormatCustom {
			return "", nil
		}
		return "", fmt.Errorf("%w: provider %s declares no API key variable", models.ErrMissingAPIKey, p.ID)
	}

	key, ok := lookup(p.APIKeyEnv)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %s is not set (provider %s)", models.ErrMissingAPIKey, p.APIKeyEnv, p.ID)
	}
	return key, nil
}
