package providers

import (
	"net/http"
	"strings"

	"content_gateway/internal/models"
)

// Authenticator applies provider credentials to an outgoing request.
type Authenticator interface {
	ApplyToRequest(req *http.Request)
}

// SimpleAPIKeyAuth places the API key in a single header.
type SimpleAPIKeyAuth struct {
	apiKey     string
	headerName string // e.g., "Authorization"
	prefix     string // e.g., "Bearer "
}

// NewSimpleAPIKeyAuth creates a new simple API key authenticator
func NewSimpleAPIKeyAuth(apiKey, headerName, prefix string) *SimpleAPIKeyAuth {
	if headerName == "" {
		headerName = "Authorization"
	}

	return &SimpleAPIKeyAuth{
		apiKey:     apiKey,
		headerName: headerName,
		prefix:     prefix,
	}
}

// ApplyToRequest adds the API key to the HTTP request
func (a *SimpleAPIKeyAuth) ApplyToRequest(req *http.Request) {
	req.Header.Set(a.headerName, a.prefix+a.apiKey)
}

// HeaderTemplateAuth sets custom headers, substituting the API key for
// models.APIKeyPlaceholder in their values.
type HeaderTemplateAuth struct {
	apiKey  string
	headers map[string]string
}

// NewHeaderTemplateAuth creates an authenticator for custom header layouts.
func NewHeaderTemplateAuth(apiKey string, headers map[string]string) *HeaderTemplateAuth {
	return &HeaderTemplateAuth{apiKey: apiKey, headers: headers}
}

// ApplyToRequest sets every configured header on req.
func (a *HeaderTemplateAuth) ApplyToRequest(req *http.Request) {
	for name, value := range a.headers {
		req.Header.Set(name, strings.ReplaceAll(value, models.APIKeyPlaceholder, a.apiKey))
	}
}

// authenticatorFor picks the authenticator for the provider's auth style.
// Custom headers are layered on top for every style.
func authenticatorFor(p *models.Provider, apiKey string) []Authenticator {
	var auths []Authenticator
	switch p.Auth {
	case models.AuthAPIKey:
		auths = append(auths, NewSimpleAPIKeyAuth(apiKey, "X-API-Key", ""))
	case models.AuthCustom:
		// The key only reaches the wire through the header templates.
	default:
		auths = append(auths, NewSimpleAPIKeyAuth(apiKey, "Authorization", "Bearer "))
	}
	if len(p.Headers) > 0 {
		auths = append(auths, NewHeaderTemplateAuth(apiKey, p.Headers))
	}
	return auths
}
