package registry

import (
	"fmt"
	"strings"

	"content_gateway/internal/models"
)

func validateProvider(p *models.Provider) error {
	if p.ID == "" {
		return fmt.Errorf("%w: provider id is required", models.ErrInvalidDescriptor)
	}

	switch p.Auth {
	case models.AuthBearer, models.AuthAPIKey, models.AuthCustom:
	case "":
		p.Auth = models.AuthBearer
	default:
		return fmt.Errorf("%w: provider %s has unknown auth style %q", models.ErrInvalidDescriptor, p.ID, p.Auth)
	}

	switch p.Format {
	case models.FormatOpenAI, models.FormatGoogle:
		if p.BaseURL == "" {
			return fmt.Errorf("%w: provider %s requires a base URL", models.ErrInvalidDescriptor, p.ID)
		}
		if p.APIKeyEnv == "" {
			return fmt.Errorf("%w: provider %s requires an API key variable", models.ErrInvalidDescriptor, p.ID)
		}
		// Custom auth only reaches the wire through header templates.
		if p.Format == models.FormatOpenAI && p.Auth == models.AuthCustom && !placesAPIKey(p.Headers) {
			return fmt.Errorf("%w: provider %s uses custom auth but no header contains %s",
				models.ErrInvalidDescriptor, p.ID, models.APIKeyPlaceholder)
		}
	case models.FormatCustom:
		// The request function is checked when the provider is called.
	default:
		return fmt.Errorf("%w: provider %s has unknown request format %q", models.ErrInvalidDescriptor, p.ID, p.Format)
	}

	return nil
}

func placesAPIKey(headers map[string]string) bool {
	for _, v := range headers {
		if strings.Contains(v, models.APIKeyPlaceholder) {
			return true
		}
	}
	return false
}

func validateModel(m *models.Model, providerID string) error {
	if m.ID == "" {
		return fmt.Errorf("%w: model id is required (provider %s)", models.ErrInvalidDescriptor, providerID)
	}
	if m.ProviderID != providerID {
		return fmt.Errorf("%w: model %s names provider %q but is registered under %q",
			models.ErrInvalidDescriptor, m.ID, m.ProviderID, providerID)
	}
	if m.UpstreamID == "" {
		m.UpstreamID = m.ID
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	if !m.Tier.Valid() {
		return fmt.Errorf("%w: model %s has unknown tier %q", models.ErrInvalidDescriptor, m.ID, m.Tier)
	}
	if m.MaxTokens <= 0 {
		return fmt.Errorf("%w: model %s requires positive max tokens", models.ErrInvalidDescriptor, m.ID)
	}
	if m.CostPer1K != nil && *m.CostPer1K < 0 {
		return fmt.Errorf("%w: model %s has negative cost", models.ErrInvalidDescriptor, m.ID)
	}
	return nil
}
