package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_gateway/internal/config"
	"content_gateway/internal/models"
	"content_gateway/internal/registry"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewManagerFromConfig_BuiltinOnly(t *testing.T) {
	m, err := NewManagerFromConfig(context.Background(), &config.Config{
		Provider: config.ProviderConfig{RequestTimeout: 5 * time.Second},
	}, WithLogger(quietLogger()))
	require.NoError(t, err)

	builtin, err := registry.NewBuiltin()
	require.NoError(t, err)
	assert.Equal(t, builtin.Len(), m.Registry().Len())
	assert.Equal(t, 5*time.Second, m.httpClient.Timeout)
}

func TestNewManagerFromConfig_CatalogFile(t *testing.T) {
	path := writeCatalog(t, `
providers:
  - id: local
    name: Local vLLM
    base_url: http://localhost:8000/v1
    api_key_env: LOCAL_LLM_KEY
    format: openai
    models:
      - id: local-llama
        tier: free
        max_tokens: 4096
`)

	m, err := NewManagerFromConfig(context.Background(), &config.Config{CatalogFile: path}, WithLogger(quietLogger()))
	require.NoError(t, err)

	model, ok := m.Registry().ModelByID("local-llama")
	require.True(t, ok)
	assert.Equal(t, "local", model.ProviderID)
	assert.Equal(t, models.TierFree, model.Tier)
}

func TestNewManagerFromConfig_CatalogCannotShadowBuiltin(t *testing.T) {
	path := writeCatalog(t, `
providers:
  - id: google
    base_url: http://localhost:9999
    api_key_env: X
    format: openai
`)

	_, err := NewManagerFromConfig(context.Background(), &config.Config{CatalogFile: path}, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestNewManagerFromConfig_MissingCatalogFile(t *testing.T) {
	_, err := NewManagerFromConfig(context.Background(), &config.Config{CatalogFile: "/nonexistent/catalog.yaml"})
	assert.Error(t, err)
}

func TestNewManagerFromConfig_CatalogDriver(t *testing.T) {
	path := writeCatalog(t, `
providers:
  - id: gemini-sdk
    name: Gemini via SDK
    api_key_env: GOOGLE_API_KEY
    format: custom
    driver: genai
    models:
      - id: sdk-flash
        upstream_id: gemini-2.0-flash
        tier: free
        max_tokens: 8192
`)

	m, err := NewManagerFromConfig(context.Background(), &config.Config{CatalogFile: path}, WithLogger(quietLogger()))
	require.NoError(t, err)

	p, ok := m.Registry().Provider("gemini-sdk")
	require.True(t, ok)
	assert.NotNil(t, p.Request)
}

func TestNewManagerFromConfig_UnknownDriver(t *testing.T) {
	path := writeCatalog(t, `
providers:
  - id: mystery
    format: custom
    driver: carrier-pigeon
`)

	_, err := NewManagerFromConfig(context.Background(), &config.Config{CatalogFile: path}, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, models.ErrInvalidDescriptor)
}
