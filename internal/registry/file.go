package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"content_gateway/internal/models"
)

// catalogFile is the on-disk shape of an extension catalog:
//
//	providers:
//	  - id: local
//	    base_url: http://localhost:8000/v1
//	    api_key_env: LOCAL_LLM_KEY
//	    format: openai
//	    models:
//	      - id: local-llama
//	        tier: free
//	        max_tokens: 4096
type catalogFile struct {
	Providers []models.Provider `yaml:"providers"`
}

// ParseCatalog decodes a YAML catalog document into provider descriptors.
func ParseCatalog(data []byte) ([]models.Provider, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return file.Providers, nil
}

// LoadFile reads a YAML catalog file from disk.
func LoadFile(path string) ([]models.Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	providers, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return providers, nil
}

// Extend registers providers on top of r, stopping at the first failure.
func (r *Registry) Extend(providers ...models.Provider) (*Registry, error) {
	next := r
	for _, p := range providers {
		var err error
		if next, err = next.With(p); err != nil {
			return nil, err
		}
	}
	return next, nil
}
