// Package llm is the generation façade: it resolves a model id against the
// current registry snapshot and dispatches to the provider adapter.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"content_gateway/internal/logging"
	"content_gateway/internal/models"
	"content_gateway/internal/providers"
	"content_gateway/internal/registry"
)

// Manager owns the registry snapshot and serves GenerateContent calls.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	registry *registry.Registry

	httpClient *http.Client
	lookupEnv  providers.EnvLookup
	logger     *logging.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithHTTPClient sets the client shared by every provider adapter
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.httpClient = client }
}

// WithEnvLookup replaces os.LookupEnv for API key lookups
func WithEnvLookup(lookup providers.EnvLookup) Option {
	return func(m *Manager) { m.lookupEnv = lookup }
}

// WithLogger sets the manager's logger
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a manager over reg. A nil reg starts empty.
func NewManager(reg *registry.Registry, opts ...Option) *Manager {
	if reg == nil {
		reg = registry.Empty()
	}
	m := &Manager{registry: reg}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewLogger("llm")
	}
	return m
}

// NewDefaultManager creates a manager over the built-in catalog
func NewDefaultManager(opts ...Option) (*Manager, error) {
	reg, err := registry.NewBuiltin()
	if err != nil {
		return nil, fmt.Errorf("failed to build builtin registry: %w", err)
	}
	return NewManager(reg, opts...), nil
}

// Registry returns the current snapshot
func (m *Manager) Registry() *registry.Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry
}

// GenerateContent resolves req.Model, builds the provider client and issues
// exactly one upstream request. Lookup failures return before any I/O.
func (m *Manager) GenerateContent(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", models.ErrInvalidRequest)
	}

	reg := m.Registry()

	model, ok := reg.ModelByID(req.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrModelNotFound, req.Model)
	}

	desc, ok := reg.Provider(model.ProviderID)
	if !ok {
		return nil, fmt.Errorf("%w: %s (model %s)", models.ErrProviderNotFound, model.ProviderID, model.ID)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := providers.Resolve(&desc, providers.Options{
		HTTPClient: m.httpClient,
		LookupEnv:  m.lookupEnv,
	})
	if err != nil {
		return nil, err
	}

	if req.Stream {
		m.logger.Debug("streaming not supported, sending a single request", "model", model.ID)
	}
	m.logger.Debug("dispatching generation",
		"model", model.ID,
		"provider", desc.ID,
		"format", string(desc.Format),
		"max_tokens", model.ClampTokens(req.MaxTokens),
	)

	resp, err := client.Generate(ctx, &model, req)
	if err != nil {
		m.logger.Warn("generation failed", "model", model.ID, "provider", desc.ID, "error", err)
		return nil, err
	}
	return resp, nil
}

// AddProvider registers p and its models. Callers see it immediately.
func (m *Manager) AddProvider(p models.Provider) error {
	if err := providers.BindDriver(&p); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.registry.With(p)
	if err != nil {
		return err
	}
	m.registry = next
	m.logger.Info("provider added", "provider", p.ID, "models", len(p.Models))
	return nil
}

// AddModel registers one more model under an existing provider.
func (m *Manager) AddModel(providerID string, model models.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.registry.WithModel(providerID, model)
	if err != nil {
		return err
	}
	m.registry = next
	m.logger.Info("model added", "provider", providerID, "model", model.ID)
	return nil
}
