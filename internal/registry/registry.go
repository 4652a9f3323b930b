// Package registry holds the catalog of providers and the models they own.
//
// A Registry is immutable. Extending it with With or WithModel returns a new
// Registry and leaves the receiver untouched, so a snapshot handed to one
// goroutine never changes underneath it.
package registry

import (
	"fmt"

	"content_gateway/internal/models"
)

// Registry is an append-only mapping from ids to provider and model descriptors.
type Registry struct {
	providers  []*models.Provider
	byProvider map[string]*models.Provider
	catalog    []*models.Model
	byModel    map[string]*models.Model
}

// Empty returns a registry with no providers.
func Empty() *Registry {
	return &Registry{
		byProvider: map[string]*models.Provider{},
		byModel:    map[string]*models.Model{},
	}
}

// New builds a registry from providers, registered in order.
func New(providers ...models.Provider) (*Registry, error) {
	r := Empty()
	for _, p := range providers {
		next, err := r.With(p)
		if err != nil {
			return nil, err
		}
		r = next
	}
	return r, nil
}

// With returns a new registry that additionally holds p and all of its models.
func (r *Registry) With(p models.Provider) (*Registry, error) {
	if err := validateProvider(&p); err != nil {
		return nil, err
	}
	if _, exists := r.byProvider[p.ID]; exists {
		return nil, fmt.Errorf("provider %s: %w", p.ID, models.ErrDuplicate)
	}

	stored := p.Clone()
	seen := make(map[string]bool, len(stored.Models))
	for i := range stored.Models {
		m := &stored.Models[i]
		if m.ProviderID == "" {
			m.ProviderID = stored.ID
		}
		if err := validateModel(m, stored.ID); err != nil {
			return nil, err
		}
		if _, exists := r.byModel[m.ID]; exists || seen[m.ID] {
			return nil, fmt.Errorf("model %s: %w", m.ID, models.ErrDuplicate)
		}
		seen[m.ID] = true
	}

	next := r.clone()
	next.providers = append(next.providers, &stored)
	next.byProvider[stored.ID] = &stored
	for i := range stored.Models {
		m := &stored.Models[i]
		next.catalog = append(next.catalog, m)
		next.byModel[m.ID] = m
	}
	return next, nil
}

// WithModel returns a new registry with m appended to an already registered provider.
func (r *Registry) WithModel(providerID string, m models.Model) (*Registry, error) {
	current, ok := r.byProvider[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProviderNotFound, providerID)
	}
	if m.ProviderID == "" {
		m.ProviderID = providerID
	}
	if err := validateModel(&m, providerID); err != nil {
		return nil, err
	}
	if _, exists := r.byModel[m.ID]; exists {
		return nil, fmt.Errorf("model %s: %w", m.ID, models.ErrDuplicate)
	}

	// The old provider value stays as-is for snapshots that still reference it.
	updated := current.Clone()
	updated.Models = append(updated.Models, m)

	next := r.clone()
	for i, p := range next.providers {
		if p.ID == providerID {
			next.providers[i] = &updated
		}
	}
	next.byProvider[providerID] = &updated

	// Re-point every model of this provider at the new backing array.
	for i := range updated.Models {
		model := &updated.Models[i]
		next.byModel[model.ID] = model
	}
	for i, model := range next.catalog {
		if model.ProviderID == providerID {
			next.catalog[i] = next.byModel[model.ID]
		}
	}
	added := &updated.Models[len(updated.Models)-1]
	next.catalog = append(next.catalog, added)
	return next, nil
}

// ModelByID returns the model registered under id.
func (r *Registry) ModelByID(id string) (models.Model, bool) {
	m, ok := r.byModel[id]
	if !ok {
		return models.Model{}, false
	}
	return *m, true
}

// ModelsByTier returns the models a caller on tier may select.
// Pro callers see the whole catalog; free callers see only free models.
func (r *Registry) ModelsByTier(tier models.Tier) []models.Model {
	out := make([]models.Model, 0, len(r.catalog))
	for _, m := range r.catalog {
		if tier.Allows(m.Tier) {
			out = append(out, *m)
		}
	}
	return out
}

// ModelsByProvider returns the models owned by providerID.
func (r *Registry) ModelsByProvider(providerID string) []models.Model {
	out := make([]models.Model, 0)
	for _, m := range r.catalog {
		if m.ProviderID == providerID {
			out = append(out, *m)
		}
	}
	return out
}

// Models returns the whole catalog in registration order.
func (r *Registry) Models() []models.Model {
	out := make([]models.Model, 0, len(r.catalog))
	for _, m := range r.catalog {
		out = append(out, *m)
	}
	return out
}

// Provider returns the provider registered under id.
func (r *Registry) Provider(id string) (models.Provider, bool) {
	p, ok := r.byProvider[id]
	if !ok {
		return models.Provider{}, false
	}
	return p.Clone(), true
}

// Providers returns all providers in registration order.
func (r *Registry) Providers() []models.Provider {
	out := make([]models.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Clone())
	}
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.catalog)
}

func (r *Registry) clone() *Registry {
	next := &Registry{
		providers:  make([]*models.Provider, len(r.providers), len(r.providers)+1),
		byProvider: make(map[string]*models.Provider, len(r.byProvider)+1),
		catalog:    make([]*models.Model, len(r.catalog), len(r.catalog)+1),
		byModel:    make(map[string]*models.Model, len(r.byModel)+1),
	}
	copy(next.providers, r.providers)
	copy(next.catalog, r.catalog)
	for k, v := range r.byProvider {
		next.byProvider[k] = v
	}
	for k, v := range r.byModel {
		next.byModel[k] = v
	}
	return next
}
