package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"content_gateway/internal/models"
)

// CatalogSchema creates the tables the catalog repository reads from.
const CatalogSchema = `
CREATE TABLE IF NOT EXISTS catalog_providers (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	base_url      TEXT NOT NULL DEFAULT '',
	api_key_env   TEXT NOT NULL DEFAULT '',
	auth_style    TEXT NOT NULL DEFAULT 'bearer',
	request_format TEXT NOT NULL DEFAULT 'openai',
	driver        TEXT NOT NULL DEFAULT '',
	headers       JSONB,
	enabled       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS catalog_models (
	id           TEXT PRIMARY KEY,
	provider_id  TEXT NOT NULL REFERENCES catalog_providers(id),
	name         TEXT NOT NULL DEFAULT '',
	upstream_id  TEXT NOT NULL DEFAULT '',
	tier         TEXT NOT NULL DEFAULT 'pro',
	capabilities TEXT[] NOT NULL DEFAULT '{}',
	streaming    BOOLEAN NOT NULL DEFAULT FALSE,
	max_tokens   INTEGER NOT NULL,
	cost_per_1k  DOUBLE PRECISION,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE catalog_providers ADD COLUMN IF NOT EXISTS driver TEXT NOT NULL DEFAULT '';
`

type providerRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	BaseURL   string    `db:"base_url"`
	APIKeyEnv string    `db:"api_key_env"`
	Auth      string    `db:"auth_style"`
	Format    string    `db:"request_format"`
	Driver    string    `db:"driver"`
	Headers   StringMap `db:"headers"`
}

type modelRow struct {
	ID           string          `db:"id"`
	ProviderID   string          `db:"provider_id"`
	Name         string          `db:"name"`
	UpstreamID   string          `db:"upstream_id"`
	Tier         string          `db:"tier"`
	Capabilities pq.StringArray  `db:"capabilities"`
	Streaming    bool            `db:"streaming"`
	MaxTokens    int             `db:"max_tokens"`
	CostPer1K    sql.NullFloat64 `db:"cost_per_1k"`
}

func (r providerRow) toModel() models.Provider {
	return models.Provider{
		ID:        r.ID,
		Name:      r.Name,
		BaseURL:   r.BaseURL,
		APIKeyEnv: r.APIKeyEnv,
		Auth:      models.AuthStyle(r.Auth),
		Format:    models.RequestFormat(r.Format),
		Driver:    r.Driver,
		Headers:   map[string]string(r.Headers),
	}
}

func (r modelRow) toModel() models.Model {
	m := models.Model{
		ID:           r.ID,
		Name:         r.Name,
		ProviderID:   r.ProviderID,
		UpstreamID:   r.UpstreamID,
		Tier:         models.Tier(r.Tier),
		Capabilities: []string(r.Capabilities),
		Streaming:    r.Streaming,
		MaxTokens:    r.MaxTokens,
	}
	if r.CostPer1K.Valid {
		cost := r.CostPer1K.Float64
		m.CostPer1K = &cost
	}
	return m
}

// CatalogRepository reads extra provider and model descriptors from Postgres.
// It never writes: runtime additions are not persisted.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// EnsureSchema creates the catalog tables when they are missing
func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.conn.ExecContext(ctx, CatalogSchema); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return nil
}

// LoadProviders returns enabled providers with their models attached, in
// creation order.
func (r *CatalogRepository) LoadProviders(ctx context.Context) ([]models.Provider, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var providerRows []providerRow
	err := r.db.conn.SelectContext(ctx, &providerRows, `
		SELECT id, name, base_url, api_key_env, auth_style, request_format, driver, headers
		FROM catalog_providers
		WHERE enabled
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog providers: %w", err)
	}

	var modelRows []modelRow
	err = r.db.conn.SelectContext(ctx, &modelRows, `
		SELECT m.id, m.provider_id, m.name, m.upstream_id, m.tier, m.capabilities,
		       m.streaming, m.max_tokens, m.cost_per_1k
		FROM catalog_models m
		JOIN catalog_providers p ON p.id = m.provider_id
		WHERE p.enabled
		ORDER BY m.created_at, m.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog models: %w", err)
	}

	return assembleCatalog(providerRows, modelRows)
}

func assembleCatalog(providerRows []providerRow, modelRows []modelRow) ([]models.Provider, error) {
	out := make([]models.Provider, 0, len(providerRows))
	index := make(map[string]int, len(providerRows))
	for _, row := range providerRows {
		index[row.ID] = len(out)
		out = append(out, row.toModel())
	}

	for _, row := range modelRows {
		i, ok := index[row.ProviderID]
		if !ok {
			return nil, fmt.Errorf("%w: model %s, provider %s", ErrOrphanModel, row.ID, row.ProviderID)
		}
		out[i].Models = append(out[i].Models, row.toModel())
	}
	return out, nil
}
