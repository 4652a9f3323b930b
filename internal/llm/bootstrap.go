package llm

import (
	"context"
	"fmt"
	"net/http"

	"content_gateway/internal/config"
	"content_gateway/internal/logging"
	"content_gateway/internal/models"
	"content_gateway/internal/providers"
	"content_gateway/internal/registry"
	"content_gateway/internal/storage"
)

// NewManagerFromConfig builds the registry from the built-in catalog, then the
// catalog file, then the Postgres catalog, in that order, so built-in ids keep
// precedence. Upstream calls share one client with the configured timeout.
func NewManagerFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	reg, err := registry.NewBuiltin()
	if err != nil {
		return nil, fmt.Errorf("failed to build builtin registry: %w", err)
	}

	if cfg.CatalogFile != "" {
		extra, err := registry.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		if err := bindDrivers(extra); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", cfg.CatalogFile, err)
		}
		if reg, err = reg.Extend(extra...); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", cfg.CatalogFile, err)
		}
		logging.Infof("loaded %d providers from %s", len(extra), cfg.CatalogFile)
	}

	if cfg.Database.URL != "" {
		extra, err := loadDatabaseCatalog(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := bindDrivers(extra); err != nil {
			return nil, fmt.Errorf("database catalog: %w", err)
		}
		if reg, err = reg.Extend(extra...); err != nil {
			return nil, fmt.Errorf("database catalog: %w", err)
		}
		logging.Infof("loaded %d providers from database", len(extra))
	}

	client := &http.Client{Timeout: cfg.Provider.RequestTimeout}
	opts = append([]Option{WithHTTPClient(client)}, opts...)
	return NewManager(reg, opts...), nil
}

func bindDrivers(list []models.Provider) error {
	for i := range list {
		if err := providers.BindDriver(&list[i]); err != nil {
			return err
		}
	}
	return nil
}

// loadDatabaseCatalog reads the catalog once; the connection is not kept.
func loadDatabaseCatalog(ctx context.Context, cfg config.DatabaseConfig) ([]models.Provider, error) {
	db, err := storage.NewDB(ctx, storage.DBConfig{
		DSN:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		QueryTimeout:    cfg.QueryTimeout,
	})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	repo := db.NewCatalogRepository()
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo.LoadProviders(ctx)
}
