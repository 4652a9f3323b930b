package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"content_gateway/internal/billing"
	"content_gateway/internal/config"
	"content_gateway/internal/llm"
	"content_gateway/internal/logging"
	"content_gateway/internal/metrics"
	"content_gateway/internal/pipeline"
	"content_gateway/internal/queue"
	"content_gateway/internal/storage"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Manager  *llm.Manager
	Pipeline *pipeline.Pipeline
	Ledger   billing.Ledger
	Metrics  metrics.Metrics
	Logger   *logging.Logger

	// Set when the usage ledger is enabled; they back /v1/usage and /health.
	Usage       *billing.RedisLedger
	UsageWorker *billing.QueueWorker
	Redis       HealthChecker

	closers []func() error
}

// HealthChecker is a backing service /health pings.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewDependencies wires the façade, pipeline, usage ledger and metrics from cfg
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	logger := logging.NewLogger("httpapi")

	manager, err := llm.NewManagerFromConfig(ctx, cfg, llm.WithLogger(logging.NewLogger("llm")))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation manager: %w", err)
	}

	deps := &Dependencies{
		Manager:  manager,
		Pipeline: pipeline.New(manager, pipeline.WithLogger(logging.NewLogger("pipeline"))),
		Ledger:   billing.NewNoopLedger(),
		Metrics:  metrics.NewPrometheusMetrics(),
		Logger:   logger,
	}

	if cfg.UsageLedger.Enabled {
		redisClient, err := storage.NewRedisClient(ctx, storage.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		deps.closers = append(deps.closers, redisClient.Close)

		ledger := billing.NewRedisLedger(redisClient.Client(), cfg.UsageLedger.TTL)
		worker := newUsageWorker(redisClient, ledger, cfg.UsageLedger)
		worker.Start(context.Background())
		deps.Ledger = worker
		deps.Usage = ledger
		deps.UsageWorker = worker
		deps.Redis = redisClient
		// Closers run in order: drain the queue before Redis goes away.
		deps.closers = append([]func() error{worker.Stop}, deps.closers...)
		logger.Info("usage ledger enabled",
			"redis", cfg.Redis.Address,
			"queue", cfg.UsageLedger.QueueBackend,
		)
	}

	return deps, nil
}

// newUsageWorker feeds the Redis ledger through the configured queue backend.
// The redis backend shares the queue with every replica and keeps dead letters.
func newUsageWorker(redisClient *storage.RedisClient, ledger billing.Ledger, cfg config.UsageLedgerConfig) *billing.QueueWorker {
	qcfg := queue.Config{
		Name:         "usage",
		Capacity:     cfg.QueueCapacity,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
	if cfg.QueueBackend == "redis" {
		return billing.NewQueueWorker(
			queue.NewRedisQueue[billing.UsageEntry](redisClient.Client(), qcfg.Name),
			queue.NewRedisDeadLetterQueue[billing.UsageEntry](redisClient.Client(), qcfg.Name),
			ledger, qcfg,
		)
	}
	return billing.NewQueueWorker(
		queue.NewMemoryQueue[billing.UsageEntry](qcfg.Capacity),
		queue.NewMemoryDeadLetterQueue[billing.UsageEntry](),
		ledger, qcfg,
	)
}

// Close releases connections opened by NewDependencies
func (d *Dependencies) Close() error {
	var firstErr error
	for _, closeFn := range d.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewRouter registers every endpoint on a new mux. Nil Ledger, Metrics,
// Pipeline or Logger fall back to no-op or default implementations.
func NewRouter(deps *Dependencies) *http.ServeMux {
	if deps.Ledger == nil {
		deps.Ledger = billing.NewNoopLedger()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoopMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewLogger("httpapi")
	}
	if deps.Pipeline == nil {
		deps.Pipeline = pipeline.New(deps.Manager)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/generate", deps.handleGenerate)
	mux.HandleFunc("/v1/models", deps.handleModels)
	mux.HandleFunc("/v1/articles", deps.handleArticles)

	mux.HandleFunc("/v1/usage", deps.handleUsage)
	mux.HandleFunc("/health", deps.handleHealth)

	mux.Handle("/metrics", deps.Metrics.HTTPHandler())
	return mux
}

// handleHealth reports OK, or 503 when the usage ledger's Redis is unreachable
func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	if d.Redis != nil {
		if err := d.Redis.Health(r.Context()); err != nil {
			d.Logger.Warn("health check failed", "error", err)
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
