// Package metrics exposes generation metrics for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content_gateway/internal/models"
)

// LLMBuckets spans 100ms to 120s, the range of upstream generation latencies.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ArticleBuckets covers pipeline runs of several chained calls.
var ArticleBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600}

// Metrics records generation outcomes and serves them over HTTP.
type Metrics interface {
	ObserveGeneration(provider, model, status string, duration time.Duration, usage *models.Usage)
	// ObserveArticle records one pipeline run; usage is the sum over its calls.
	ObserveArticle(provider, model, status string, duration time.Duration, usage *models.Usage)
	HTTPHandler() http.Handler
}

// NoopMetrics discards observations.
type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (m *NoopMetrics) ObserveGeneration(provider, model, status string, duration time.Duration, usage *models.Usage) {
}

func (m *NoopMetrics) ObserveArticle(provider, model, status string, duration time.Duration, usage *models.Usage) {
}

func (m *NoopMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// PrometheusMetrics owns a private registry so several instances can coexist
// in one process (tests, embedded use).
type PrometheusMetrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tokens   *prometheus.CounterVec

	articles       *prometheus.CounterVec
	articleLatency *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the gateway collectors plus the Go runtime
// and process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_gateway_generations_total",
				Help: "Generation requests by provider, model and outcome",
			},
			[]string{"provider", "model", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "content_gateway_generation_duration_seconds",
				Help:    "Generation latency",
				Buckets: LLMBuckets,
			},
			[]string{"provider", "model"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_gateway_tokens_total",
				Help: "Tokens reported by providers",
			},
			[]string{"provider", "model", "direction"},
		),
		articles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_gateway_articles_total",
				Help: "Article pipeline runs by provider, model and outcome",
			},
			[]string{"provider", "model", "status"},
		),
		articleLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "content_gateway_article_duration_seconds",
				Help:    "Article pipeline latency",
				Buckets: ArticleBuckets,
			},
			[]string{"provider", "model"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.tokens,
		m.articles,
		m.articleLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveGeneration records one finished call. Callers must pass bounded
// labels: ids that are not in the registry should be folded into one value.
func (m *PrometheusMetrics) ObserveGeneration(provider, model, status string, duration time.Duration, usage *models.Usage) {
	m.requests.WithLabelValues(provider, model, status).Inc()
	m.latency.WithLabelValues(provider, model).Observe(duration.Seconds())
	m.addTokens(provider, model, usage)
}

// ObserveArticle records one pipeline run. Its tokens are added to the same
// token counter as single generations.
func (m *PrometheusMetrics) ObserveArticle(provider, model, status string, duration time.Duration, usage *models.Usage) {
	m.articles.WithLabelValues(provider, model, status).Inc()
	m.articleLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
	m.addTokens(provider, model, usage)
}

func (m *PrometheusMetrics) addTokens(provider, model string, usage *models.Usage) {
	if usage == nil {
		return
	}
	m.tokens.WithLabelValues(provider, model, "input").Add(float64(usage.PromptTokens))
	m.tokens.WithLabelValues(provider, model, "output").Add(float64(usage.CompletionTokens))
}

// HTTPHandler serves the private registry in the Prometheus text format
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for extra collectors
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}
