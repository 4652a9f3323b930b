// Package billing accumulates token usage and cost per model per month.
package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"content_gateway/internal/models"
)

// UsageEntry is one completed generation
type UsageEntry struct {
	Model    string       `json:"model"`
	Provider string       `json:"provider"`
	Usage    models.Usage `json:"usage"`
	CostUSD  float64      `json:"cost_usd"`
	At       time.Time    `json:"at"`
}

// NewUsageEntry builds an entry for resp, pricing it with model's rate.
// Responses without usage record a request with zero tokens.
func NewUsageEntry(model models.Model, resp *models.GenerationResponse, at time.Time) UsageEntry {
	entry := UsageEntry{
		Model:    model.ID,
		Provider: model.ProviderID,
		At:       at,
	}
	if resp != nil && resp.Usage != nil {
		entry.Usage = *resp.Usage
		entry.CostUSD = model.CalculateCost(resp.Usage)
	}
	return entry
}

// MonthlyUsage is the accumulated usage of one model in one month
type MonthlyUsage struct {
	Model            string  `json:"model"`
	Month            string  `json:"month"`
	Requests         int64   `json:"requests"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	TotalTokens      int64   `json:"totalTokens"`
	CostUSD          float64 `json:"costUsd"`
}

// Ledger records usage.
type Ledger interface {
	Record(ctx context.Context, entry UsageEntry) error
}

// NoopLedger discards usage.
type NoopLedger struct{}

func NewNoopLedger() *NoopLedger {
	return &NoopLedger{}
}

func (l *NoopLedger) Record(ctx context.Context, entry UsageEntry) error {
	return nil
}

const (
	fieldRequests   = "requests"
	fieldPrompt     = "prompt_tokens"
	fieldCompletion = "completion_tokens"
	fieldTotal      = "total_tokens"
	fieldCost       = "cost_usd"
)

// RedisLedger keeps one hash per model per month
type RedisLedger struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisLedger creates a ledger whose monthly buckets expire after ttl.
// A non-positive ttl keeps buckets forever.
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{redis: client, ttl: ttl}
}

// Record adds entry to its month bucket in one MULTI/EXEC round-trip
func (l *RedisLedger) Record(ctx context.Context, entry UsageEntry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	key := monthlyKey(entry.Model, at.Year(), int(at.Month()))

	pipe := l.redis.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldRequests, 1)
	pipe.HIncrBy(ctx, key, fieldPrompt, int64(entry.Usage.PromptTokens))
	pipe.HIncrBy(ctx, key, fieldCompletion, int64(entry.Usage.CompletionTokens))
	pipe.HIncrBy(ctx, key, fieldTotal, int64(entry.Usage.TotalTokens))
	pipe.HIncrByFloat(ctx, key, fieldCost, entry.CostUSD)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record usage for %s: %w", entry.Model, err)
	}
	return nil
}

// MonthlyUsage returns the accumulated usage of model for a month.
// A month with no traffic returns zero counters.
func (l *RedisLedger) MonthlyUsage(ctx context.Context, model string, year int, month int) (MonthlyUsage, error) {
	out := MonthlyUsage{Model: model, Month: fmt.Sprintf("%04d-%02d", year, month)}

	fields, err := l.redis.HGetAll(ctx, monthlyKey(model, year, month)).Result()
	if err != nil {
		return out, fmt.Errorf("failed to read usage for %s: %w", model, err)
	}

	counters := map[string]*int64{
		fieldRequests:   &out.Requests,
		fieldPrompt:     &out.PromptTokens,
		fieldCompletion: &out.CompletionTokens,
		fieldTotal:      &out.TotalTokens,
	}
	for name, dst := range counters {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if *dst, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return out, fmt.Errorf("corrupt %s for %s: %w", name, model, err)
		}
	}
	if raw, ok := fields[fieldCost]; ok {
		if out.CostUSD, err = strconv.ParseFloat(raw, 64); err != nil {
			return out, fmt.Errorf("corrupt %s for %s: %w", fieldCost, model, err)
		}
	}
	return out, nil
}

// monthlyKey generates the Redis key for a model's monthly usage
func monthlyKey(model string, year int, month int) string {
	return fmt.Sprintf("usage:%04d-%02d:%s", year, month, model)
}
