package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_gateway/internal/billing"
	"content_gateway/internal/llm"
	"content_gateway/internal/logging"
	"content_gateway/internal/metrics"
	"content_gateway/internal/models"
	"content_gateway/internal/queue"
	"content_gateway/internal/registry"
	"content_gateway/internal/storage"
	"content_gateway/internal/utils"
)

// upstream is a fake OpenAI-compatible provider.
type upstream struct {
	mu     sync.Mutex
	status int
	body   string
	temps  []float64
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Temperature float64 `json:"temperature"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	u.mu.Lock()
	u.temps = append(u.temps, req.Temperature)
	status, body := u.status, u.body
	u.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if body == "" {
		body = `{"choices":[{"message":{"role":"assistant","content":"X"}}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type testEnv struct {
	upstream *upstream
	server   *httptest.Server
	redis    *miniredis.Miniredis
	deps     *Dependencies
	mux      *http.ServeMux
}

func newTestEnv(t *testing.T, env map[string]string) *testEnv {
	t.Helper()

	up := &upstream{}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	reg, err := registry.New(
		models.Provider{
			ID:        "local",
			Name:      "Local",
			BaseURL:   srv.URL,
			APIKeyEnv: "LOCAL_API_KEY",
			Format:    models.FormatOpenAI,
			Models: []models.Model{
				{ID: "local-small", Tier: models.TierFree, MaxTokens: 2048},
				{ID: "local-large", Tier: models.TierPro, MaxTokens: 8192, CostPer1K: utils.FloatPtr(2)},
			},
		},
		models.Provider{
			ID:     "broken",
			Format: models.FormatCustom,
			Models: []models.Model{{ID: "broken-1", Tier: models.TierPro, MaxTokens: 100}},
		},
	)
	require.NoError(t, err)

	if env == nil {
		env = map[string]string{"LOCAL_API_KEY": "k"}
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisClient, err := storage.NewRedisClient(context.Background(), storage.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })
	ledger := billing.NewRedisLedger(redisClient.Client(), time.Hour)

	quiet := logging.NewLoggerTo(&bytes.Buffer{}, "test")
	deps := &Dependencies{
		Manager: llm.NewManager(reg, llm.WithHTTPClient(srv.Client()), llm.WithEnvLookup(lookup), llm.WithLogger(quiet)),
		Ledger:  ledger,
		Metrics: metrics.NewPrometheusMetrics(),
		Logger:  quiet,
		Usage:   ledger,
		Redis:   redisClient,
	}

	return &testEnv{upstream: up, server: srv, redis: mr, deps: deps, mux: NewRouter(deps)}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorBody {
	t.Helper()
	var out utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Error
}

func TestGenerate_Success(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/generate",
		`{"model":"local-large","messages":[{"role":"user","content":"hello"}],"maxTokens":500}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	var resp models.GenerationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "X", resp.Content)
	assert.Equal(t, &models.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}, resp.Usage)
	assert.Equal(t, "local-large", resp.Model)
	assert.Equal(t, "local", resp.Provider)

	assert.Equal(t, []float64{DefaultTemperature}, env.upstream.temps)

	now := time.Now().UTC()
	key := fmt.Sprintf("usage:%04d-%02d:local-large", now.Year(), int(now.Month()))
	assert.Equal(t, "1", env.redis.HGet(key, "requests"))
	assert.Equal(t, "3", env.redis.HGet(key, "total_tokens"))
}

func TestGenerate_ExplicitZeroTemperature(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/generate",
		`{"model":"local-small","temperature":0,"messages":[{"role":"user","content":"hello"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{0}, env.upstream.temps)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		status   int
		body     string
		request  string
		wantCode int
		wantType string
	}{
		{
			name:     "unknown model",
			request:  `{"model":"nope","messages":[{"role":"user","content":"hi"}]}`,
			wantCode: http.StatusBadRequest,
			wantType: errTypeNotFound,
		},
		{
			name:     "invalid json",
			request:  `{"model":`,
			wantCode: http.StatusBadRequest,
			wantType: errTypeInvalidRequest,
		},
		{
			name:     "temperature out of range",
			request:  `{"model":"local-small","temperature":3,"messages":[{"role":"user","content":"hi"}]}`,
			wantCode: http.StatusBadRequest,
			wantType: errTypeInvalidRequest,
		},
		{
			name:     "missing api key",
			env:      map[string]string{},
			request:  `{"model":"local-small","messages":[{"role":"user","content":"hi"}]}`,
			wantCode: http.StatusInternalServerError,
			wantType: errTypeConfiguration,
		},
		{
			name:     "custom provider without function",
			request:  `{"model":"broken-1","messages":[{"role":"user","content":"hi"}]}`,
			wantCode: http.StatusInternalServerError,
			wantType: errTypeConfiguration,
		},
		{
			name:     "upstream server error",
			status:   http.StatusServiceUnavailable,
			body:     `overloaded`,
			request:  `{"model":"local-small","messages":[{"role":"user","content":"hi"}]}`,
			wantCode: http.StatusBadGateway,
			wantType: errTypeUpstreamRetry,
		},
		{
			name:     "upstream client error",
			status:   http.StatusUnauthorized,
			body:     `bad key`,
			request:  `{"model":"local-small","messages":[{"role":"user","content":"hi"}]}`,
			wantCode: http.StatusBadGateway,
			wantType: errTypeUpstream,
		},
		{
			name:     "invalid upstream response",
			body:     `{"choices":[]}`,
			request:  `{"model":"local-small","messages":[{"role":"user","content":"hi"}]}`,
			wantCode: http.StatusBadGateway,
			wantType: errTypeInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.env)
			env.upstream.status = tt.status
			env.upstream.body = tt.body

			rec := env.do(http.MethodPost, "/v1/generate", tt.request)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			errBody := decodeError(t, rec)
			assert.Equal(t, tt.wantType, errBody.Type)
			assert.Equal(t, tt.wantCode, errBody.Code)
			assert.NotEmpty(t, errBody.Message)
		})
	}
}

func TestGenerate_UnknownModelSendsNothingUpstream(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodPost, "/v1/generate", `{"model":"nope","messages":[{"role":"user","content":"hi"}]}`)
	assert.Empty(t, env.upstream.temps)
}

func TestGenerate_LedgerFailureIsBestEffort(t *testing.T) {
	env := newTestEnv(t, nil)
	env.redis.Close()

	rec := env.do(http.MethodPost, "/v1/generate", `{"model":"local-small","messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerate_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/v1/generate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestModels(t *testing.T) {
	env := newTestEnv(t, nil)

	ids := func(rec *httptest.ResponseRecorder) []string {
		var out modelsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		names := make([]string, len(out.Models))
		for i, m := range out.Models {
			names[i] = m.ID
		}
		return names
	}

	rec := env.do(http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"local-small", "local-large", "broken-1"}, ids(rec))

	rec = env.do(http.MethodGet, "/v1/models?tier=free", "")
	assert.Equal(t, []string{"local-small"}, ids(rec))

	rec = env.do(http.MethodGet, "/v1/models?tier=pro&provider=local", "")
	assert.Equal(t, []string{"local-small", "local-large"}, ids(rec))

	rec = env.do(http.MethodGet, "/v1/models?provider=missing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"models":[]}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/v1/models?tier=enterprise", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/models", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestArticles_Success(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/articles", `{"model":"local-small","topic":"Go for beginners","keywords":["go"],"sections":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var st struct {
		Outline   []string     `json:"outline"`
		HTML      string       `json:"html"`
		Completed []string     `json:"completed"`
		Usage     models.Usage `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, []string{"research", "outline", "sections", "polish"}, st.Completed)
	assert.Equal(t, []string{"X"}, st.Outline)
	assert.Equal(t, "X", st.HTML)
	// research, outline, one section, polish
	assert.Equal(t, 12, st.Usage.TotalTokens)
}

func TestArticles_FailureNamesNode(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upstream.status = http.StatusInternalServerError

	rec := env.do(http.MethodPost, "/v1/articles", `{"model":"local-small","topic":"Go"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var out articleErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "research", out.Node)
	assert.Equal(t, errTypeUpstreamRetry, out.Error.Type)
}

func TestArticles_InvalidInput(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/articles", `{"model":"local-small"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/v1/articles", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	env.do(http.MethodPost, "/v1/generate", `{"model":"local-small","messages":[{"role":"user","content":"hi"}]}`)
	env.do(http.MethodPost, "/v1/generate", `{"model":"nope","messages":[{"role":"user","content":"hi"}]}`)

	rec = env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `content_gateway_generations_total{model="local-small",provider="local",status="ok"} 1`)
	assert.Contains(t, body, `content_gateway_generations_total{model="unknown",provider="unknown",status="not_found_error"} 1`)
}

func TestMetrics_UnknownModelsShareOneSeries(t *testing.T) {
	env := newTestEnv(t, nil)

	const n = 25
	for i := 0; i < n; i++ {
		rec := env.do(http.MethodPost, "/v1/generate",
			fmt.Sprintf(`{"model":"made-up-%d","messages":[{"role":"user","content":"hi"}]}`, i))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "made-up-")
	assert.Contains(t, body,
		fmt.Sprintf(`content_gateway_generations_total{model="unknown",provider="unknown",status="not_found_error"} %d`, n))
}

func TestArticles_RecordsUsageAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/articles", `{"model":"local-large","topic":"Go","sections":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	now := time.Now().UTC()
	key := fmt.Sprintf("usage:%04d-%02d:local-large", now.Year(), int(now.Month()))
	require.True(t, env.redis.Exists(key))
	assert.Equal(t, "1", env.redis.HGet(key, "requests"))
	assert.Equal(t, "12", env.redis.HGet(key, "total_tokens"))

	rec = env.do(http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(),
		`content_gateway_articles_total{model="local-large",provider="local",status="ok"} 1`)
}

func TestArticles_FailureMetricsUseBoundedLabels(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/articles", `{"model":"made-up","topic":"Go"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/metrics", "")
	body := rec.Body.String()
	assert.NotContains(t, body, "made-up")
	assert.Contains(t, body, `content_gateway_articles_total{model="unknown",provider="unknown",status="not_found_error"} 1`)
}

func TestHealth_RedisDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.redis.Close()

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUsage(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/generate", `{"model":"local-large","messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/v1/usage?model=local-large", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out usageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(1), out.Usage.Requests)
	assert.Equal(t, int64(3), out.Usage.TotalTokens)
	assert.InDelta(t, 0.006, out.Usage.CostUSD, 1e-9)
	assert.Nil(t, out.Pending)

	rec = env.do(http.MethodGet, "/v1/usage?model=local-large&month=2001-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "2001-01", out.Usage.Month)
	assert.Zero(t, out.Usage.Requests)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"missing model", "/v1/usage", http.StatusBadRequest},
		{"unknown model", "/v1/usage?model=nope", http.StatusBadRequest},
		{"invalid month", "/v1/usage?model=local-large&month=jan", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	rec = env.do(http.MethodPost, "/v1/usage", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUsage_ReportsQueueState(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	dlq := queue.NewMemoryDeadLetterQueue[billing.UsageEntry]()
	require.NoError(t, dlq.Add(ctx, billing.UsageEntry{Model: "local-small"}, errors.New("redis down")))
	worker := billing.NewQueueWorker(queue.NewMemoryQueue[billing.UsageEntry](10), dlq, env.deps.Usage, queue.Config{})
	require.NoError(t, worker.Record(ctx, billing.UsageEntry{Model: "local-small"}))
	env.deps.UsageWorker = worker

	rec := env.do(http.MethodGet, "/v1/usage?model=local-small", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out usageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.Pending)
	assert.Equal(t, 1, *out.Pending)
	require.Len(t, out.DeadLetters, 1)
	assert.Equal(t, "redis down", out.DeadLetters[0].Error)
}

func TestUsage_LedgerDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	env.deps.Usage = nil

	rec := env.do(http.MethodGet, "/v1/usage?model=local-small", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantType string
	}{
		{fmt.Errorf("x: %w", models.ErrModelNotFound), http.StatusBadRequest, errTypeNotFound},
		{fmt.Errorf("x: %w", models.ErrProviderNotFound), http.StatusBadRequest, errTypeNotFound},
		{fmt.Errorf("x: %w", models.ErrInvalidRequest), http.StatusBadRequest, errTypeInvalidRequest},
		{fmt.Errorf("x: %w", models.ErrMissingAPIKey), http.StatusInternalServerError, errTypeConfiguration},
		{fmt.Errorf("x: %w", models.ErrUnsupportedFormat), http.StatusInternalServerError, errTypeConfiguration},
		{&models.UpstreamError{Provider: "p", StatusCode: 429}, http.StatusBadGateway, errTypeUpstreamRetry},
		{&models.UpstreamError{Provider: "p", StatusCode: 404}, http.StatusBadGateway, errTypeUpstream},
		{models.InvalidResponseError("p", "d"), http.StatusBadGateway, errTypeInvalidResponse},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, errTypeUpstream},
		{context.Canceled, 499, errTypeCanceled},
		{errors.New("dial tcp: connection refused"), http.StatusBadGateway, errTypeUpstream},
	}

	for _, tt := range tests {
		code, errType := classify(tt.err)
		assert.Equal(t, tt.wantCode, code, tt.err.Error())
		assert.Equal(t, tt.wantType, errType, tt.err.Error())
	}
}
