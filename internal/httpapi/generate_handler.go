package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"content_gateway/internal/billing"
	"content_gateway/internal/models"
	"content_gateway/internal/utils"
)

// DefaultTemperature applies when a request omits temperature.
const DefaultTemperature = 0.7

const maxBodyBytes = 1 << 20

const unknownLabel = "unknown"

type generateRequest struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages"`
	Temperature *float64         `json:"temperature"`
	MaxTokens   int              `json:"maxTokens"`
	Stream      bool             `json:"stream"`
}

func (r generateRequest) toGenerationRequest() *models.GenerationRequest {
	temperature := DefaultTemperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	return &models.GenerationRequest{
		Model:       r.Model,
		Messages:    r.Messages,
		Temperature: temperature,
		MaxTokens:   r.MaxTokens,
		Stream:      r.Stream,
	}
}

// handleGenerate serves POST /v1/generate.
//
// Flow:
//  1. Validate method and decode JSON body
//  2. Call the generation façade
//  3. Record metrics and usage (best-effort)
//  4. Return the normalized response
func (d *Dependencies) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := newRequestID()
	w.Header().Set("X-Request-ID", reqID)

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var body generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, errTypeInvalidRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	resp, err := d.Manager.GenerateContent(ctx, body.toGenerationRequest())
	if err != nil {
		code, errType := writeError(w, err)
		provider, model := d.metricLabels(body.Model)
		d.Metrics.ObserveGeneration(provider, model, errType, time.Since(start), nil)
		d.Logger.Warn("generation failed",
			"request_id", reqID,
			"model", body.Model,
			"status", code,
			"error", err,
		)
		return
	}

	d.Metrics.ObserveGeneration(resp.Provider, resp.Model, "ok", time.Since(start), resp.Usage)
	d.recordUsage(r.Context(), resp.Model, resp.Usage)
	d.Logger.Info("generation served",
		"request_id", reqID,
		"model", resp.Model,
		"provider", resp.Provider,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	_ = utils.RespondWithJSON(w, http.StatusOK, resp)
}

// recordUsage writes to the ledger; failures are logged, never returned.
func (d *Dependencies) recordUsage(ctx context.Context, modelID string, usage *models.Usage) {
	model, ok := d.Manager.Registry().ModelByID(modelID)
	if !ok {
		return
	}
	entry := billing.NewUsageEntry(model, &models.GenerationResponse{Model: modelID, Usage: usage}, time.Now())
	if err := d.Ledger.Record(ctx, entry); err != nil {
		d.Logger.Warn("usage not recorded", "model", modelID, "error", err)
	}
}

// metricLabels returns the provider and model labels for a requested model.
// Ids missing from the registry share one "unknown" series so callers
// cannot mint new series.
func (d *Dependencies) metricLabels(modelID string) (string, string) {
	if model, ok := d.Manager.Registry().ModelByID(modelID); ok {
		return model.ProviderID, model.ID
	}
	return unknownLabel, unknownLabel
}

// newRequestID returns a UUID request ID for tracing
func newRequestID() string {
	return uuid.New().String()
}
