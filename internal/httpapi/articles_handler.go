package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"content_gateway/internal/models"
	"content_gateway/internal/pipeline"
	"content_gateway/internal/utils"
)

// articleRequest distinguishes an omitted temperature from an explicit zero.
type articleRequest struct {
	pipeline.Input
	Temperature *float64 `json:"temperature"`
}

type articleErrorResponse struct {
	Error utils.ErrorBody `json:"error"`
	Node  string          `json:"node,omitempty"`
	State *pipeline.State `json:"state,omitempty"`
}

// handleArticles serves POST /v1/articles and returns the final pipeline state.
// On failure the error names the node that failed alongside the partial state.
func (d *Dependencies) handleArticles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := newRequestID()
	w.Header().Set("X-Request-ID", reqID)

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var body articleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, errTypeInvalidRequest, "invalid JSON body")
		return
	}
	in := body.Input
	in.Temperature = DefaultTemperature
	if body.Temperature != nil {
		in.Temperature = *body.Temperature
	}

	st, err := d.Pipeline.Run(r.Context(), in)
	provider, model := d.metricLabels(in.Model)

	// Tokens spent by completed nodes are billed even when a later node fails.
	if st != nil && (err == nil || st.Usage.TotalTokens > 0) {
		d.recordUsage(r.Context(), in.Model, &st.Usage)
	}

	if err != nil {
		code, errType := classify(err)
		var usage *models.Usage
		if st != nil {
			usage = &st.Usage
		}
		d.Metrics.ObserveArticle(provider, model, errType, time.Since(start), usage)
		out := articleErrorResponse{
			Error: utils.ErrorBody{Message: err.Error(), Type: errType, Code: code},
			State: st,
		}
		var nodeErr *pipeline.NodeError
		if errors.As(err, &nodeErr) {
			out.Node = nodeErr.Node
		}
		d.Logger.Warn("article failed", "request_id", reqID, "node", out.Node, "error", err)
		_ = utils.RespondWithJSON(w, code, out)
		return
	}

	d.Metrics.ObserveArticle(provider, model, "ok", time.Since(start), &st.Usage)
	d.Logger.Info("article served",
		"request_id", reqID,
		"model", in.Model,
		"sections", len(st.Sections),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	_ = utils.RespondWithJSON(w, http.StatusOK, st)
}
