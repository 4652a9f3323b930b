package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"content_gateway/internal/billing"
	"content_gateway/internal/queue"
	"content_gateway/internal/utils"
)

const maxDeadLetters = 50

type usageResponse struct {
	Usage       billing.MonthlyUsage                   `json:"usage"`
	Pending     *int                                   `json:"pending,omitempty"`
	DeadLetters []queue.DeadLetter[billing.UsageEntry] `json:"deadLetters,omitempty"`
}

// handleUsage serves GET /v1/usage?model=<id>&month=YYYY-MM. The month
// defaults to the current UTC month.
func (d *Dependencies) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	if d.Usage == nil {
		utils.RespondWithError(w, http.StatusNotFound, errTypeNotFound, "usage ledger is disabled")
		return
	}

	query := r.URL.Query()
	modelID := query.Get("model")
	if modelID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, errTypeInvalidRequest, "model is required")
		return
	}
	if _, ok := d.Manager.Registry().ModelByID(modelID); !ok {
		utils.RespondWithError(w, http.StatusBadRequest, errTypeNotFound, fmt.Sprintf("model %q not found", modelID))
		return
	}

	month := time.Now().UTC()
	if raw := query.Get("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, errTypeInvalidRequest, fmt.Sprintf("invalid month %q, want YYYY-MM", raw))
			return
		}
		month = parsed
	}

	usage, err := d.Usage.MonthlyUsage(r.Context(), modelID, month.Year(), int(month.Month()))
	if err != nil {
		d.Logger.Error("failed to read usage", "model", modelID, "error", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, errTypeInternal, "usage ledger unavailable")
		return
	}

	out := usageResponse{Usage: usage}
	if d.UsageWorker != nil {
		if n, err := d.UsageWorker.QueueLength(r.Context()); err == nil {
			out.Pending = &n
		} else {
			d.Logger.Warn("failed to read usage queue length", "error", err)
		}
		if dead, err := d.UsageWorker.DeadLetters(r.Context(), maxDeadLetters); err == nil {
			out.DeadLetters = dead
		} else {
			d.Logger.Warn("failed to list usage dead letters", "error", err)
		}
	}
	_ = utils.RespondWithJSON(w, http.StatusOK, out)
}
