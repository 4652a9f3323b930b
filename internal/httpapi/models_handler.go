package httpapi

import (
	"fmt"
	"net/http"

	"content_gateway/internal/models"
	"content_gateway/internal/utils"
)

type modelsResponse struct {
	Models []models.Model `json:"models"`
}

// handleModels serves GET /v1/models?tier=free|pro&provider=<id>
func (d *Dependencies) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	reg := d.Manager.Registry()
	query := r.URL.Query()

	list := reg.Models()
	if tier := query.Get("tier"); tier != "" {
		if !models.Tier(tier).Valid() {
			utils.RespondWithError(w, http.StatusBadRequest, errTypeInvalidRequest, fmt.Sprintf("unknown tier %q", tier))
			return
		}
		list = reg.ModelsByTier(models.Tier(tier))
	}

	if providerID := query.Get("provider"); providerID != "" {
		filtered := make([]models.Model, 0, len(list))
		for _, m := range list {
			if m.ProviderID == providerID {
				filtered = append(filtered, m)
			}
		}
		list = filtered
	}

	if list == nil {
		list = []models.Model{}
	}
	_ = utils.RespondWithJSON(w, http.StatusOK, modelsResponse{Models: list})
}
