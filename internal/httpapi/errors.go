package httpapi

import (
	"context"
	"errors"
	"net/http"

	"content_gateway/internal/models"
	"content_gateway/internal/utils"
)

const (
	errTypeInvalidRequest   = "invalid_request_error"
	errTypeNotFound         = "not_found_error"
	errTypeConfiguration    = "configuration_error"
	errTypeUpstream         = "upstream_error"
	errTypeUpstreamRetry    = "upstream_unavailable_error"
	errTypeInvalidResponse  = "invalid_response_error"
	errTypeCanceled         = "request_canceled"
	errTypeInternal         = "internal_error"
	errTypeMethodNotAllowed = "method_not_allowed"
)

// classify maps a generation error to an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrModelNotFound), errors.Is(err, models.ErrProviderNotFound):
		return http.StatusBadRequest, errTypeNotFound
	case errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest, errTypeInvalidRequest
	case errors.Is(err, models.ErrMissingAPIKey), errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusInternalServerError, errTypeConfiguration
	case errors.Is(err, models.ErrUpstreamStatus):
		if utils.IsRecoverableError(err) {
			return http.StatusBadGateway, errTypeUpstreamRetry
		}
		return http.StatusBadGateway, errTypeUpstream
	case errors.Is(err, models.ErrInvalidResponse):
		return http.StatusBadGateway, errTypeInvalidResponse
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errTypeUpstream
	case errors.Is(err, context.Canceled):
		// 499 is the de facto status for a client that went away.
		return 499, errTypeCanceled
	default:
		return http.StatusBadGateway, errTypeUpstream
	}
}

func writeError(w http.ResponseWriter, err error) (int, string) {
	code, errType := classify(err)
	utils.RespondWithError(w, code, errType, err.Error())
	return code, errType
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	utils.RespondWithError(w, http.StatusMethodNotAllowed, errTypeMethodNotAllowed, "method not allowed")
}
