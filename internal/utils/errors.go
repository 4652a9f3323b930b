package utils

import (
	"errors"
	"net/http"

	"content_gateway/internal/models"
)

// IsRecoverableError reports whether a failed generation may succeed if the
// caller tries again later: upstream throttling or upstream server errors.
// Nothing in the gateway retries on its own.
func IsRecoverableError(err error) bool {
	var upstream *models.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	return upstream.StatusCode == http.StatusTooManyRequests || upstream.StatusCode >= http.StatusInternalServerError
}
