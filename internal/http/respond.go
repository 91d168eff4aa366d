package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/fjod/filecart/internal/logging"
	"github.com/fjod/filecart/internal/service"
	"github.com/fjod/filecart/internal/store"
	"github.com/goccy/go-json"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts manager and store errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Error: verr.Error(),
			Code:  "validation_error",
			Field: verr.Field,
		})
	case errors.Is(err, service.ErrProductNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, service.ErrCartNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", "cart not found")
	case errors.Is(err, store.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		respondError(w, r, http.StatusServiceUnavailable, "store_busy", "collection is busy, retry later")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		respondError(w, r, http.StatusInternalServerError, "store_unavailable", "storage is unavailable")
	}
}
