package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleBackendError maps a failed backend call to a response. fallback is
// the user-facing message when the backend gave no detail.
func handleBackendError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			respondError(w, http.StatusNotFound, "not_found", api.UserMessage(err, "not found"))
		default:
			respondJSON(w, http.StatusBadGateway, ErrorResponse{
				Error:   api.UserMessage(err, fallback),
				Code:    "backend_error",
				Details: apiErr.Error(),
			})
		}
		return
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", fallback)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", fallback)
	case errors.Is(err, api.ErrTransport):
		respondError(w, http.StatusServiceUnavailable, "backend_unavailable", fallback)
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
