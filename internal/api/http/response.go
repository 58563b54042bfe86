package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"equiptrack-backend/internal/checkout"
	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/security"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *domain.ValidationError
		ue *domain.UnavailableError
		pe *domain.PersistenceError
	)
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &ve):
		status, resp.Code, resp.Field = http.StatusUnprocessableEntity, "validation", ve.Field
	case errors.As(err, &ue):
		status, resp.Code, resp.Reason = http.StatusConflict, "unavailable", string(ue.Reason)
	case errors.Is(err, domain.ErrAlreadyCommitted):
		status, resp.Code = http.StatusConflict, "already_committed"
	case errors.Is(err, domain.ErrConflict):
		status, resp.Code, resp.Retryable = http.StatusConflict, "conflict", true
	case errors.As(err, &pe):
		status, resp.Code, resp.Retryable = http.StatusServiceUnavailable, "persistence", pe.Retryable()
		resp.Error = "could not save changes, please retry"
	case errors.Is(err, domain.ErrNotFound):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, checkout.ErrWrongState),
		errors.Is(err, ledger.ErrCheckoutClosed), errors.Is(err, ledger.ErrNotLost),
		errors.Is(err, ledger.ErrForbiddenTransition):
		status, resp.Code = http.StatusConflict, "invalid_state"
	case errors.Is(err, checkout.ErrItemNotFound):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, security.ErrInvalidCredentials):
		status, resp.Code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, security.ErrTooManyAttempts):
		status, resp.Code = http.StatusTooManyRequests, "rate_limited"
	default:
		resp.Code = "internal"
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}
	writeJSON(w, status, resp)
}
