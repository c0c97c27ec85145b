package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"archie-core-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error   string                   `json:"error"`
	Detail  string                   `json:"detail,omitempty"`
	Missing []domain.CredentialField `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps a service error onto an HTTP status and a short error code
func statusFor(err error) (int, string) {
	var incomplete *domain.IncompleteCredentialsError
	var limited *domain.RateLimitError
	var upstream *domain.UpstreamError

	switch {
	case errors.As(err, &incomplete):
		return http.StatusBadRequest, "incomplete_credentials"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrVerificationFailed):
		return http.StatusUnauthorized, "verification_failed"
	case errors.Is(err, domain.ErrUpstreamUnauthorized):
		return http.StatusUnauthorized, "upstream_unauthorized"
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, domain.ErrUpstreamNotFound):
		return http.StatusNotFound, "upstream_not_found"
	case errors.As(err, &limited):
		return http.StatusTooManyRequests, "upstream_rate_limited"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status, code := statusFor(err)
	resp := errorResponse{Error: code, Detail: err.Error()}

	var incomplete *domain.IncompleteCredentialsError
	if errors.As(err, &incomplete) {
		resp.Missing = incomplete.Missing
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
		resp.Detail = ""
	}

	writeJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Detail: detail})
}
