package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/go-accounts/internal/api/dto"
	"github.com/hugh/go-accounts/internal/api/validation"
	"github.com/hugh/go-accounts/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a business error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindDuplicateEmail, apperr.KindEmailInUse:
		return http.StatusConflict
	case apperr.KindInvalidCredentials, apperr.KindInvalidToken:
		return http.StatusUnauthorized
	case apperr.KindAccountDisabled, apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAlreadyVerified, apperr.KindInvalidCode, apperr.KindCodeExpired, apperr.KindSelfDeletion:
		return http.StatusBadRequest
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err using the error taxonomy. Anything outside the
// taxonomy is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	resp := dto.ErrorResponse{Error: appErr.Message}
	if appErr.Field != "" {
		resp.Error = "Validation failed"
		resp.Details = map[string]string{appErr.Field: appErr.Message}
	}
	writeJSON(w, statusFor(appErr.Kind), resp)
}

func writeValidation(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Error: "Validation failed", Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// externalID parses the {id} URL parameter.
func externalID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if !validation.IsValidUUID(raw) {
		writeValidation(w, map[string]string{"id": "Invalid user ID"})
		return uuid.Nil, false
	}
	return uuid.MustParse(raw), true
}
