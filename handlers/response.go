package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"issuehub/apperr"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// codeValidation marks request data rejected field by field.
const codeValidation = "VALIDATION_ERROR"

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string, details []apperr.FieldError) {
	if errCode == "" {
		errCode = fmt.Sprintf("HTTP_%d", code)
	}
	writeJSON(w, code, map[string]errorBody{
		"error": {Code: errCode, Message: message, Details: details},
	})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders err as the API error envelope. Errors outside the
// apperr taxonomy are logged and reported as a bare 500.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && len(appErr.Details) > 0 {
		writeErr(w, http.StatusUnprocessableEntity, codeValidation, appErr.Message, appErr.Details)
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		writeErr(w, status, "", "Internal server error", nil)
		return
	}
	writeErr(w, status, "", apperr.Message(err, http.StatusText(status)), nil)
}

// decodeJSON reads the request body into dst. Malformed bodies are reported
// as validation failures on the body itself.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "invalid JSON body"})
	}
	return nil
}

// idParam parses a numeric path parameter. Non-numeric ids are validation
// failures.
func idParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validation(apperr.FieldError{Field: name, Message: "must be a positive integer"})
	}
	return uint(id), nil
}
