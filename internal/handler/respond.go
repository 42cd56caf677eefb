// Package handler exposes the wallet, order, catalog and admin operations
// over HTTP for the chat collaborator.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"smmwallet/internal/domain"
	"smmwallet/internal/middleware"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a single JSON object. It responds and returns false on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// account returns the authenticated member or responds 401.
func account(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	id, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

// statusFor maps an error to the HTTP status reported to the collaborator.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, errors.ErrOrderNotFound),
		errors.Is(err, errors.ErrCategoryNotFound),
		errors.Is(err, errors.ErrCategoryEmpty):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrOrderNotInReview):
		return http.StatusConflict
	case errors.Is(err, errors.ErrAmbiguousOutcome):
		return http.StatusAccepted
	case errors.Is(err, errors.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail logs unexpected errors and responds with the mapped status. Internal
// error text is not exposed.
func fail(w http.ResponseWriter, log logger.Logger, msg string, err error, fields map[string]interface{}) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		if fields == nil {
			fields = map[string]interface{}{}
		}
		fields["error"] = err.Error()
		log.Error(msg, fields)
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}
