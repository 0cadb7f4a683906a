package api

import (
	"errors"
	"net/http"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/app"
)

// Stable error codes. These are part of the wire contract.
const (
	codeInvalidBody      = "invalid_body"
	codeInvalidJSON      = "invalid_json"
	codeInvalidSignature = "invalid_signature"
	codeValidationError  = "validation_error"
	codeNonceReused      = "nonce_reused"
	codeUnavailable      = "unavailable"
	codeInternalError    = "internal_error"
)

// writeAppError translates service-layer errors onto the wire. Anything not
// explicitly client-caused is a 500 so internals never leak into codes.
func writeAppError(w http.ResponseWriter, err error) {
	if ve, ok := app.AsValidation(err); ok {
		writeError(w, http.StatusBadRequest, codeValidationError, ve.Reasons...)
		return
	}
	switch {
	case errors.Is(err, app.ErrEmptyBody):
		writeError(w, http.StatusBadRequest, codeInvalidBody)
	case errors.Is(err, app.ErrInvalidJSON):
		writeError(w, http.StatusBadRequest, codeInvalidJSON)
	case errors.Is(err, app.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, codeInvalidSignature)
	case errors.Is(err, app.ErrReplayedNonce):
		writeError(w, http.StatusConflict, codeNonceReused)
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeUnavailable)
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError)
	}
}
