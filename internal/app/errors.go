package app

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for request rejection. The HTTP layer maps these onto
// status codes and stable error codes.
var (
	ErrEmptyBody         = errors.New("empty request body")
	ErrInvalidJSON       = errors.New("invalid json body")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrReplayedNonce     = errors.New("nonce already used")
	ErrSecretUnavailable = errors.New("signing secret unavailable")
)

// ValidationError carries the full set of field-level rejection reasons for
// one request.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Reasons, ", "))
}

// AsValidation extracts a ValidationError from err, if present.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
