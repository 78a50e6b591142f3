package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iota-uz/pts-sync/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// ErrorCode returns the code of the *serrors.BaseError wrapped by err, or
// fallback when it carries none.
func ErrorCode(err error, fallback string) string {
	var base *serrors.BaseError
	if errors.As(err, &base) {
		return base.Code
	}
	return fallback
}

// WriteServiceError writes err using the code of the *serrors.BaseError it
// wraps, or fallbackCode when it carries none.
func WriteServiceError(w http.ResponseWriter, status int, fallbackCode string, err error) error {
	return WriteError(w, status, ErrorCode(err, fallbackCode), err.Error(), nil)
}
