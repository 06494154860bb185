// Package httpx holds the JSON response envelope and the mapping from the
// ledger's error taxonomy onto HTTP status codes.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/simplebank/simplebank/internal/ledger"
)

type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, APIError{Error: msg, Code: code, Details: details})
}

// WriteLedgerError translates an engine error into a response. Unknown
// errors become an opaque 500 so internals never leak to clients.
func WriteLedgerError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	msg := err.Error()

	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ledger.ErrSelfTransfer):
		status, code = http.StatusBadRequest, "self_transfer"
	case errors.Is(err, ledger.ErrDuplicateUsername):
		status, code = http.StatusConflict, "duplicate_username"
	case errors.Is(err, ledger.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, ledger.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status, code = http.StatusConflict, "insufficient_funds"
	case errors.Is(err, ledger.ErrAccountNotFound):
		status, code = http.StatusNotFound, "account_not_found"
	case errors.Is(err, ledger.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ledger.ErrTransferFailed):
		status, code, msg = http.StatusInternalServerError, "transfer_failed", ledger.ErrTransferFailed.Error()
	case errors.Is(err, ledger.ErrStoreUnavailable):
		status, code, msg = http.StatusServiceUnavailable, "store_unavailable", ledger.ErrStoreUnavailable.Error()
	default:
		msg = "internal error"
	}

	WriteError(w, status, code, msg, nil)
}
