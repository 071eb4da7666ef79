// internal/marketplace/errors.go
package marketplace

import (
	"errors"
	"net/http"

	"realticket/internal/domain"
	"realticket/internal/eventstore"
)

var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrNotFound, "not_found", http.StatusNotFound},
	{domain.ErrUnauthorized, "unauthorized", http.StatusForbidden},
	{domain.ErrInsufficientValue, "insufficient_value", http.StatusPaymentRequired},
	{domain.ErrPriceTooHigh, "price_too_high", http.StatusUnprocessableEntity},
	{domain.ErrAlreadyUsed, "already_used", http.StatusConflict},
	{domain.ErrAlreadyBlocked, "already_blocked", http.StatusConflict},
	{domain.ErrNotReady, "not_ready", http.StatusConflict},
	{domain.ErrPaused, "paused", http.StatusLocked},
	{domain.ErrNotPaused, "not_paused", http.StatusConflict},
	{domain.ErrCapacityExceeded, "capacity_exceeded", http.StatusConflict},
	{domain.ErrIndexOutOfRange, "index_out_of_range", http.StatusNotFound},
	{domain.ErrNotListed, "not_listed", http.StatusConflict},
	{domain.ErrWrongOwner, "wrong_owner", http.StatusConflict},
	{domain.ErrInvalidAddress, "invalid_address", http.StatusUnprocessableEntity},
	{domain.ErrInvalidAmount, "invalid_amount", http.StatusUnprocessableEntity},
	{domain.ErrUnknownRole, "unknown_role", http.StatusNotFound},
	{domain.ErrAlreadyMinted, "already_minted", http.StatusConflict},
	{domain.ErrSelfApproval, "self_approval", http.StatusUnprocessableEntity},
	{eventstore.ErrConcurrencyConflict, "conflict", http.StatusConflict},
	{eventstore.ErrInvalidVersion, "invalid_version", http.StatusBadRequest},
}

// ErrorCode maps an operation error to a stable code and HTTP status.
func ErrorCode(err error) (string, int) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.status
		}
	}
	return "internal_error", http.StatusInternalServerError
}

// ErrorForCode is the inverse of ErrorCode: it returns the sentinel behind a wire code, or nil.
func ErrorForCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}
