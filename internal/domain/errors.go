// internal/domain/errors.go
package domain

import "errors"

var (
	ErrNotFound          = errors.New("ticket not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientValue = errors.New("value not enough to cover price and fee")
	ErrPriceTooHigh      = errors.New("price can't be higher than base price")
	ErrAlreadyUsed       = errors.New("ticket already used")
	ErrAlreadyBlocked    = errors.New("ticket blocked")
	ErrNotReady          = errors.New("ticket not ready")
	ErrPaused            = errors.New("transfers paused")
	ErrNotPaused         = errors.New("transfers not paused")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrNotListed         = errors.New("ticket not listed for resale")
	ErrWrongOwner        = errors.New("transfer from incorrect owner")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownRole       = errors.New("unknown role")
	ErrAlreadyMinted     = errors.New("ticket already minted")
	ErrSelfApproval      = errors.New("approval to current owner")
)
