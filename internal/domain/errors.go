package domain

import "errors"

// Domain error taxonomy. Services return these (possibly wrapped); the API
// layer is the only place they are translated to HTTP status codes.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrBalanceOverflow   = errors.New("amount would overflow the wallet balance")
	ErrUserNotFound      = errors.New("user not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
