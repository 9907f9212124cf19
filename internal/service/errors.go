package service

import "errors"

// Domain errors. Handlers map these to HTTP status codes.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero with at most 4 decimal places")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrCurrencyMismatch    = errors.New("currency does not match account")
	ErrConcurrentUpdate    = errors.New("account is being updated concurrently, try again")
)
