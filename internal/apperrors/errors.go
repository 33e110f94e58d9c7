package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceTypeInvalid = errors.New("invoice type is invalid")
	ErrAmountNotPositive  = errors.New("amount must be positive")
	ErrReceiverEmpty      = errors.New("receiver name must not be empty")

	ErrLedgerConflict = errors.New("ledger append conflicted with concurrent write")
)
