package errors

import (
	"errors"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrDuplicateAccount   = errors.New("account already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenReused        = errors.New("refresh token reused or revoked")
	ErrRateLimited        = errors.New("too many requests")
)
