package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrShopInactive        = errors.New("shop inactive")
	ErrProviderFailure     = errors.New("provider failure")
	ErrStoreUnavailable    = errors.New("backing store unavailable")
)
