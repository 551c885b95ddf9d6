package domain

import "errors"

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrExpired       = errors.New("quote expired")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuoteInUse    = errors.New("quote reservation in flight")
	ErrUnavailable   = errors.New("service unavailable")
	ErrDataIntegrity = errors.New("data integrity violation")
)
