package service

import "errors"

// Request-scoped failures surfaced to callers.
var (
	ErrNotFound     = errors.New("station not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrDownstream   = errors.New("downstream failure")
)
