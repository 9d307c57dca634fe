package models

import "errors"

// Shared failure taxonomy. Handlers map these onto HTTP status codes;
// everything else is treated as a storage failure (500) and logged.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrInvalidRequestType = errors.New("invalid request type")
)
