package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidBaseline = errors.New("invalid baseline timeline")
)
