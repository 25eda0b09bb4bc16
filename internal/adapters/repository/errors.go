package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNotFound     = errors.New("assessment not found")
	ErrInvalidID    = errors.New("invalid assessment id")
	ErrInvalidLimit = errors.New("invalid list limit")
	ErrInvalidInput = errors.New("invalid assessment record")
)
