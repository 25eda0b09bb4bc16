package questionnaire

import "errors"

// Sentinel kinds for questionnaire errors.
var (
	ErrInvalidBank  = errors.New("invalid question bank")
	ErrUnknownItem  = errors.New("unknown item")
	ErrInvalidLevel = errors.New("invalid answer level")
	ErrIncomplete   = errors.New("incomplete answers")
)
