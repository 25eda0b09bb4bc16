package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrInvalidLimit      = errors.New("invalid insights limit")
	ErrRelayUnavailable  = errors.New("provider credentials missing")
)
