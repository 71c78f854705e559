package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoSession       = errors.New("no such session")
	ErrNoMessage       = errors.New("no such message in session")
	ErrNothingToRevert = errors.New("no removed session to revert")
	ErrRevertExpired   = errors.New("revert window has elapsed")
)
