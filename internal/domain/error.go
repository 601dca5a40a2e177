package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrRecordLocked    = errors.New("user record is locked by another event")
	ErrInvalidArgument = errors.New("invalid argument")
)
