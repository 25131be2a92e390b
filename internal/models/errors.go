package models

import "errors"

// Sentinel errors shared by every storage backend.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrContactNotFound = errors.New("contact not found")
)
