package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidQuantity indicates a cart line quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)
