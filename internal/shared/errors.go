// Package shared holds error values checked across package boundaries.
package shared

import "errors"

var (
	// ErrUserExists is returned by storage when a username is already taken.
	ErrUserExists = errors.New("username already exists")

	// ErrNotFound covers both a missing path and a path owned by someone
	// else; callers must not be able to tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a malformed create payload.
	ErrValidation = errors.New("validation error")

	// ErrGeneration marks any failure of the path generation service.
	ErrGeneration = errors.New("generation failed")
)
