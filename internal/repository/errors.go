package repository

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when a username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrCarNotFound is returned when no car matches the id within the
	// requesting owner's scope.
	ErrCarNotFound = errors.New("car not found")
)
