package state

import "errors"

var (
	// ErrNoUser is returned when a mutating operation is called without an
	// authenticated user. It signals a programming error in the caller.
	ErrNoUser = errors.New("no authenticated user")

	// ErrInvalidDraft is returned when a story submission is missing fields.
	ErrInvalidDraft = errors.New("invalid story draft")

	// ErrInvalidCredentials is returned when login or signup input is empty.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrFavoritePending is returned when a favorite toggle for a story is
	// requested while another toggle for the same story is still in flight.
	ErrFavoritePending = errors.New("favorite change already in progress")

	// ErrMalformedURL is returned when a story URL has no usable host.
	ErrMalformedURL = errors.New("malformed url")
)
