package repository

import "errors"

var (
	// ErrResultNotFound indicates no stored record matched the image ID.
	// This is an expected outcome, not a system fault.
	ErrResultNotFound = errors.New("analysis result not found")

	// ErrStorageUnavailable indicates the backing store rejected or
	// could not complete an operation.
	ErrStorageUnavailable = errors.New("result storage unavailable")

	// ErrInvalidTransition indicates a status update that would move a
	// record backward (e.g. completed -> pending).
	ErrInvalidTransition = errors.New("invalid status transition")
)
