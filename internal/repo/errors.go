package repo

import "errors"

var (
	// ErrNotFound reports a write targeting a schedule that is not present.
	ErrNotFound = errors.New("schedule not found")

	// ErrAlreadyExists reports a storage uniqueness violation on create. It is
	// the authoritative conflict signal under concurrent writers; existence
	// pre-checks are advisory only.
	ErrAlreadyExists = errors.New("schedule already exists")
)
