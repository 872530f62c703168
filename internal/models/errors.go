package models

import "errors"

var (
	// ErrReadHosts means the system hosts file could not be read.
	ErrReadHosts = errors.New("read hosts")
	// ErrElevationCancelled means the user declined the privilege prompt.
	ErrElevationCancelled = errors.New("elevation cancelled")
	// ErrElevationFailed covers subprocess and verification failures.
	ErrElevationFailed = errors.New("elevation failed")
	// ErrSandboxed is wrapped together with ErrElevationFailed when the
	// hosts file lives on a read-only filesystem.
	ErrSandboxed = errors.New("read-only filesystem")
	// ErrStorageConflict means a stale revision was rejected by the store.
	ErrStorageConflict = errors.New("storage conflict")
	// ErrStorageFailure is any other persistence error.
	ErrStorageFailure = errors.New("storage failure")

	ErrNotFound       = errors.New("entry not found")
	ErrEmptySelection = errors.New("no entries selected")
	ErrNotConfirmed   = errors.New("not confirmed")
	ErrInvalidState   = errors.New("operation not allowed in current view")
	ErrInvalidName    = errors.New("invalid entry name")
)
