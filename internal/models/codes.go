package models

import "errors"

// errorCodes pairs each sentinel with the stable code used on the wire.
// Earlier rows win when an error wraps several sentinels.
var errorCodes = []struct {
	code string
	err  error
}{
	{"cancelled", ErrElevationCancelled},
	{"elevation_failed", ErrElevationFailed},
	{"conflict", ErrStorageConflict},
	{"not_found", ErrNotFound},
	{"confirm", ErrNotConfirmed},
	{"invalid_name", ErrInvalidName},
	{"invalid_state", ErrInvalidState},
	{"empty_selection", ErrEmptySelection},
	{"read_hosts", ErrReadHosts},
	{"storage", ErrStorageFailure},
}

// CodeInternal is the code of errors outside the taxonomy.
const CodeInternal = "internal"

// ErrorCode returns the wire code for err.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorForCode returns the sentinel for a wire code, or nil if unknown.
func ErrorForCode(code string) error {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
