// ABOUTME: Common storage errors
// ABOUTME: Enables consistent error handling across storage implementations

package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotFinalized is returned when saving a session that is still idle or recording.
var ErrNotFinalized = errors.New("session is not finalized")

// ErrAmbiguous is returned when an ID prefix matches more than one session.
var ErrAmbiguous = errors.New("ambiguous session reference")
