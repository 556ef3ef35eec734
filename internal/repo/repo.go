package repo

import "errors"

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional update matched no rows because
// the row was already in the target state.
var ErrConflict = errors.New("conflicting state")
