package store

import "errors"

// ErrDuplicate and ErrNotFound are the two sentinel conditions a store can
// report on a keyed mutation; callers translate them into the engine's
// Kind-tagged Error at the API boundary.
var (
	ErrDuplicate = errors.New("store: duplicate key")
	ErrNotFound  = errors.New("store: key not found")
)
