package transit

import (
	"errors"
)

var (
	// ErrNotFound means a well formed key matched nothing: an unknown
	// trip, a marker absent from a trip's stop list, a route with no
	// shape. Wrapped errors carry the failing key.
	ErrNotFound = errors.New("not found")

	// ErrBadInput means a required key failed validation at the entry of
	// a public operation. Nothing was computed.
	ErrBadInput = errors.New("bad input")
)
