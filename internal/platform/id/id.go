package id

import "github.com/google/uuid"

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// UUID mints random v4 identifiers. Session ids travel in URLs and
// file names, so the canonical dashed form is kept as-is.
type UUID struct{}

func (UUID) New() string {
	return uuid.NewString()
}
