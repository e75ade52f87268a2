package core

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// ID is a KSUID-backed identifier used for runs, sessions, and events.
type ID string

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is the zero value ("").
func (id ID) IsZero() bool {
	return id == ""
}

// NewID generates a new, time-sortable identifier.
func NewID() (ID, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate new ID: %w", err)
	}
	return ID(id.String()), nil
}

// MustNewID generates a new ID and panics if generation fails.
func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}

// ParseID validates and wraps an existing KSUID string.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("empty ID")
	}
	if _, err := ksuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return ID(s), nil
}
