package store

import (
	"errors"
	"fmt"
)

// ErrNotFound matches any lookup of an identifier absent from the
// addressed store. Recoverable: the caller decides whether to skip the
// referencing feature or abort the enclosing one.
var ErrNotFound = errors.New("not found")

// ErrRange matches a dense node store access outside the pre-sized
// extent. It signals a broken assumption about a contiguous, pre-known
// identifier domain and is fatal for that configuration.
var ErrRange = errors.New("index out of range")

// NotFoundError reports which entity kind and identifier was missing.
type NotFoundError struct {
	Kind string // "node", "way" or "relation"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find %s %d", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RangeError reports a dense-store access outside the reserved extent.
type RangeError struct {
	ID     int64
	Extent int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("node %d outside reserved extent %d", e.ID, e.Extent)
}

func (e *RangeError) Unwrap() error { return ErrRange }
