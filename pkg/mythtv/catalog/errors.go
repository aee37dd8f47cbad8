package catalog

import "errors"

var (
	// ErrConfiguration wraps every problem found in a static declaration.
	ErrConfiguration = errors.New("field catalog configuration error")

	// ErrUnknownFieldSet indicates a lookup for a set that was never registered.
	ErrUnknownFieldSet = errors.New("unknown field set")

	// ErrUnknownConstantSet indicates a lookup for an unregistered constant set.
	ErrUnknownConstantSet = errors.New("unknown constant set")
)
