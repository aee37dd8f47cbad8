package codec

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
)

// ErrUnsupportedValue indicates a Go value that cannot be encoded as the
// field's type.
var ErrUnsupportedValue = errors.New("unsupported value type")

// ErrOutOfRange indicates a numeric value that does not fit the field type.
var ErrOutOfRange = errors.New("value out of range")

// DecodeError reports a token that could not be decoded into its field type.
type DecodeError struct {
	Set   string
	Field string
	Token string
	Type  catalog.FieldType
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s.%s: token %q is not a valid %s: %v", e.Set, e.Field, e.Token, e.Type, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a value that could not be encoded for its field type.
type EncodeError struct {
	Set   string
	Field string
	Value any
	Type  catalog.FieldType
	Err   error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding %s.%s: value %v (%T) cannot be encoded as %s: %v",
		e.Set, e.Field, e.Value, e.Value, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}
