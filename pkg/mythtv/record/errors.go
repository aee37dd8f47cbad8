package record

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

var (
	// ErrNoFactory is returned when a record type has no registered factory,
	// so it can neither be constructed from tokens nor cloned.
	ErrNoFactory = errors.New("no factory registered for record type")

	// ErrUnknownFieldSet is returned when a factory is registered for, or a
	// record requested of, a field set the catalog does not know.
	ErrUnknownFieldSet = catalog.ErrUnknownFieldSet

	// ErrUnexpectedType is returned by As when the factory produced a
	// different Go type than requested.
	ErrUnexpectedType = errors.New("unexpected record type")
)

// StructuralMismatchError reports a token list whose length does not match
// the number of fields valid at the record's version. It points at a version
// negotiation or declaration bug, so retrying cannot help.
type StructuralMismatchError struct {
	Set      string
	Version  versioning.Version
	Expected int
	Got      int
}

// Error implements the error interface.
func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("structural mismatch for %s at version %s: expected %d tokens, got %d",
		e.Set, e.Version, e.Expected, e.Got)
}
