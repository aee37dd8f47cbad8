// Package group interprets the single integer value of an enum or flag field
// against a versioned constant set.
//
// A Flags value is a bitmask where any number of constants may be active. An
// Enum value has exactly one active constant, found by reverse lookup. Both
// resolve constants at the version they are bound to, since MythTV renumbered
// several flags and enum values between protocol revisions.
package group

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// UnknownName is reported by Enum.Name when the value matches no constant
// known at the bound version.
const UnknownName = "UNKNOWN"

// ErrUnknownConstant is returned when a constant name is not valid at the
// bound version.
var ErrUnknownConstant = errors.New("constant not available at version")

// Flags is a bitmask value bound to a constant set and version.
// Not safe for concurrent writers.
type Flags struct {
	cat     *catalog.Catalog
	set     string
	version versioning.Version
	value   int64
}

// NewFlags binds value to the flag set key at version v.
func NewFlags(cat *catalog.Catalog, key string, v versioning.Version, value int64) *Flags {
	return &Flags{cat: cat, set: key, version: v, value: value}
}

// Value returns the raw bitmask.
func (f *Flags) Value() int64 { return f.value }

// Version returns the version the value is interpreted at.
func (f *Flags) Version() versioning.Version { return f.version }

// SetKey returns the constant set key.
func (f *Flags) SetKey() string { return f.set }

// IsSet reports whether the named flag's bit is present. Flags that do not
// exist at the bound version are never set.
func (f *Flags) IsSet(name string) bool {
	bit, ok := f.cat.ConstantValue(f.set, name, f.version)
	if !ok || bit == 0 {
		return false
	}
	return f.value&bit != 0
}

// Set turns the named flag on and reports whether the value changed.
func (f *Flags) Set(name string) bool {
	bit, ok := f.cat.ConstantValue(f.set, name, f.version)
	if !ok {
		return false
	}
	old := f.value
	f.value |= bit
	return old != f.value
}

// Clear turns the named flag off and reports whether the value changed.
func (f *Flags) Clear(name string) bool {
	bit, ok := f.cat.ConstantValue(f.set, name, f.version)
	if !ok {
		return false
	}
	old := f.value
	f.value &^= bit
	return old != f.value
}

// Active returns the names of all set flags in declaration order.
func (f *Flags) Active() []string {
	var out []string
	for _, k := range f.cat.ConstantsAt(f.set, f.version) {
		if f.IsSet(k.Name) {
			out = append(out, k.Name)
		}
	}
	return out
}

// UnknownBits returns the bits not covered by any constant at this version.
func (f *Flags) UnknownBits() int64 {
	rest := f.value
	for _, k := range f.cat.ConstantsAt(f.set, f.version) {
		if bit, ok := k.RawAt(f.version); ok {
			rest &^= bit
		}
	}
	return rest
}

// Equal reports whether both values belong to the same set and version and
// carry the same bits.
func (f *Flags) Equal(o *Flags) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.set == o.set && f.version == o.version && f.value == o.value
}

// Clone returns an independent copy.
func (f *Flags) Clone() *Flags {
	cp := *f
	return &cp
}

// String renders the active flags joined by "|", with leftover bits in hex.
func (f *Flags) String() string {
	parts := f.Active()
	if rest := f.UnknownBits(); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", rest))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// Enum is a one-of-many value bound to a constant set and version.
// Not safe for concurrent writers.
type Enum struct {
	cat     *catalog.Catalog
	set     string
	version versioning.Version
	value   int64
}

// NewEnum binds value to the enum set key at version v.
func NewEnum(cat *catalog.Catalog, key string, v versioning.Version, value int64) *Enum {
	return &Enum{cat: cat, set: key, version: v, value: value}
}

// Value returns the raw value.
func (e *Enum) Value() int64 { return e.value }

// Version returns the version the value is interpreted at.
func (e *Enum) Version() versioning.Version { return e.version }

// SetKey returns the constant set key.
func (e *Enum) SetKey() string { return e.set }

// Constant returns the active constant. It returns false for values newer
// backends send that this library does not know yet.
func (e *Enum) Constant() (catalog.Constant, bool) {
	return e.cat.ConstantForValue(e.set, e.version, e.value)
}

// Name returns the active constant's name or UnknownName.
func (e *Enum) Name() string {
	if k, ok := e.Constant(); ok {
		return k.Name
	}
	return UnknownName
}

// IsUnknown reports whether the value matches no known constant.
func (e *Enum) IsUnknown() bool {
	_, ok := e.Constant()
	return !ok
}

// Is reports whether name is the active constant.
func (e *Enum) Is(name string) bool {
	k, ok := e.Constant()
	return ok && k.Name == name
}

// SetEnum makes name the active constant.
func (e *Enum) SetEnum(name string) error {
	raw, ok := e.cat.ConstantValue(e.set, name, e.version)
	if !ok {
		return fmt.Errorf("%w: %s.%s at version %s", ErrUnknownConstant, e.set, name, e.version)
	}
	e.value = raw
	return nil
}

// Equal reports whether both values belong to the same set and version and
// carry the same raw value.
func (e *Enum) Equal(o *Enum) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.set == o.set && e.version == o.version && e.value == o.value
}

// Clone returns an independent copy.
func (e *Enum) Clone() *Enum {
	cp := *e
	return &cp
}

// String returns the constant name, or UNKNOWN(value).
func (e *Enum) String() string {
	if k, ok := e.Constant(); ok {
		return k.Name
	}
	return fmt.Sprintf("%s(%d)", UnknownName, e.value)
}
