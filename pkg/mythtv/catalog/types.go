package catalog

import (
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// FieldType is the typed representation a raw token decodes to.
type FieldType int

// Field types.
const (
	TypeString FieldType = iota
	TypeInteger
	TypeLong
	TypeBoolean
	TypeFloat
	TypeDate
	TypeEnum
	TypeFlags
)

// String returns the type name used in diagnostics and error messages.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeInteger:
		return "Integer"
	case TypeLong:
		return "Long"
	case TypeBoolean:
		return "Boolean"
	case TypeFloat:
		return "Float"
	case TypeDate:
		return "Date"
	case TypeEnum:
		return "EnumGroup"
	case TypeFlags:
		return "FlagGroup"
	default:
		return "Unknown"
	}
}

// IsGroup reports whether the type refers to a constant set.
func (t FieldType) IsGroup() bool {
	return t == TypeEnum || t == TypeFlags
}

// Domain names the version space a field set is declared against.
type Domain int

// Version domains.
const (
	// DomainProtocol fields are indexed by the negotiated protocol version.
	DomainProtocol Domain = iota
	// DomainSchema fields are indexed by the database schema version.
	DomainSchema
)

// String returns "protocol" or "schema".
func (d Domain) String() string {
	if d == DomainSchema {
		return "schema"
	}
	return "protocol"
}

// Field describes one logical field of a field set.
//
// A zero Range means the field exists in every version.
type Field struct {
	// Set is the key of the owning field set, filled in at registration.
	Set string

	Name  string
	Range versioning.Range
	Type  FieldType

	// Default is decoded in place of a missing (nil) token.
	Default *string

	// Column is the database column backing the field, for schema sets.
	Column string

	// Group is the constant set key for TypeEnum and TypeFlags fields.
	Group string

	// Layout overrides the date layout for TypeDate fields.
	Layout string
}

// HasDefault reports whether a default value was declared.
func (f Field) HasDefault() bool {
	return f.Default != nil
}

// ColumnName returns Column, falling back to Name.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// DefaultOf returns a pointer to s for use as Field.Default.
func DefaultOf(s string) *string {
	return &s
}

// FieldSet is the ordered catalog of fields for one response or row shape.
// Declaration order is the positional contract with the backend and must
// never be rearranged.
type FieldSet struct {
	Key    string
	Domain Domain
	Fields []Field

	// Table is the database table for schema sets.
	Table string
}

// GroupKind distinguishes one-of-many from any-of-many constant sets.
type GroupKind int

// Group kinds.
const (
	KindEnum GroupKind = iota
	KindFlags
)

// String returns "enum" or "flags".
func (k GroupKind) String() string {
	if k == KindFlags {
		return "flags"
	}
	return "enum"
}

// Constant is one named enum value or flag bit.
//
// A zero Range means the constant exists in every version.
type Constant struct {
	Set   string
	Name  string
	Range versioning.Range
	Value versioning.Value
}

// RawAt resolves the raw value of the constant at version v.
func (c Constant) RawAt(v versioning.Version) (int64, bool) {
	if !c.Range.Contains(v) {
		return 0, false
	}
	return c.Value.At(v)
}

// ConstantSet is the static table of constants for one enum or flag group.
type ConstantSet struct {
	Key       string
	Kind      GroupKind
	Constants []Constant
}
