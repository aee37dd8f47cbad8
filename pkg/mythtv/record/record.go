// Package record binds a field set, a version and a raw token list into a
// property-aware record.
//
// Tokens are decoded lazily on access and re-encoded on every typed set, so
// a record can be forwarded untouched or edited field by field. Fields that
// do not exist at the record's version read as nil and ignore writes.
//
// Concrete shapes (program info, recording rules, ...) embed *Record and are
// produced by factories registered in a Registry.
package record

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/codec"
	"github.com/jmylchreest/gomyth/pkg/mythtv/group"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// Typed is implemented by *Record and by every type embedding it.
type Typed interface {
	Base() *Record
}

// Record is a positional token list interpreted through a field set at a
// fixed version. Records are not safe for concurrent writers.
type Record struct {
	reg     *Registry
	key     string
	domain  catalog.Domain
	version versioning.Version
	schema  versioning.Version
	tokens  []*string

	populated bool
}

// FieldValue pairs a field with its decoded value.
type FieldValue struct {
	Field catalog.Field
	Value any
}

// Base returns r. It is promoted to types embedding *Record.
func (r *Record) Base() *Record { return r }

// Key returns the field set key.
func (r *Record) Key() string { return r.key }

// Domain returns the version domain of the field set.
func (r *Record) Domain() catalog.Domain { return r.domain }

// Version returns the version the record is laid out for. For database rows
// this is the schema version.
func (r *Record) Version() versioning.Version { return r.version }

// SchemaVersion returns the database schema version, zero when unknown.
func (r *Record) SchemaVersion() versioning.Version { return r.schema }

// Len returns the number of tokens.
func (r *Record) Len() int { return len(r.tokens) }

// IsPopulated reports whether any set operation has happened since the
// record was created empty.
func (r *Record) IsPopulated() bool { return r.populated }

// UTC reports whether dates in this record are UTC.
func (r *Record) UTC() bool {
	return codec.UseUTC(r.domain, r.version, r.schema)
}

// Fields returns the fields valid at the record's version, in token order.
func (r *Record) Fields() []catalog.Field {
	return r.reg.cat.ValidFields(r.key, r.version)
}

// Has reports whether the named field exists at the record's version.
func (r *Record) Has(name string) bool {
	return r.position(name) >= 0
}

func (r *Record) options() codec.Options {
	style := codec.DateEpoch
	if r.domain == catalog.DomainSchema {
		style = codec.DateSQL
	}
	return codec.Options{
		Version:       r.version,
		SchemaVersion: r.schema,
		UTC:           r.UTC(),
		DateStyle:     style,
	}
}

func (r *Record) position(name string) int {
	return r.reg.cat.Position(r.key, name, r.version)
}

func (r *Record) field(pos int) catalog.Field {
	f, _ := r.reg.cat.FieldByPosition(r.key, r.version, pos)
	return f
}

// Get decodes the named field. A field absent at this version yields nil.
func (r *Record) Get(name string) (any, error) {
	pos := r.position(name)
	if pos < 0 {
		return nil, nil
	}
	return r.reg.codec.Decode(r.field(pos), r.options(), r.tokens[pos])
}

// Set encodes value into the named field. Setting a field that does not
// exist at this version is a no-op. A nil value clears the token.
func (r *Record) Set(name string, value any) error {
	pos := r.position(name)
	if pos < 0 {
		r.reg.logger.Debug("ignoring set of field not available at version",
			slog.String("field_set", r.key),
			slog.String("field", name),
			slog.String("version", r.version.String()))
		return nil
	}
	r.populated = true
	if value == nil {
		r.tokens[pos] = nil
		return nil
	}
	token, err := r.reg.codec.Encode(r.field(pos), r.options(), value)
	if err != nil {
		return err
	}
	r.tokens[pos] = &token
	return nil
}

// Raw returns the literal token of the named field. The second result is
// false when the field does not exist at this version.
func (r *Record) Raw(name string) (*string, bool) {
	pos := r.position(name)
	if pos < 0 {
		return nil, false
	}
	return r.tokens[pos], true
}

// SetRaw stores token verbatim, bypassing the codec. It reports whether the
// field exists at this version.
func (r *Record) SetRaw(name string, token *string) bool {
	pos := r.position(name)
	if pos < 0 {
		return false
	}
	r.populated = true
	if token == nil {
		r.tokens[pos] = nil
		return true
	}
	s := *token
	r.tokens[pos] = &s
	return true
}

// Tokens returns the wire form of the record. Nil tokens become "".
func (r *Record) Tokens() []string {
	out := make([]string, len(r.tokens))
	for i, t := range r.tokens {
		if t != nil {
			out[i] = *t
		}
	}
	return out
}

// NullableTokens returns a copy of the tokens keeping nil entries, as
// needed for database writes.
func (r *Record) NullableTokens() []*string {
	out := make([]*string, len(r.tokens))
	for i, t := range r.tokens {
		if t != nil {
			s := *t
			out[i] = &s
		}
	}
	return out
}

// Values decodes every field in token order.
func (r *Record) Values() ([]FieldValue, error) {
	fields := r.Fields()
	out := make([]FieldValue, 0, len(fields))
	opts := r.options()
	for i, f := range fields {
		v, err := r.reg.codec.Decode(f, opts, r.tokens[i])
		if err != nil {
			return nil, err
		}
		out = append(out, FieldValue{Field: f, Value: v})
	}
	return out, nil
}

// Validate decodes every token and returns the first decode error.
func (r *Record) Validate() error {
	_, err := r.Values()
	return err
}

// Clone returns a deep copy built through the registered factory.
func (r *Record) Clone() (Typed, error) {
	factory, ok := r.reg.factory(r.key)
	if !ok {
		return nil, fmt.Errorf("cloning %s: %w", r.key, ErrNoFactory)
	}
	cp := &Record{
		reg:       r.reg,
		key:       r.key,
		domain:    r.domain,
		version:   r.version,
		schema:    r.schema,
		tokens:    r.NullableTokens(),
		populated: r.populated,
	}
	return factory(cp), nil
}

// Equal reports whether o has the same field set, versions and decoded
// values. Tokens are not compared directly since equivalent values can be
// written differently.
func (r *Record) Equal(o Typed) bool {
	if o == nil {
		return false
	}
	other := o.Base()
	if other == nil || r.key != other.key || r.version != other.version || r.schema != other.schema {
		return false
	}
	a, err := r.Values()
	if err != nil {
		return false
	}
	b, err := other.Values()
	if err != nil || len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case *group.Enum:
		bv, ok := b.(*group.Enum)
		return ok && av.Equal(bv)
	case *group.Flags:
		bv, ok := b.(*group.Flags)
		return ok && av.Equal(bv)
	}
	return reflect.DeepEqual(a, b)
}

// String renders the record as "Key@version{NAME=token, ...}".
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.key)
	b.WriteString("@")
	b.WriteString(r.version.String())
	b.WriteString("{")
	for i, f := range r.Fields() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString("=")
		if t := r.tokens[i]; t != nil {
			b.WriteString(*t)
		} else {
			b.WriteString("<nil>")
		}
	}
	b.WriteString("}")
	return b.String()
}
