// Package codec converts between raw MythTV tokens and typed Go values.
//
// A token is one string element of a protocol packet or database row. Its
// Go type follows the catalog.FieldType of the field it is mapped to:
//
//	TypeString  -> string
//	TypeInteger -> int
//	TypeLong    -> int64
//	TypeBoolean -> bool
//	TypeFloat   -> float64
//	TypeDate    -> time.Time
//	TypeEnum    -> *group.Enum
//	TypeFlags   -> *group.Flags
//
// A nil token decodes to nil (or to the field default), and nil encodes to
// the empty string, which is the wire form of "absent". Malformed tokens are
// always reported as *DecodeError; they are never coerced to zero.
//
// Dates depend on the UTC cutover. Before it, MythTV wrote wall-clock local
// time, both as text and as seconds counted in the local calendar. After it
// every timestamp is UTC. The same token therefore names a different instant
// on either side of the cutover.
package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/group"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// UTC cutover thresholds. MythTV 0.26 moved all stored and transmitted
// timestamps to UTC with protocol 75 and database schema 1307.
const (
	ProtocolUTCCutover versioning.Version = 75
	SchemaUTCCutover   versioning.Version = 1307
)

// Date layouts understood on decode.
const (
	LayoutSQL  = "2006-01-02 15:04:05"
	LayoutISO  = "2006-01-02T15:04:05"
	LayoutDate = "2006-01-02"
)

// mysqlZeroDate is how MySQL renders an unset DATETIME column.
const mysqlZeroDate = "0000-00-00"

// DateStyle selects the encoded form of dates.
type DateStyle int

// Date styles.
const (
	// DateEpoch writes seconds since 1970, as the network protocol does.
	DateEpoch DateStyle = iota
	// DateSQL writes "2006-01-02 15:04:05", as database columns do.
	DateSQL
	// DateISO writes "2006-01-02T15:04:05".
	DateISO
)

// Options carry the per-record context a token is decoded in.
type Options struct {
	Version       versioning.Version
	SchemaVersion versioning.Version
	UTC           bool
	DateStyle     DateStyle
}

// UseUTC reports whether timestamps are UTC for the given versions. Protocol
// records switch with the protocol version or, when known, the schema
// version; database rows switch with the schema version only. A zero schema
// version means unknown.
func UseUTC(domain catalog.Domain, version, schema versioning.Version) bool {
	schemaUTC := schema == versioning.Latest || schema >= SchemaUTCCutover
	if domain == catalog.DomainSchema {
		return schemaUTC
	}
	return version == versioning.Latest || version >= ProtocolUTCCutover || schemaUTC
}

// Codec decodes and encodes tokens. It is safe for concurrent use.
type Codec struct {
	cat *catalog.Catalog
	loc *time.Location
}

// Option configures a Codec.
type Option func(*Codec)

// WithLocation sets the zone used for pre-cutover local timestamps.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Codec) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// New creates a codec resolving enum and flag groups against cat.
func New(cat *catalog.Catalog, opts ...Option) *Codec {
	c := &Codec{cat: cat, loc: time.Local}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog used for group fields.
func (c *Codec) Catalog() *catalog.Catalog {
	return c.cat
}

// Location returns the zone used for local timestamps.
func (c *Codec) Location() *time.Location {
	return c.loc
}

// Decode converts token into the Go value for f.
func (c *Codec) Decode(f catalog.Field, opts Options, token *string) (any, error) {
	if token == nil {
		if f.Default == nil {
			if f.Type == catalog.TypeBoolean {
				return false, nil
			}
			return nil, nil
		}
		token = f.Default
	}
	s := *token

	fail := func(err error) (any, error) {
		return nil, &DecodeError{Set: f.Set, Field: f.Name, Token: s, Type: f.Type, Err: err}
	}

	switch f.Type {
	case catalog.TypeString:
		return s, nil

	case catalog.TypeInteger:
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return fail(err)
		}
		return int(n), nil

	case catalog.TypeLong:
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fail(err)
		}
		return n, nil

	case catalog.TypeBoolean:
		return s == "1" || strings.EqualFold(s, "true"), nil

	case catalog.TypeFloat:
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fail(err)
		}
		return n, nil

	case catalog.TypeDate:
		t, ok, err := c.decodeDate(f, opts, s)
		if err != nil {
			return fail(err)
		}
		if !ok {
			return nil, nil
		}
		return t, nil

	case catalog.TypeEnum, catalog.TypeFlags:
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fail(err)
		}
		if f.Type == catalog.TypeEnum {
			return group.NewEnum(c.cat, f.Group, opts.Version, n), nil
		}
		return group.NewFlags(c.cat, f.Group, opts.Version, n), nil

	default:
		return fail(fmt.Errorf("unknown field type %d", f.Type))
	}
}

// zone returns the location timestamps are interpreted in.
func (c *Codec) zone(opts Options) *time.Location {
	if opts.UTC {
		return time.UTC
	}
	return c.loc
}

func (c *Codec) decodeDate(f catalog.Field, opts Options, s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, mysqlZeroDate) {
		return time.Time{}, false, nil
	}
	loc := c.zone(opts)

	if f.Layout == "" && isInteger(s) {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false, err
		}
		wall := time.Unix(secs, 0).UTC()
		if loc == time.UTC {
			return wall, true, nil
		}
		// Seconds counted in the local calendar: keep the wall clock, swap the zone.
		return time.Date(wall.Year(), wall.Month(), wall.Day(),
			wall.Hour(), wall.Minute(), wall.Second(), 0, loc), true, nil
	}

	layouts := []string{time.RFC3339, LayoutISO, LayoutSQL, LayoutDate}
	if f.Layout != "" {
		layouts = []string{f.Layout}
	}
	var firstErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, true, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, false, firstErr
}

func isInteger(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Encode converts value into the token for f.
func (c *Codec) Encode(f catalog.Field, opts Options, value any) (string, error) {
	if value == nil {
		return "", nil
	}

	fail := func(err error) (string, error) {
		return "", &EncodeError{Set: f.Set, Field: f.Name, Value: value, Type: f.Type, Err: err}
	}

	switch f.Type {
	case catalog.TypeString:
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
		return fail(ErrUnsupportedValue)

	case catalog.TypeInteger:
		n, ok := toInt64(value)
		if !ok {
			return fail(ErrUnsupportedValue)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return fail(ErrOutOfRange)
		}
		return strconv.FormatInt(n, 10), nil

	case catalog.TypeLong:
		n, ok := toInt64(value)
		if !ok {
			return fail(ErrUnsupportedValue)
		}
		return strconv.FormatInt(n, 10), nil

	case catalog.TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return fail(ErrUnsupportedValue)
		}
		if b {
			return "1", nil
		}
		return "0", nil

	case catalog.TypeFloat:
		switch v := value.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
		}
		if n, ok := toInt64(value); ok {
			return strconv.FormatInt(n, 10), nil
		}
		return fail(ErrUnsupportedValue)

	case catalog.TypeDate:
		var t time.Time
		switch v := value.(type) {
		case time.Time:
			t = v
		case *time.Time:
			if v == nil {
				return "", nil
			}
			t = *v
		default:
			return fail(ErrUnsupportedValue)
		}
		if t.IsZero() {
			return "", nil
		}
		return c.encodeDate(f, opts, t), nil

	case catalog.TypeEnum:
		switch v := value.(type) {
		case *group.Enum:
			if v == nil {
				return "", nil
			}
			return strconv.FormatInt(v.Value(), 10), nil
		case string:
			raw, ok := c.cat.ConstantValue(f.Group, v, opts.Version)
			if !ok {
				return fail(group.ErrUnknownConstant)
			}
			return strconv.FormatInt(raw, 10), nil
		}
		if n, ok := toInt64(value); ok {
			return strconv.FormatInt(n, 10), nil
		}
		return fail(ErrUnsupportedValue)

	case catalog.TypeFlags:
		if v, ok := value.(*group.Flags); ok {
			if v == nil {
				return "", nil
			}
			return strconv.FormatInt(v.Value(), 10), nil
		}
		if n, ok := toInt64(value); ok {
			return strconv.FormatInt(n, 10), nil
		}
		return fail(ErrUnsupportedValue)

	default:
		return fail(errors.New("unknown field type"))
	}
}

func (c *Codec) encodeDate(f catalog.Field, opts Options, t time.Time) string {
	local := t.In(c.zone(opts))
	if f.Layout != "" {
		return local.Format(f.Layout)
	}
	switch opts.DateStyle {
	case DateSQL:
		return local.Format(LayoutSQL)
	case DateISO:
		return local.Format(LayoutISO)
	default:
		// Seconds of the wall clock in the chosen zone, counted as if it were UTC.
		wall := time.Date(local.Year(), local.Month(), local.Day(),
			local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
		return strconv.FormatInt(wall.Unix(), 10)
	}
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}
