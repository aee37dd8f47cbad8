// Package versioning models the two ordered version spaces a MythTV client
// deals with: the negotiated protocol version of a backend connection and the
// schema version of the backend database.
//
// A Range answers "does this field exist at version V", and a Value answers
// "which raw integer does this constant use at version V" for enum and flag
// constants whose numbering changed between backend releases.
package versioning

import (
	"errors"
	"fmt"
	"strconv"
)

// Version is a protocol or schema version number.
type Version int

// Unbounded marks an open upper end of a Range. The same sentinel doubles as
// Latest when used as a lookup version.
const Unbounded Version = -1

// Latest asks for the newest known declaration. It compares greater than any
// concrete version.
const Latest = Unbounded

// String returns the decimal form, or "latest" for the sentinel.
func (v Version) String() string {
	if v == Latest {
		return "latest"
	}
	return strconv.Itoa(int(v))
}

// ErrInvalidRange is returned when a range starts after it ends.
var ErrInvalidRange = errors.New("invalid version range")

// ErrInvalidValue is returned for malformed versioned value declarations.
var ErrInvalidValue = errors.New("invalid versioned value")

// Range is the half-open interval [From, To). To may be Unbounded.
type Range struct {
	From Version
	To   Version
}

// Always is valid for every version.
var Always = Range{From: 0, To: Unbounded}

// NewRange validates and returns [from, to).
func NewRange(from, to Version) (Range, error) {
	if from < 0 {
		return Range{}, fmt.Errorf("%w: negative lower bound %d", ErrInvalidRange, from)
	}
	if to != Unbounded && from > to {
		return Range{}, fmt.Errorf("%w: from %d is after to %d", ErrInvalidRange, from, to)
	}
	return Range{From: from, To: to}, nil
}

// MustRange is NewRange for static declarations. It panics on a malformed
// range since that can only be a bug in the declaration itself.
func MustRange(from, to Version) Range {
	r, err := NewRange(from, to)
	if err != nil {
		panic(err)
	}
	return r
}

// Since returns [from, unbounded).
func Since(from Version) Range {
	return MustRange(from, Unbounded)
}

// Until returns [0, to).
func Until(to Version) Range {
	return MustRange(0, to)
}

// Between returns [from, to).
func Between(from, to Version) Range {
	return MustRange(from, to)
}

// Validate reports whether the range is well formed.
func (r Range) Validate() error {
	_, err := NewRange(r.From, r.To)
	return err
}

// Contains reports whether v lies in the range. Latest is only contained in
// ranges without an upper bound.
func (r Range) Contains(v Version) bool {
	if v == Latest {
		return r.To == Unbounded
	}
	return r.From <= v && (r.To == Unbounded || v < r.To)
}

// Overlaps reports whether the two ranges share at least one version.
func (r Range) Overlaps(o Range) bool {
	// r ends before o starts
	if r.To != Unbounded && r.To <= o.From {
		return false
	}
	if o.To != Unbounded && o.To <= r.From {
		return false
	}
	return true
}

// Bounded reports whether the range has an upper end.
func (r Range) Bounded() bool {
	return r.To != Unbounded
}

// String renders the range as "[from,to)".
func (r Range) String() string {
	return fmt.Sprintf("[%d,%s)", r.From, r.To)
}

// Pair binds a raw value to the version it became effective at.
type Pair struct {
	Version Version
	Raw     int64
}

// At is shorthand for a Pair literal.
func At(v Version, raw int64) Pair {
	return Pair{Version: v, Raw: raw}
}

// Value is a constant whose raw integer depends on the version. Values are
// immutable once built.
type Value struct {
	pairs []Pair
	fixed bool
}

// Fixed returns a Value that never changed across versions.
func Fixed(raw int64) Value {
	return Value{pairs: []Pair{{Version: 0, Raw: raw}}, fixed: true}
}

// NewValue builds a Value from pairs sorted ascending by version.
func NewValue(pairs ...Pair) (Value, error) {
	if len(pairs) == 0 {
		return Value{}, fmt.Errorf("%w: at least one pair required", ErrInvalidValue)
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Version <= pairs[i-1].Version {
			return Value{}, fmt.Errorf("%w: versions not strictly ascending at index %d (%d after %d)",
				ErrInvalidValue, i, pairs[i].Version, pairs[i-1].Version)
		}
	}
	if pairs[0].Version < 0 {
		return Value{}, fmt.Errorf("%w: negative version %d", ErrInvalidValue, pairs[0].Version)
	}

	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	return Value{pairs: cp, fixed: len(cp) == 1 && cp[0].Version == 0}, nil
}

// MustValue is NewValue for static declarations.
func MustValue(pairs ...Pair) Value {
	v, err := NewValue(pairs...)
	if err != nil {
		panic(err)
	}
	return v
}

// At resolves the raw value effective at version v. It returns false when v
// predates every declared pair, meaning the constant did not exist yet.
func (val Value) At(v Version) (int64, bool) {
	if len(val.pairs) == 0 {
		return 0, false
	}
	if val.fixed {
		return val.pairs[0].Raw, true
	}
	if v == Latest {
		return val.pairs[len(val.pairs)-1].Raw, true
	}
	for i := len(val.pairs) - 1; i >= 0; i-- {
		if val.pairs[i].Version <= v {
			return val.pairs[i].Raw, true
		}
	}
	return 0, false
}

// IsFixed reports whether the value is the same for every version.
func (val Value) IsFixed() bool {
	return val.fixed
}

// IsZero reports whether the Value was never initialised.
func (val Value) IsZero() bool {
	return len(val.pairs) == 0
}

// Pairs returns a copy of the declared pairs.
func (val Value) Pairs() []Pair {
	cp := make([]Pair, len(val.pairs))
	copy(cp, val.pairs)
	return cp
}
