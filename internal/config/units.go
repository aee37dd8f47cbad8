package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ByteSize is a size in bytes that parses human-readable values such as
// "50GB", "1.5 TiB" or "4096". Units are binary.
type ByteSize int64

// Binary size units.
const (
	KiB ByteSize = 1 << (10 * (iota + 1))
	MiB
	GiB
	TiB
	PiB
)

var sizeUnits = map[string]ByteSize{
	"": 1, "b": 1,
	"k": KiB, "kb": KiB, "kib": KiB,
	"m": MiB, "mb": MiB, "mib": MiB,
	"g": GiB, "gb": GiB, "gib": GiB,
	"t": TiB, "tb": TiB, "tib": TiB,
	"p": PiB, "pb": PiB, "pib": PiB,
}

var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-z]*)\s*$`)

// ParseByteSize parses a human-readable byte size string.
func ParseByteSize(s string) (ByteSize, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	unit, ok := sizeUnits[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q", m[2])
	}
	return ByteSize(value * float64(unit)), nil
}

// KiBytes converts a size reported in KiB, as the backend does for storage.
func KiBytes(n int64) ByteSize {
	return ByteSize(n) * KiB
}

// UnmarshalText implements encoding.TextUnmarshaler for Viper and YAML.
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Bytes returns the size in bytes.
func (b ByteSize) Bytes() int64 {
	return int64(b)
}

// String returns the size using the largest unit keeping the value >= 1,
// with at most two decimals.
func (b ByteSize) String() string {
	if b < 0 {
		return "-" + (-b).String()
	}
	for _, u := range []struct {
		size ByteSize
		name string
	}{{PiB, "PB"}, {TiB, "TB"}, {GiB, "GB"}, {MiB, "MB"}, {KiB, "KB"}} {
		if b >= u.size {
			v := strconv.FormatFloat(float64(b)/float64(u.size), 'f', 2, 64)
			v = strings.TrimRight(strings.TrimRight(v, "0"), ".")
			return v + u.name
		}
	}
	return strconv.FormatInt(int64(b), 10) + "B"
}

// Duration is a time.Duration that also accepts days and weeks, such as
// "2d" or "1w12h".
type Duration time.Duration

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var longUnitPattern = regexp.MustCompile(`(\d+)\s*(w|d)`)

// ParseDuration parses a duration string with optional d and w units.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var long time.Duration
	rest := longUnitPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := longUnitPattern.FindStringSubmatch(match)
		n, _ := strconv.Atoi(m[1])
		if m[2] == "w" {
			long += time.Duration(n) * week
		} else {
			long += time.Duration(n) * day
		}
		return ""
	})
	rest = strings.Join(strings.Fields(rest), "")

	var d time.Duration
	switch {
	case rest != "":
		var err error
		if d, err = time.ParseDuration(rest); err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
	case long == 0:
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	d += long
	if negative {
		d = -d
	}
	return Duration(d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for Viper and YAML.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String formats d with week and day units where they apply.
func (d Duration) String() string {
	dur := time.Duration(d)
	if dur == 0 {
		return "0s"
	}
	var sb strings.Builder
	if dur < 0 {
		sb.WriteByte('-')
		dur = -dur
	}
	if w := dur / week; w > 0 {
		fmt.Fprintf(&sb, "%dw", w)
		dur -= w * week
	}
	if n := dur / day; n > 0 {
		fmt.Fprintf(&sb, "%dd", n)
		dur -= n * day
	}
	if dur > 0 {
		s := dur.String()
		if strings.HasSuffix(s, "m0s") {
			s = s[:len(s)-2]
		}
		if strings.HasSuffix(s, "h0m") {
			s = s[:len(s)-2]
		}
		sb.WriteString(s)
	}
	return sb.String()
}
