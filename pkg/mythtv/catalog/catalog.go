// Package catalog resolves which fields of a response or row shape exist at a
// given protocol or schema version, and at which position.
//
// A Catalog is built once at startup from static FieldSet and ConstantSet
// declarations and is then shared read-only. Every lookup is a pure function
// of those declarations and a version, so results are memoized.
//
// A field that does not exist at the requested version is a normal outcome:
// Position returns -1 and FieldByName returns false. Client code routinely
// asks for fields unconditionally across many backend versions.
package catalog

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// DefaultVersionCacheSize bounds how many distinct versions are memoized per
// field set. Lookups for further versions are computed without caching.
const DefaultVersionCacheSize = 64

// Catalog is the registry of field sets and constant sets.
type Catalog struct {
	mu        sync.RWMutex
	sets      map[string]*setEntry
	constants map[string]*constantEntry

	logger    *slog.Logger
	cacheSize int32
}

// setEntry holds a registered field set with its memoized per-version views.
type setEntry struct {
	set    FieldSet
	byName map[string]int

	views  sync.Map // versioning.Version -> *view
	cached atomic.Int32
}

// view is the ordered subset of fields valid at one version.
type view struct {
	fields    []Field
	positions map[string]int
}

type constantEntry struct {
	set    ConstantSet
	byName map[string]int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithVersionCacheSize sets how many versions are memoized per field set.
// Zero disables the per-version cache.
func WithVersionCacheSize(n int) Option {
	return func(c *Catalog) {
		if n >= 0 {
			c.cacheSize = int32(n)
		}
	}
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		sets:      make(map[string]*setEntry),
		constants: make(map[string]*constantEntry),
		logger:    slog.Default(),
		cacheSize: DefaultVersionCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterConstants adds a constant set. Constant sets must be registered
// before any field set that refers to them.
func (c *Catalog) RegisterConstants(set ConstantSet) error {
	if set.Key == "" {
		return fmt.Errorf("%w: constant set without key", ErrConfiguration)
	}

	entry := &constantEntry{
		set: ConstantSet{
			Key:       set.Key,
			Kind:      set.Kind,
			Constants: make([]Constant, len(set.Constants)),
		},
		byName: make(map[string]int, len(set.Constants)),
	}

	for i, k := range set.Constants {
		if k.Name == "" {
			return fmt.Errorf("%w: constant set %s: constant %d has no name", ErrConfiguration, set.Key, i)
		}
		if _, dup := entry.byName[k.Name]; dup {
			return fmt.Errorf("%w: constant set %s: duplicate constant %s", ErrConfiguration, set.Key, k.Name)
		}
		if k.Value.IsZero() {
			return fmt.Errorf("%w: constant set %s: constant %s has no value", ErrConfiguration, set.Key, k.Name)
		}
		if k.Range == (versioning.Range{}) {
			k.Range = versioning.Always
		}
		if err := k.Range.Validate(); err != nil {
			return fmt.Errorf("%w: constant set %s: constant %s: %v", ErrConfiguration, set.Key, k.Name, err)
		}
		k.Set = set.Key
		entry.set.Constants[i] = k
		entry.byName[k.Name] = i
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.constants[set.Key]; dup {
		return fmt.Errorf("%w: duplicate constant set %s", ErrConfiguration, set.Key)
	}
	c.constants[set.Key] = entry
	return nil
}

// Register adds a field set.
func (c *Catalog) Register(set FieldSet) error {
	if set.Key == "" {
		return fmt.Errorf("%w: field set without key", ErrConfiguration)
	}

	entry := &setEntry{
		set: FieldSet{
			Key:    set.Key,
			Domain: set.Domain,
			Table:  set.Table,
			Fields: make([]Field, len(set.Fields)),
		},
		byName: make(map[string]int, len(set.Fields)),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.sets[set.Key]; dup {
		return fmt.Errorf("%w: duplicate field set %s", ErrConfiguration, set.Key)
	}

	for i, f := range set.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field set %s: field %d has no name", ErrConfiguration, set.Key, i)
		}
		if _, dup := entry.byName[f.Name]; dup {
			return fmt.Errorf("%w: field set %s: duplicate field %s", ErrConfiguration, set.Key, f.Name)
		}
		if f.Range == (versioning.Range{}) {
			f.Range = versioning.Always
		}
		if err := f.Range.Validate(); err != nil {
			return fmt.Errorf("%w: field set %s: field %s: %v", ErrConfiguration, set.Key, f.Name, err)
		}
		if f.Type.IsGroup() {
			if f.Group == "" {
				return fmt.Errorf("%w: field set %s: field %s of type %s names no constant set",
					ErrConfiguration, set.Key, f.Name, f.Type)
			}
			g, ok := c.constants[f.Group]
			if !ok {
				return fmt.Errorf("%w: field set %s: field %s: %w %s",
					ErrConfiguration, set.Key, f.Name, ErrUnknownConstantSet, f.Group)
			}
			if (f.Type == TypeFlags) != (g.set.Kind == KindFlags) {
				return fmt.Errorf("%w: field set %s: field %s of type %s refers to %s set %s",
					ErrConfiguration, set.Key, f.Name, f.Type, g.set.Kind, f.Group)
			}
		}
		f.Set = set.Key
		entry.set.Fields[i] = f
		entry.byName[f.Name] = i
	}

	c.sets[set.Key] = entry
	return nil
}

// MustRegisterConstants registers constant sets and panics on the first
// configuration error.
func (c *Catalog) MustRegisterConstants(sets ...ConstantSet) {
	for _, s := range sets {
		if err := c.RegisterConstants(s); err != nil {
			panic(err)
		}
	}
}

// MustRegister registers field sets and panics on the first configuration
// error.
func (c *Catalog) MustRegister(sets ...FieldSet) {
	for _, s := range sets {
		if err := c.Register(s); err != nil {
			panic(err)
		}
	}
}

func (c *Catalog) entry(key string) (*setEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.sets[key]
	return e, ok
}

func (c *Catalog) constantEntry(key string) (*constantEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.constants[key]
	return e, ok
}

// view returns the fields of e valid at v. Population races are harmless:
// two goroutines computing the same view produce identical results.
func (c *Catalog) view(e *setEntry, v versioning.Version) *view {
	if cached, ok := e.views.Load(v); ok {
		return cached.(*view)
	}

	vw := &view{positions: make(map[string]int)}
	for _, f := range e.set.Fields {
		if f.Range.Contains(v) {
			vw.positions[f.Name] = len(vw.fields)
			vw.fields = append(vw.fields, f)
		}
	}

	if e.cached.Load() < c.cacheSize {
		if actual, loaded := e.views.LoadOrStore(v, vw); loaded {
			return actual.(*view)
		}
		e.cached.Add(1)
	}
	return vw
}

// Has reports whether a field set is registered under key.
func (c *Catalog) Has(key string) bool {
	_, ok := c.entry(key)
	return ok
}

// FieldSet returns the registered declaration for key.
func (c *Catalog) FieldSet(key string) (FieldSet, bool) {
	e, ok := c.entry(key)
	if !ok {
		return FieldSet{}, false
	}
	return e.set, true
}

// Keys returns the keys of all registered field sets.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.sets))
	for k := range c.sets {
		keys = append(keys, k)
	}
	return keys
}

// Domain returns the version domain of a field set.
func (c *Catalog) Domain(key string) (Domain, bool) {
	e, ok := c.entry(key)
	if !ok {
		return DomainProtocol, false
	}
	return e.set.Domain, true
}

// Declared returns the declared range of a field regardless of version.
func (c *Catalog) Declared(key, name string) (Field, bool) {
	e, ok := c.entry(key)
	if !ok {
		return Field{}, false
	}
	i, ok := e.byName[name]
	if !ok {
		return Field{}, false
	}
	return e.set.Fields[i], true
}

// ValidFields returns the fields of key valid at v in declaration order.
// An unknown key yields nil.
func (c *Catalog) ValidFields(key string, v versioning.Version) []Field {
	e, ok := c.entry(key)
	if !ok {
		return nil
	}
	vw := c.view(e, v)
	out := make([]Field, len(vw.fields))
	copy(out, vw.fields)
	return out
}

// Count returns the number of fields valid at v, or -1 for an unknown key.
func (c *Catalog) Count(key string, v versioning.Version) int {
	e, ok := c.entry(key)
	if !ok {
		return -1
	}
	return len(c.view(e, v).fields)
}

// Position returns the index of the named field within ValidFields(key, v),
// or -1 when the field does not exist at that version.
func (c *Catalog) Position(key, name string, v versioning.Version) int {
	e, ok := c.entry(key)
	if !ok {
		return -1
	}
	// Cheap rejection for fields valid nowhere near v, without building a view.
	i, ok := e.byName[name]
	if !ok || !e.set.Fields[i].Range.Contains(v) {
		return -1
	}
	pos, ok := c.view(e, v).positions[name]
	if !ok {
		return -1
	}
	return pos
}

// FieldByPosition returns the field at pos for version v.
func (c *Catalog) FieldByPosition(key string, v versioning.Version, pos int) (Field, bool) {
	e, ok := c.entry(key)
	if !ok {
		return Field{}, false
	}
	vw := c.view(e, v)
	if pos < 0 || pos >= len(vw.fields) {
		return Field{}, false
	}
	return vw.fields[pos], true
}

// FieldByName returns the named field if it is valid at v. A miss is logged
// at debug level and is not an error.
func (c *Catalog) FieldByName(key string, v versioning.Version, name string) (Field, bool) {
	e, ok := c.entry(key)
	if !ok {
		c.logger.Debug("field lookup on unknown field set",
			slog.String("field_set", key),
			slog.String("field", name))
		return Field{}, false
	}
	i, ok := e.byName[name]
	if !ok {
		c.logger.Debug("field not declared",
			slog.String("field_set", key),
			slog.String("field", name))
		return Field{}, false
	}
	f := e.set.Fields[i]
	if !f.Range.Contains(v) {
		c.logger.Debug("field not available at version",
			slog.String("field_set", key),
			slog.String("field", name),
			slog.String("version", v.String()),
			slog.String("range", f.Range.String()))
		return Field{}, false
	}
	return f, true
}

// Constants returns the registered constant set for key.
func (c *Catalog) Constants(key string) (ConstantSet, bool) {
	e, ok := c.constantEntry(key)
	if !ok {
		return ConstantSet{}, false
	}
	return e.set, true
}

// ConstantsAt returns the constants of key that exist at v.
func (c *Catalog) ConstantsAt(key string, v versioning.Version) []Constant {
	e, ok := c.constantEntry(key)
	if !ok {
		return nil
	}
	out := make([]Constant, 0, len(e.set.Constants))
	for _, k := range e.set.Constants {
		if _, ok := k.RawAt(v); ok {
			out = append(out, k)
		}
	}
	return out
}

// Constant returns the named constant of a constant set.
func (c *Catalog) Constant(key, name string) (Constant, bool) {
	e, ok := c.constantEntry(key)
	if !ok {
		return Constant{}, false
	}
	i, ok := e.byName[name]
	if !ok {
		return Constant{}, false
	}
	return e.set.Constants[i], true
}

// ConstantValue resolves the raw value of a named constant at v.
func (c *Catalog) ConstantValue(key, name string, v versioning.Version) (int64, bool) {
	k, ok := c.Constant(key, name)
	if !ok {
		return 0, false
	}
	return k.RawAt(v)
}

// ConstantForValue performs the reverse lookup: the first constant valid at
// v whose resolved raw value equals raw.
func (c *Catalog) ConstantForValue(key string, v versioning.Version, raw int64) (Constant, bool) {
	e, ok := c.constantEntry(key)
	if !ok {
		return Constant{}, false
	}
	for _, k := range e.set.Constants {
		if r, ok := k.RawAt(v); ok && r == raw {
			return k, true
		}
	}
	return Constant{}, false
}
