package record

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/codec"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// Factory wraps a base record in its concrete type.
type Factory func(*Record) Typed

// Registry maps field set keys to factories and builds records from packets
// and rows. It is safe for concurrent use.
type Registry struct {
	cat    *catalog.Catalog
	codec  *codec.Codec
	logger *slog.Logger

	mu        sync.RWMutex
	factories map[string]Factory
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used by the registry and its records.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry using c and its catalog.
func NewRegistry(c *codec.Codec, opts ...RegistryOption) *Registry {
	r := &Registry{
		cat:       c.Catalog(),
		codec:     c,
		logger:    slog.Default(),
		factories: make(map[string]Factory),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the catalog backing the registry.
func (g *Registry) Catalog() *catalog.Catalog { return g.cat }

// Codec returns the codec used by records from this registry.
func (g *Registry) Codec() *codec.Codec { return g.codec }

// Register binds factory to key. The key must be a registered field set and
// may only be bound once.
func (g *Registry) Register(key string, factory Factory) error {
	if !g.cat.Has(key) {
		return fmt.Errorf("registering factory for %q: %w", key, ErrUnknownFieldSet)
	}
	if factory == nil {
		return fmt.Errorf("registering factory for %q: %w: nil factory", key, catalog.ErrConfiguration)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.factories[key]; dup {
		return fmt.Errorf("registering factory for %q: %w: already registered", key, catalog.ErrConfiguration)
	}
	g.factories[key] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (g *Registry) MustRegister(key string, factory Factory) {
	if err := g.Register(key, factory); err != nil {
		panic(err)
	}
}

func (g *Registry) factory(key string) (Factory, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f, ok := g.factories[key]
	return f, ok
}

// New returns an empty record of key at the given versions with every token
// nil. A zero schema version means unknown.
func (g *Registry) New(key string, version, schema versioning.Version) (Typed, error) {
	domain, ok := g.cat.Domain(key)
	if !ok {
		return nil, fmt.Errorf("creating %q: %w", key, ErrUnknownFieldSet)
	}
	factory, ok := g.factory(key)
	if !ok {
		return nil, fmt.Errorf("creating %q: %w", key, ErrNoFactory)
	}
	if domain == catalog.DomainSchema {
		version = schema
	}
	r := &Record{
		reg:     g,
		key:     key,
		domain:  domain,
		version: version,
		schema:  schema,
		tokens:  make([]*string, g.cat.Count(key, version)),
	}
	return factory(r), nil
}

// FromPacket builds a record of key from protocol tokens received at the
// given protocol version.
func (g *Registry) FromPacket(key string, version versioning.Version, tokens []string) (Typed, error) {
	nullable := make([]*string, len(tokens))
	for i := range tokens {
		nullable[i] = &tokens[i]
	}
	return g.FromTokens(key, version, 0, nullable)
}

// FromRow builds a record of key from database columns read at the given
// schema version. Nil columns are SQL NULL.
func (g *Registry) FromRow(key string, schema versioning.Version, columns []*string) (Typed, error) {
	return g.FromTokens(key, schema, schema, columns)
}

// FromTokens builds a record from tokens. The token count must equal the
// number of fields valid at version, and every token must decode.
func (g *Registry) FromTokens(key string, version, schema versioning.Version, tokens []*string) (Typed, error) {
	domain, ok := g.cat.Domain(key)
	if !ok {
		return nil, fmt.Errorf("decoding %q: %w", key, ErrUnknownFieldSet)
	}
	factory, ok := g.factory(key)
	if !ok {
		return nil, fmt.Errorf("decoding %q: %w", key, ErrNoFactory)
	}
	if want := g.cat.Count(key, version); want != len(tokens) {
		return nil, &StructuralMismatchError{Set: key, Version: version, Expected: want, Got: len(tokens)}
	}
	r := &Record{
		reg:     g,
		key:     key,
		domain:  domain,
		version: version,
		schema:  schema,
		tokens:  make([]*string, len(tokens)),
	}
	for i, t := range tokens {
		if t != nil {
			s := *t
			r.tokens[i] = &s
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return factory(r), nil
}

// As asserts the result of a registry call to T.
func As[T Typed](v Typed, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedType, v, zero)
	}
	return t, nil
}
