// Package ownership enforces a structural invariant over record graphs: every
// record taking part in an ownership hierarchy must, directly or through its
// relations, resolve to exactly one owning record.
package ownership

import (
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/taproot/pkg/database"
	"github.com/Ramsey-B/taproot/pkg/schema"
)

// Engine resolves owner paths and identities, verifies record graph
// consistency, and builds owned/non-owned query filters. Safe for concurrent
// use across independent record graphs; the only shared state is the
// read-only configuration cache.
type Engine struct {
	types  *schema.Registry
	db     database.DB
	logger ectologger.Logger

	// cache maps record type name -> *Config, populated read-through on
	// first use. A race to populate is benign; LoadOrStore keeps one entry.
	cache sync.Map
}

// NewEngine creates an ownership engine over the given type registry and
// data store.
func NewEngine(types *schema.Registry, db database.DB, logger ectologger.Logger) *Engine {
	return &Engine{
		types:  types,
		db:     db,
		logger: logger,
	}
}

// Config is the validated ownership configuration of a record type. The zero
// value marks a pass-through type contributing no constraint.
type Config struct {
	Owner          string
	ParentRelation string
}

// Enabled reports whether the type declares an ownership chain entry
func (c *Config) Enabled() bool {
	return c.Owner != ""
}

// ConfigFor returns the memoized ownership configuration for a record type,
// validating the declaration on first use.
func (e *Engine) ConfigFor(typeName string) (*Config, error) {
	if v, ok := e.cache.Load(typeName); ok {
		return v.(*Config), nil
	}

	cfg, err := e.buildConfig(typeName)
	if err != nil {
		return nil, err
	}

	actual, _ := e.cache.LoadOrStore(typeName, cfg)
	return actual.(*Config), nil
}

func (e *Engine) buildConfig(typeName string) (*Config, error) {
	t, ok := e.types.Get(typeName)
	if !ok {
		return nil, newConfigurationErrorf(typeName, "record type is not registered")
	}

	if t.Ownership == nil {
		return &Config{}, nil
	}

	decl := t.Ownership
	if (decl.Owner == "") != (decl.ParentRelation == "") {
		return nil, newConfigurationErrorf(typeName, "owner and parent relation must be declared together")
	}
	if decl.Owner == "" {
		return &Config{}, nil
	}

	ownerType, ok := e.types.Get(decl.Owner)
	if !ok {
		return nil, newConfigurationErrorf(typeName, "owner type %q is not registered", decl.Owner)
	}
	if ownerType.Provider == nil {
		return nil, newConfigurationErrorf(typeName, "owner type %q does not provide the owner capability", decl.Owner)
	}

	rel := t.Relation(decl.ParentRelation)
	if rel == nil {
		return nil, newConfigurationErrorf(typeName, "parent relation %q is not declared", decl.ParentRelation)
	}
	if !rel.IsToOne() {
		return nil, newConfigurationErrorf(typeName, "parent relation %q must be a to-one relation", decl.ParentRelation)
	}
	for _, pair := range rel.Keys {
		if pair.ForeignKey == "" || pair.BindingKey == "" {
			return nil, newConfigurationErrorf(typeName, "parent relation %q has an incomplete key pair", decl.ParentRelation)
		}
	}

	return &Config{
		Owner:          decl.Owner,
		ParentRelation: decl.ParentRelation,
	}, nil
}

// ResetCache clears the configuration cache. Intended for tests; production
// configuration is immutable for the process lifetime.
func (e *Engine) ResetCache() {
	e.cache.Range(func(key, _ any) bool {
		e.cache.Delete(key)
		return true
	})
}
