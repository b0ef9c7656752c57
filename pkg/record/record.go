// Package record provides the dynamic record instances the ownership engine
// verifies: field values keyed by column name, dirty tracking, and loaded
// to-one/to-many relations.
package record

import (
	"github.com/Ramsey-B/taproot/pkg/schema"
)

// Record is one row of a registered record type, possibly with nested related
// records loaded in memory. Not safe for concurrent mutation.
type Record struct {
	typ    *schema.Type
	fields map[string]any
	dirty  map[string]struct{}

	one      map[string]*Record
	many     map[string][]*Record
	dirtyRel map[string]struct{}

	persisted bool
}

// New creates an unpersisted record of the given type
func New(t *schema.Type) *Record {
	return &Record{
		typ:      t,
		fields:   make(map[string]any),
		dirty:    make(map[string]struct{}),
		one:      make(map[string]*Record),
		many:     make(map[string][]*Record),
		dirtyRel: make(map[string]struct{}),
	}
}

// Hydrate creates a clean, persisted record from stored field values
func Hydrate(t *schema.Type, fields map[string]any) *Record {
	r := New(t)
	for k, v := range fields {
		r.fields[k] = v
	}
	r.persisted = true
	return r
}

// Type returns the record's type descriptor
func (r *Record) Type() *schema.Type {
	return r.typ
}

// TypeName returns the record's type name
func (r *Record) TypeName() string {
	return r.typ.Name
}

// Get returns the value of a field; nil when the field is not set
func (r *Record) Get(field string) any {
	return r.fields[field]
}

// Has reports whether the field carries a value (set or loaded)
func (r *Record) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Set assigns a field value and marks it dirty
func (r *Record) Set(field string, value any) *Record {
	r.fields[field] = value
	r.dirty[field] = struct{}{}
	return r
}

// Fields returns a copy of the record's field values
func (r *Record) Fields() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// DirtyFields returns the names of locally modified fields
func (r *Record) DirtyFields() []string {
	out := make([]string, 0, len(r.dirty))
	for f := range r.dirty {
		out = append(out, f)
	}
	return out
}

// IsDirty reports whether the record differs from its persisted state
func (r *Record) IsDirty() bool {
	return !r.persisted || len(r.dirty) > 0
}

// IsNew reports whether the record has never been persisted
func (r *Record) IsNew() bool {
	return !r.persisted
}

// MarkPersisted clears dirty state after a successful write
func (r *Record) MarkPersisted() {
	r.persisted = true
	r.dirty = make(map[string]struct{})
	r.dirtyRel = make(map[string]struct{})
}

// Related returns the loaded to-one related record for the relation name.
// The second return is false when the relation has not been loaded.
func (r *Record) Related(name string) (*Record, bool) {
	rec, ok := r.one[name]
	return rec, ok
}

// SetRelated attaches a to-one related record in memory and marks the
// relation dirty.
func (r *Record) SetRelated(name string, rec *Record) *Record {
	r.one[name] = rec
	r.dirtyRel[name] = struct{}{}
	return r
}

// LoadRelated attaches a to-one related record without marking it dirty,
// mirroring a relation hydrated from storage.
func (r *Record) LoadRelated(name string, rec *Record) *Record {
	r.one[name] = rec
	return r
}

// RelatedMany returns the loaded to-many collection for the relation name
func (r *Record) RelatedMany(name string) ([]*Record, bool) {
	recs, ok := r.many[name]
	return recs, ok
}

// SetRelatedMany attaches a to-many collection in memory and marks the
// relation dirty.
func (r *Record) SetRelatedMany(name string, recs []*Record) *Record {
	r.many[name] = recs
	r.dirtyRel[name] = struct{}{}
	return r
}

// LoadRelatedMany attaches a to-many collection without marking it dirty
func (r *Record) LoadRelatedMany(name string, recs []*Record) *Record {
	r.many[name] = recs
	return r
}

// RelationDirty reports whether a loaded relation reflects in-memory edits:
// either the relation was attached/replaced locally, or the loaded records
// themselves carry unpersisted changes.
func (r *Record) RelationDirty(name string) bool {
	if _, ok := r.dirtyRel[name]; ok {
		return true
	}
	if rec, ok := r.one[name]; ok && rec != nil && rec.IsDirty() {
		return true
	}
	if recs, ok := r.many[name]; ok {
		for _, rec := range recs {
			if rec.IsDirty() {
				return true
			}
		}
	}
	return false
}

// PrimaryKeyValues returns the record's primary key values keyed by column.
// The second return is false when any key column is missing or nil.
func (r *Record) PrimaryKeyValues() (map[string]any, bool) {
	values := make(map[string]any, len(r.typ.PrimaryKey))
	for _, col := range r.typ.PrimaryKey {
		v, ok := r.fields[col]
		if !ok || v == nil {
			return nil, false
		}
		values[col] = v
	}
	return values, true
}
