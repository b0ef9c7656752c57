package schema

// RelationKind identifies how two record types are linked
type RelationKind string

const (
	// BelongsTo is a to-one relation: the source row carries foreign keys
	// referencing the target's binding keys.
	BelongsTo RelationKind = "belongs_to"
	// BelongsToMany is a to-many relation realized through a junction table.
	BelongsToMany RelationKind = "belongs_to_many"
)

// KeyPair binds a foreign key column to the column it references.
// For BelongsTo relations ForeignKey lives on the source type and BindingKey
// on the target; for junction key sets ForeignKey is the junction column.
type KeyPair struct {
	ForeignKey string
	BindingKey string
}

// Relation describes a named link from one record type to another
type Relation struct {
	Name   string
	Kind   RelationKind
	Target string

	// Keys are the foreign-key/binding-key pairs for BelongsTo relations.
	Keys []KeyPair

	// Junction fields apply to BelongsToMany relations only.
	Junction     string    // junction table name
	JunctionKeys []KeyPair // junction columns -> source binding keys
	TargetKeys   []KeyPair // junction columns -> target binding keys
}

// IsToOne reports whether the relation is a to-one link
func (r *Relation) IsToOne() bool {
	return r.Kind == BelongsTo
}
