package schema

import "fmt"

// OwnershipDecl attaches a record type to an ownership chain. Owner names the
// record type at the root of the chain; ParentRelation names the to-one
// relation on this type that leads one step closer to it. Both must be set
// together; a type declaring neither is a pass-through type.
type OwnershipDecl struct {
	Owner          string
	ParentRelation string
}

// Type describes a record type: its table, primary key, declared relations,
// and optional ownership declaration. Immutable once registered.
type Type struct {
	Name       string
	Table      string
	Columns    []string
	PrimaryKey []string
	Ownership  *OwnershipDecl

	// Provider is set on owner types to satisfy the owner-provider
	// capability (current actor session). Nil on all other types.
	Provider OwnerProvider

	relations map[string]*Relation
	order     []string
}

// NewType creates a record type descriptor
func NewType(name, table string, columns, primaryKey []string) *Type {
	return &Type{
		Name:       name,
		Table:      table,
		Columns:    columns,
		PrimaryKey: primaryKey,
		relations:  make(map[string]*Relation),
	}
}

// BelongsTo declares a to-one relation on the type
func (t *Type) BelongsTo(name, target string, keys ...KeyPair) *Type {
	t.addRelation(&Relation{
		Name:   name,
		Kind:   BelongsTo,
		Target: target,
		Keys:   keys,
	})
	return t
}

// BelongsToMany declares a to-many relation through a junction table
func (t *Type) BelongsToMany(name, target, junction string, junctionKeys, targetKeys []KeyPair) *Type {
	t.addRelation(&Relation{
		Name:         name,
		Kind:         BelongsToMany,
		Target:       target,
		Junction:     junction,
		JunctionKeys: junctionKeys,
		TargetKeys:   targetKeys,
	})
	return t
}

// OwnedBy declares the ownership chain entry for the type
func (t *Type) OwnedBy(owner, parentRelation string) *Type {
	t.Ownership = &OwnershipDecl{
		Owner:          owner,
		ParentRelation: parentRelation,
	}
	return t
}

// WithProvider attaches the owner-provider capability to the type
func (t *Type) WithProvider(p OwnerProvider) *Type {
	t.Provider = p
	return t
}

func (t *Type) addRelation(rel *Relation) {
	if _, exists := t.relations[rel.Name]; !exists {
		t.order = append(t.order, rel.Name)
	}
	t.relations[rel.Name] = rel
}

// Relation returns the named relation, or nil if undeclared
func (t *Type) Relation(name string) *Relation {
	return t.relations[name]
}

// Relations returns the declared relations in declaration order
func (t *Type) Relations() []*Relation {
	rels := make([]*Relation, 0, len(t.order))
	for _, name := range t.order {
		rels = append(rels, t.relations[name])
	}
	return rels
}

func (t *Type) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.Table)
}
