package ownership

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// IdentityState distinguishes the three outcomes of owner resolution
type IdentityState int

const (
	// StateAbsent means the record type takes part in no ownership chain
	StateAbsent IdentityState = iota
	// StateUnowned means ownership is configured but the foreign key chain
	// resolves to nothing
	StateUnowned
	// StateResolved means a concrete owner was found
	StateResolved
)

// Identity is the resolved owner of a record: a mapping from owner
// primary-key column to value, or one of the absent/unowned sentinels.
// Compared by value equality.
type Identity struct {
	state  IdentityState
	values map[string]any
}

// AbsentIdentity marks a record type outside every ownership chain
func AbsentIdentity() Identity {
	return Identity{state: StateAbsent}
}

// UnownedIdentity marks a configured record whose owner chain is empty
func UnownedIdentity() Identity {
	return Identity{state: StateUnowned}
}

// ResolvedIdentity wraps concrete owner primary-key values
func ResolvedIdentity(values map[string]any) Identity {
	return Identity{state: StateResolved, values: values}
}

func (id Identity) State() IdentityState { return id.state }
func (id Identity) Absent() bool         { return id.state == StateAbsent }
func (id Identity) Unowned() bool        { return id.state == StateUnowned }
func (id Identity) Resolved() bool       { return id.state == StateResolved }

// Values returns the owner primary-key values; nil unless resolved
func (id Identity) Values() map[string]any {
	return id.values
}

// Equal compares two identities by state and value equality. Values of
// differing numeric types that print identically are considered equal, since
// drivers return int64 where records may carry int.
func (id Identity) Equal(other Identity) bool {
	if id.state != other.state {
		return false
	}
	if id.state != StateResolved {
		return true
	}
	if len(id.values) != len(other.values) {
		return false
	}
	for k, v := range id.values {
		ov, ok := other.values[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func (id Identity) String() string {
	switch id.state {
	case StateAbsent:
		return "absent"
	case StateUnowned:
		return "unowned"
	default:
		keys := make([]string, 0, len(id.values))
		for k := range id.values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := "{"
		for i, k := range keys {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%s: %v", k, id.values[k])
		}
		return s + "}"
	}
}

// MarshalJSON emits the wire representation: false for absent, null for
// unowned, and the value object when resolved.
func (id Identity) MarshalJSON() ([]byte, error) {
	switch id.state {
	case StateAbsent:
		return json.Marshal(false)
	case StateUnowned:
		return json.Marshal(nil)
	default:
		return json.Marshal(id.values)
	}
}

// valuesEqual compares two values with type coercion
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	if reflect.DeepEqual(a, b) {
		return true
	}

	// Handles type differences like int64 vs int from driver scans
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
