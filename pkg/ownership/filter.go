package ownership

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Ramsey-B/taproot/pkg/appcontext"
	"github.com/huandu/go-sqlbuilder"
)

// FilterOptions controls owned-filter construction. An explicit OwnerID takes
// precedence over the current actor; values are positional against the owner
// type's primary key columns.
type FilterOptions struct {
	OwnerID []any
}

// ApplyOwnedFilter narrows sb to records owned by the given owner: an inner
// join along the full owner relation path and an equality predicate on the
// owner's primary key at the terminal alias. When the explicit owner id is
// missing, the current actor supplies it; with neither, or for a type with no
// ownership chain, the builder is returned unchanged.
func (e *Engine) ApplyOwnedFilter(ctx context.Context, sb *sqlbuilder.SelectBuilder, typeName string, opts FilterOptions) (*sqlbuilder.SelectBuilder, error) {
	path, ok, err := e.OwnerPath(typeName, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return sb, nil
	}

	cfg, err := e.ConfigFor(typeName)
	if err != nil {
		return nil, err
	}
	ownerType, _ := e.types.Get(cfg.Owner)

	ownerID := opts.OwnerID
	if ownerID == nil {
		ownerID = e.actorOwnerID(ctx, cfg.Owner)
	}
	if ownerID == nil {
		return sb, nil
	}
	if len(ownerID) != len(ownerType.PrimaryKey) {
		return nil, &InvalidArgumentError{
			Reason: fmt.Sprintf("owner id has %d value(s), owner type %q has %d primary key column(s)", len(ownerID), cfg.Owner, len(ownerType.PrimaryKey)),
		}
	}

	baseType, boundOK := e.types.Get(typeName)
	if !boundOK {
		return nil, newConfigurationErrorf(typeName, "record type is not registered")
	}

	terminal, _, err := e.appendPathJoins(sb, baseType, baseType.Table, path, sqlbuilder.InnerJoin)
	if err != nil {
		return nil, err
	}

	for i, col := range ownerType.PrimaryKey {
		sb.Where(sb.Equal(fmt.Sprintf("%s.%s", terminal, col), normalizeKeyValue(ownerID[i])))
	}
	return sb, nil
}

// normalizeKeyValue aligns owner key values arriving as strings (query params,
// actor headers) with the int64 values drivers return for integer keys.
func normalizeKeyValue(v any) any {
	if s, ok := v.(string); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return v
}

// ApplyNonOwnedFilter narrows sb to records whose owner chain resolves to
// nothing: a left outer join along the owner path and an IS NULL predicate on
// every owner primary key column at the terminal alias. A type with no
// ownership chain returns the builder unchanged.
func (e *Engine) ApplyNonOwnedFilter(sb *sqlbuilder.SelectBuilder, typeName string) (*sqlbuilder.SelectBuilder, error) {
	path, ok, err := e.OwnerPath(typeName, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return sb, nil
	}

	cfg, err := e.ConfigFor(typeName)
	if err != nil {
		return nil, err
	}
	ownerType, _ := e.types.Get(cfg.Owner)

	baseType, boundOK := e.types.Get(typeName)
	if !boundOK {
		return nil, newConfigurationErrorf(typeName, "record type is not registered")
	}

	terminal, _, err := e.appendPathJoins(sb, baseType, baseType.Table, path, sqlbuilder.LeftOuterJoin)
	if err != nil {
		return nil, err
	}

	for _, col := range ownerType.PrimaryKey {
		sb.Where(sb.IsNull(fmt.Sprintf("%s.%s", terminal, col)))
	}
	return sb, nil
}

// actorOwnerID resolves the default owner id from the request context or,
// failing that, the owner type's process-scoped session.
func (e *Engine) actorOwnerID(ctx context.Context, ownerTypeName string) []any {
	ownerType, ok := e.types.Get(ownerTypeName)
	if !ok {
		return nil
	}

	if appcontext.GetActorType(ctx) == ownerTypeName {
		if id := appcontext.GetActorID(ctx); id != "" {
			return []any{id}
		}
	}

	if ownerType.Provider == nil {
		return nil
	}
	actor := ownerType.Provider.CurrentActor()
	if actor == nil || actor.TypeName() != ownerTypeName {
		return nil
	}

	values := make([]any, 0, len(ownerType.PrimaryKey))
	for _, col := range ownerType.PrimaryKey {
		v := actor.Get(col)
		if v == nil {
			return nil
		}
		values = append(values, v)
	}
	return values
}
