package ownership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Ramsey-B/taproot/pkg/database"
	"github.com/Ramsey-B/taproot/pkg/metrics"
	"github.com/Ramsey-B/taproot/pkg/record"
	"github.com/Ramsey-B/taproot/pkg/schema"
	"github.com/Ramsey-B/taproot/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"
)

// OwnerIDFromBelongsTo resolves the owner identity reachable through a to-one
// relation of rec, using foreign key values already present on the record and
// one lookup against the data store. Returns an absent identity when the
// relation does not take part in the record's ownership group.
func (e *Engine) OwnerIDFromBelongsTo(ctx context.Context, rec *record.Record, rel *schema.Relation) (Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "OwnershipEngine.OwnerIDFromBelongsTo")
	defer span.End()

	if rel == nil || !rel.IsToOne() {
		return Identity{}, &InvalidArgumentError{Reason: "relation must be a declared to-one relation"}
	}

	cfg, err := e.ConfigFor(rec.TypeName())
	if err != nil {
		return Identity{}, err
	}
	if !cfg.Enabled() {
		return AbsentIdentity(), nil
	}

	// The lookup starts at the relation's target. For the direct owner
	// relation that target is the owner itself; otherwise the target must
	// have its own path toward the same owner, which becomes the join chain.
	var path []string
	direct := rel.Name == cfg.ParentRelation && rel.Target == cfg.Owner
	if !direct {
		p, ok, err := e.OwnerPath(rel.Target, cfg.Owner)
		if err != nil {
			return Identity{}, err
		}
		if !ok {
			return AbsentIdentity(), nil
		}
		path = p
	}

	targetType, ok := e.types.Get(rel.Target)
	if !ok {
		return Identity{}, newConfigurationErrorf(rec.TypeName(), "relation %q targets unregistered type %q", rel.Name, rel.Target)
	}

	// Binding key fields with a value contribute a lookup condition; fields
	// the record never carried contribute nothing. A field present but null
	// breaks the chain and is rejected.
	type cond struct {
		column string
		value  any
	}
	var conds []cond
	for _, pair := range rel.Keys {
		if !rec.Has(pair.ForeignKey) {
			continue
		}
		v := rec.Get(pair.ForeignKey)
		if v == nil {
			return Identity{}, &DataIntegrityError{
				TypeName: rec.TypeName(),
				Field:    pair.ForeignKey,
				Reason:   fmt.Sprintf("foreign key required by owner chain through %q is null", rel.Name),
			}
		}
		conds = append(conds, cond{column: pair.BindingKey, value: v})
	}
	if len(conds) == 0 {
		return UnownedIdentity(), nil
	}

	metrics.OwnerLookupsTotal.WithLabelValues(rec.TypeName(), string(schema.BelongsTo)).Inc()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.From(fmt.Sprintf("%s AS o0", targetType.Table))

	terminal, ownerType, err := e.appendPathJoins(sb, targetType, "o0", path, sqlbuilder.InnerJoin)
	if err != nil {
		return Identity{}, err
	}

	selectOwnerKeys(sb, terminal, ownerType)
	for _, c := range conds {
		sb.Where(sb.Equal(fmt.Sprintf("o0.%s", c.column), c.value))
	}
	sb.Limit(1)

	query, args := sb.Build()

	dest := map[string]any{}
	row := database.QuerierFromContext(ctx, e.db).QueryRowxContext(ctx, query, args...)
	if err := row.MapScan(dest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UnownedIdentity(), nil
		}
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_type": rec.TypeName(),
			"relation":    rel.Name,
		}).Error("failed to look up owner identity")
		return Identity{}, fmt.Errorf("failed to look up owner identity: %w", err)
	}

	return ResolvedIdentity(dest), nil
}

// OwnerIDsFromBelongsToMany resolves every distinct owner identity currently
// linked through a to-many relation of rec. The second return is false when
// the lookup does not apply: the record is not yet persisted, ownership is
// not configured, or the related type belongs to a different ownership group.
func (e *Engine) OwnerIDsFromBelongsToMany(ctx context.Context, rec *record.Record, rel *schema.Relation) ([]Identity, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "OwnershipEngine.OwnerIDsFromBelongsToMany")
	defer span.End()

	if rel == nil || rel.Kind != schema.BelongsToMany {
		return nil, false, &InvalidArgumentError{Reason: "relation must be a declared to-many relation"}
	}

	cfg, err := e.ConfigFor(rec.TypeName())
	if err != nil {
		return nil, false, err
	}
	if !cfg.Enabled() || rec.IsNew() {
		return nil, false, nil
	}

	var path []string
	if rel.Target != cfg.Owner {
		p, ok, err := e.OwnerPath(rel.Target, cfg.Owner)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		path = p
	}

	targetType, ok := e.types.Get(rel.Target)
	if !ok {
		return nil, false, newConfigurationErrorf(rec.TypeName(), "relation %q targets unregistered type %q", rel.Name, rel.Target)
	}

	pkValues, ok := rec.PrimaryKeyValues()
	if !ok {
		return nil, false, &DataIntegrityError{
			TypeName: rec.TypeName(),
			Reason:   "persisted record is missing primary key values",
		}
	}

	metrics.OwnerLookupsTotal.WithLabelValues(rec.TypeName(), string(schema.BelongsToMany)).Inc()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.From(fmt.Sprintf("%s AS jt", rel.Junction))

	onExprs := make([]string, 0, len(rel.TargetKeys))
	for _, pair := range rel.TargetKeys {
		onExprs = append(onExprs, fmt.Sprintf("jt.%s = o0.%s", pair.ForeignKey, pair.BindingKey))
	}
	sb.JoinWithOption(sqlbuilder.InnerJoin, fmt.Sprintf("%s AS o0", targetType.Table), onExprs...)

	terminal, ownerType, err := e.appendPathJoins(sb, targetType, "o0", path, sqlbuilder.InnerJoin)
	if err != nil {
		return nil, false, err
	}

	selectOwnerKeys(sb, terminal, ownerType)
	sb.Distinct()
	for _, pair := range rel.JunctionKeys {
		v, ok := pkValues[pair.BindingKey]
		if !ok {
			return nil, false, &DataIntegrityError{
				TypeName: rec.TypeName(),
				Field:    pair.BindingKey,
				Reason:   fmt.Sprintf("junction %q binds a column that is not part of the primary key", rel.Junction),
			}
		}
		sb.Where(sb.Equal(fmt.Sprintf("jt.%s", pair.ForeignKey), v))
	}

	query, args := sb.Build()

	rows, err := database.QuerierFromContext(ctx, e.db).QueryxContext(ctx, query, args...)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_type": rec.TypeName(),
			"relation":    rel.Name,
		}).Error("failed to look up linked owner identities")
		return nil, false, fmt.Errorf("failed to look up linked owner identities: %w", err)
	}
	defer rows.Close()

	var ids []Identity
	for rows.Next() {
		dest := map[string]any{}
		if err := rows.MapScan(dest); err != nil {
			return nil, false, fmt.Errorf("failed to scan linked owner identity: %w", err)
		}
		ids = append(ids, ResolvedIdentity(dest))
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read linked owner identities: %w", err)
	}

	return ids, true, nil
}

// appendPathJoins joins each hop of a relation path onto sb, starting from
// startRef, and returns the terminal alias and type.
func (e *Engine) appendPathJoins(sb *sqlbuilder.SelectBuilder, start *schema.Type, startRef string, path []string, opt sqlbuilder.JoinOption) (string, *schema.Type, error) {
	cur := start
	curRef := startRef
	for i, hop := range path {
		rel := cur.Relation(hop)
		if rel == nil {
			return "", nil, newConfigurationErrorf(cur.Name, "parent relation %q is not declared", hop)
		}
		next, ok := e.types.Get(rel.Target)
		if !ok {
			return "", nil, newConfigurationErrorf(cur.Name, "relation %q targets unregistered type %q", hop, rel.Target)
		}

		alias := fmt.Sprintf("o%d", i+1)
		onExprs := make([]string, 0, len(rel.Keys))
		for _, pair := range rel.Keys {
			onExprs = append(onExprs, fmt.Sprintf("%s.%s = %s.%s", curRef, pair.ForeignKey, alias, pair.BindingKey))
		}
		sb.JoinWithOption(opt, fmt.Sprintf("%s AS %s", next.Table, alias), onExprs...)

		cur = next
		curRef = alias
	}
	return curRef, cur, nil
}

func selectOwnerKeys(sb *sqlbuilder.SelectBuilder, ref string, ownerType *schema.Type) {
	cols := make([]string, 0, len(ownerType.PrimaryKey))
	for _, col := range ownerType.PrimaryKey {
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", ref, col, col))
	}
	sb.Select(cols...)
}
