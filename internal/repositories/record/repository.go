package record

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/taproot/pkg/database"
	"github.com/Ramsey-B/taproot/pkg/metrics"
	"github.com/Ramsey-B/taproot/pkg/ownership"
	"github.com/Ramsey-B/taproot/pkg/record"
	"github.com/Ramsey-B/taproot/pkg/schema"
	"github.com/Ramsey-B/taproot/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"
)

// RecordRepository defines the interface for record data access. Save runs
// the ownership consistency gate inside the write transaction; a false first
// return with a nil error is a vetoed write, not a failure.
type RecordRepository interface {
	Get(ctx context.Context, typeName string, id any) (*record.Record, error)
	Save(ctx context.Context, rec *record.Record) (bool, error)
	Delete(ctx context.Context, typeName string, id any) error
	FindOwned(ctx context.Context, typeName string, opts ownership.FilterOptions) ([]*record.Record, error)
	FindNonOwned(ctx context.Context, typeName string) ([]*record.Record, error)
}

// Repository implements RecordRepository
type Repository struct {
	db     database.DB
	engine *ownership.Engine
	types  *schema.Registry
	logger ectologger.Logger
}

// NewRepository creates a new record repository
func NewRepository(db database.DB, engine *ownership.Engine, types *schema.Registry, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		engine: engine,
		types:  types,
		logger: logger,
	}
}

// Get fetches a record by primary key. Composite keys take a []any in
// primary-key column order; single keys take the bare value.
func (r *Repository) Get(ctx context.Context, typeName string, id any) (*record.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "RecordRepository.Get")
	defer span.End()

	t, ok := r.types.Get(typeName)
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "unknown record type %q", typeName)
	}

	values, err := pkValues(t, id)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sb := database.NewSelectBuilder()
	sb.Select(t.Columns...)
	sb.From(t.Table)
	for i, col := range t.PrimaryKey {
		sb.Where(sb.Equal(col, values[i]))
	}

	query, args := sb.Build()

	dest := map[string]any{}
	err = r.db.QueryRowxContext(ctx, query, args...).MapScan(dest)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_type": typeName,
		}).Error("failed to get record")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get record: %s", err.Error())
	}

	return record.Hydrate(t, dest), nil
}

// Save writes a record after verifying owner consistency inside the same
// transaction. Returns (false, nil) when the gate vetoes the write.
func (r *Repository) Save(ctx context.Context, rec *record.Record) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "RecordRepository.Save")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	consistent, err := r.engine.IsConsistent(txCtx, rec)
	if err != nil {
		return false, err
	}
	if !consistent {
		metrics.WriteVetoesTotal.WithLabelValues(rec.TypeName()).Inc()
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"record_type": rec.TypeName(),
		}).Warn("write vetoed: record graph resolves to conflicting owners")
		return false, nil
	}

	if rec.IsNew() {
		err = r.insert(txCtx, tx, rec)
		metrics.WritesTotal.WithLabelValues(rec.TypeName(), "insert").Inc()
	} else {
		err = r.update(txCtx, tx, rec)
		metrics.WritesTotal.WithLabelValues(rec.TypeName(), "update").Inc()
	}
	if err != nil {
		return false, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit record write")
	}

	rec.MarkPersisted()
	return true, nil
}

func (r *Repository) insert(ctx context.Context, tx database.Tx, rec *record.Record) error {
	t := rec.Type()
	fields := rec.Fields()

	cols := make([]string, 0, len(fields))
	vals := make([]any, 0, len(fields))
	for _, col := range t.Columns {
		if v, ok := fields[col]; ok {
			cols = append(cols, col)
			vals = append(vals, v)
		}
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(t.Table)
	ib.Cols(cols...)
	ib.Values(vals...)

	query, args := ib.Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_type": rec.TypeName(),
		}).Error("failed to insert record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert record: %s", err.Error())
	}
	return nil
}

func (r *Repository) update(ctx context.Context, tx database.Tx, rec *record.Record) error {
	t := rec.Type()
	dirty := rec.DirtyFields()
	if len(dirty) == 0 {
		return nil
	}

	pk, ok := rec.PrimaryKeyValues()
	if !ok {
		return httperror.NewHTTPError(http.StatusBadRequest, "record is missing primary key values")
	}

	ub := database.NewUpdateBuilder()
	ub.Update(t.Table)
	for _, col := range dirty {
		ub.Set(ub.Assign(col, rec.Get(col)))
	}
	for col, v := range pk {
		ub.Where(ub.Equal(col, v))
	}

	query, args := ub.Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_type": rec.TypeName(),
		}).Error("failed to update record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update record: %s", err.Error())
	}
	return nil
}

// Delete removes a record by primary key
func (r *Repository) Delete(ctx context.Context, typeName string, id any) error {
	ctx, span := tracing.StartSpan(ctx, "RecordRepository.Delete")
	defer span.End()

	t, ok := r.types.Get(typeName)
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "unknown record type %q", typeName)
	}

	values, err := pkValues(t, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	delb := database.NewDeleteBuilder()
	delb.DeleteFrom(t.Table)
	for i, col := range t.PrimaryKey {
		delb.Where(delb.Equal(col, values[i]))
	}

	query, args := delb.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_type": typeName,
		}).Error("failed to delete record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete record: %s", err.Error())
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "record %v of type %q not found", id, typeName)
	}
	return nil
}

// FindOwned lists records owned by the explicit owner id or the current actor
func (r *Repository) FindOwned(ctx context.Context, typeName string, opts ownership.FilterOptions) ([]*record.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "RecordRepository.FindOwned")
	defer span.End()

	t, ok := r.types.Get(typeName)
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "unknown record type %q", typeName)
	}

	sb := baseSelect(t)
	sb, err := r.engine.ApplyOwnedFilter(ctx, sb, typeName, opts)
	if err != nil {
		return nil, err
	}

	return r.queryRecords(ctx, t, sb)
}

// FindNonOwned lists records whose owner chain resolves to nothing
func (r *Repository) FindNonOwned(ctx context.Context, typeName string) ([]*record.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "RecordRepository.FindNonOwned")
	defer span.End()

	t, ok := r.types.Get(typeName)
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "unknown record type %q", typeName)
	}

	sb := baseSelect(t)
	sb, err := r.engine.ApplyNonOwnedFilter(sb, typeName)
	if err != nil {
		return nil, err
	}

	return r.queryRecords(ctx, t, sb)
}

func (r *Repository) queryRecords(ctx context.Context, t *schema.Type, sb *sqlbuilder.SelectBuilder) ([]*record.Record, error) {
	query, args := sb.Build()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_type": t.Name,
		}).Error("failed to list records")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list records: %s", err.Error())
	}
	defer rows.Close()

	var items []*record.Record
	for rows.Next() {
		dest := map[string]any{}
		if err := rows.MapScan(dest); err != nil {
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to scan record: %s", err.Error())
		}
		items = append(items, record.Hydrate(t, dest))
	}
	if err := rows.Err(); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to read records: %s", err.Error())
	}

	return items, nil
}

func baseSelect(t *schema.Type) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cols := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		cols = append(cols, fmt.Sprintf("%s.%s", t.Table, col))
	}
	sb.Select(cols...)
	sb.From(t.Table)
	return sb
}

func pkValues(t *schema.Type, id any) ([]any, error) {
	if vals, ok := id.([]any); ok {
		if len(vals) != len(t.PrimaryKey) {
			return nil, fmt.Errorf("record type %q expects %d primary key value(s), got %d", t.Name, len(t.PrimaryKey), len(vals))
		}
		return vals, nil
	}
	if len(t.PrimaryKey) != 1 {
		return nil, fmt.Errorf("record type %q has a composite primary key", t.Name)
	}
	return []any{id}, nil
}
