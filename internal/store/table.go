package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/paginate"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
)

// Table is the shared CRUD and cursor-pagination surface of one collection.
// Methods taking a bun.IDB run on it when non-nil, so callers can pass a
// transaction; nil means the table's own connection.
type Table[T any] struct {
	db   bun.IDB
	kind string
	id   func(T) uuid.UUID
}

func newTable[T any](db bun.IDB, kind string, id func(T) uuid.UUID) Table[T] {
	return Table[T]{db: db, kind: kind, id: id}
}

// DB returns the connection the table was built with.
func (t Table[T]) DB() bun.IDB { return t.db }

func (t Table[T]) conn(idb bun.IDB) bun.IDB {
	if idb != nil {
		return idb
	}
	return t.db
}

// Anchor resolves a cursor id into its ordering value. Ids that do not parse
// or no longer exist resolve to nil.
func (t Table[T]) Anchor(ctx context.Context, order paginate.Order, id string) (*paginate.Anchor, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	var value time.Time
	err = t.db.NewSelect().
		Model((*T)(nil)).
		Column(order.Field).
		Where("? = ?", bun.Ident("id"), uid).
		Limit(1).
		Scan(ctx, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: resolve %s cursor: %w", t.kind, err)
	}
	return &paginate.Anchor{ID: uid.String(), Value: value}, nil
}

// Slice returns up to limit records after the anchor, ordered by order with
// id as tiebreaker.
func (t Table[T]) Slice(ctx context.Context, spec *query.Spec, order paginate.Order, after *paginate.Anchor, limit int) ([]T, error) {
	if err := spec.Err(); err != nil {
		return nil, err
	}

	cmp, dir := ">", "ASC"
	if order.Desc {
		cmp, dir = "<", "DESC"
	}
	col := bun.Ident(order.Field)
	idCol := bun.Ident("id")

	var items []T
	q := spec.Apply(t.db.NewSelect().Model(&items))
	if after != nil {
		afterID, err := uuid.Parse(after.ID)
		if err != nil {
			return nil, fmt.Errorf("store: bad anchor id %q: %w", after.ID, err)
		}
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("? "+cmp+" ?", col, after.Value).
				WhereOr("? = ? AND ? "+cmp+" ?", col, after.Value, idCol, afterID)
		})
	}
	err := q.OrderExpr("? "+dir+", ? "+dir, col, idCol).Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", t.kind, err)
	}
	return items, nil
}

// ID implements paginate.Source.
func (t Table[T]) ID(item T) string {
	return t.id(item).String()
}

// Get loads one record by id.
func (t Table[T]) Get(ctx context.Context, idb bun.IDB, id uuid.UUID) (T, error) {
	var rec T
	err := t.conn(idb).NewSelect().Model(&rec).Where("? = ?", bun.Ident("id"), id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, domain.NotFound(t.kind, id)
	}
	if err != nil {
		return rec, fmt.Errorf("store: get %s: %w", t.kind, err)
	}
	return rec, nil
}

// ByIDs loads every record whose id is in ids. Missing ids are skipped.
func (t Table[T]) ByIDs(ctx context.Context, idb bun.IDB, ids []uuid.UUID) ([]T, error) {
	var items []T
	if len(ids) == 0 {
		return items, nil
	}
	err := t.conn(idb).NewSelect().Model(&items).Where("? IN (?)", bun.Ident("id"), bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: load %s batch: %w", t.kind, err)
	}
	return items, nil
}

// Insert writes a new record.
func (t Table[T]) Insert(ctx context.Context, idb bun.IDB, rec *T) error {
	if _, err := t.conn(idb).NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("store: insert %s: %w", t.kind, err)
	}
	return nil
}

// Update rewrites every column of rec, matched by primary key.
func (t Table[T]) Update(ctx context.Context, idb bun.IDB, rec *T) error {
	res, err := t.conn(idb).NewUpdate().Model(rec).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", t.kind, err)
	}
	return t.expectRow(res, t.id(*rec))
}

// Delete removes a record by id.
func (t Table[T]) Delete(ctx context.Context, idb bun.IDB, id uuid.UUID) error {
	res, err := t.conn(idb).NewDelete().Model((*T)(nil)).Where("? = ?", bun.Ident("id"), id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", t.kind, err)
	}
	return t.expectRow(res, id)
}

// Patch sets the given legacy-or-current fields on one record after
// translating them to typed columns. updated_at is always bumped.
func (t Table[T]) Patch(ctx context.Context, idb bun.IDB, id uuid.UUID, fields map[string]any, now time.Time) error {
	cols, err := TranslateLegacyFields(t.kind, fields)
	if err != nil {
		return err
	}
	return t.PatchColumns(ctx, idb, id, cols, now)
}

// PatchColumns sets already translated columns on one record.
func (t Table[T]) PatchColumns(ctx context.Context, idb bun.IDB, id uuid.UUID, cols map[string]any, now time.Time) error {
	if len(cols) == 0 {
		return domain.Invalid("no updatable fields supplied")
	}

	q := t.conn(idb).NewUpdate().Model((*T)(nil))
	for _, name := range sortedKeys(cols) {
		q = q.Set("? = ?", bun.Ident(name), cols[name])
	}
	res, err := q.Set("? = ?", bun.Ident("updated_at"), now).
		Where("? = ?", bun.Ident("id"), id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: patch %s: %w", t.kind, err)
	}
	return t.expectRow(res, id)
}

// EmailTaken reports whether another record already uses email, ignoring case.
func (t Table[T]) EmailTaken(ctx context.Context, idb bun.IDB, email string, except uuid.UUID) (bool, error) {
	q := t.conn(idb).NewSelect().Model((*T)(nil)).Where("lower(?) = lower(?)", bun.Ident("email"), email)
	if except != uuid.Nil {
		q = q.Where("? <> ?", bun.Ident("id"), except)
	}
	taken, err := q.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("store: check %s email: %w", t.kind, err)
	}
	return taken, nil
}

// Count returns how many records match spec.
func (t Table[T]) Count(ctx context.Context, spec *query.Spec) (int, error) {
	if err := spec.Err(); err != nil {
		return 0, err
	}
	n, err := spec.Apply(t.db.NewSelect().Model((*T)(nil))).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: count %s: %w", t.kind, err)
	}
	return n, nil
}

// Scan loads up to limit records matching spec, newest first.
func (t Table[T]) Scan(ctx context.Context, spec *query.Spec, limit int) ([]T, error) {
	return t.Slice(ctx, spec, paginate.NewestFirst, nil, limit)
}

func (t Table[T]) expectRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return domain.NotFound(t.kind, id)
	}
	return nil
}
