package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jmoiron/sqlx"

	"github.com/readtrack/readtrack/internal/database"
	"github.com/readtrack/readtrack/internal/logger"
)

const (
	dialectPostgres = "postgres"
	colDeletedAt    = "deleted_at"
	colUpdatedAt    = "updated_at"
)

// ErrNoIDColumn is returned when an id-returning insert targets a table without an id column
var ErrNoIDColumn = errors.New("table has no id column")

// Table describes one table addressable by the entity store
type Table struct {
	Name string
	// IDColumn is the store-assigned primary key; empty for association tables
	IDColumn string
	// SoftDelete marks tables carrying deleted_at; reads skip rows where it is set
	SoftDelete bool
}

// Tables of the reading-tracking schema
var (
	Books       = Table{Name: "books", IDColumn: "id", SoftDelete: true}
	Authors     = Table{Name: "authors", IDColumn: "id", SoftDelete: true}
	BookAuthors = Table{Name: "book_authors"}
)

// Page bounds a multi-row read
type Page struct {
	Limit  uint
	Offset uint
}

// Tx is a transaction-scoped handle. Every write made through it commits or
// rolls back together with the transaction that produced it.
type Tx interface {
	// InsertReturningID inserts row and scans the generated id into id
	InsertReturningID(ctx context.Context, t Table, row goqu.Record, id any) error
	// InsertIgnoringConflict inserts row unless it collides with a unique constraint.
	// It reports whether a row was inserted; id is only written when it was.
	InsertIgnoringConflict(ctx context.Context, t Table, row goqu.Record, id any) (bool, error)
	// FindOneWhere scans the first active row matching where into dest.
	// It returns an error wrapping sql.ErrNoRows when nothing matches.
	FindOneWhere(ctx context.Context, t Table, where goqu.Ex, dest any) error
	// InsertMany inserts all rows in one statement
	InsertMany(ctx context.Context, t Table, rows []goqu.Record) error
}

// Transactor opens units of work
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// EntityStore is generic row-level access to the tables above. Statements are
// built with goqu and executed on any sqlx handle, so the same primitives serve
// plain connections and transactions.
type EntityStore struct {
	db      *database.Postgres
	dialect goqu.DialectWrapper
	log     *logger.Logger
	now     func() time.Time
}

// NewEntityStore creates a new EntityStore
func NewEntityStore(db *database.Postgres, log *logger.Logger) *EntityStore {
	if log == nil {
		log = logger.Nop()
	}
	return &EntityStore{
		db:      db,
		dialect: goqu.Dialect(dialectPostgres),
		log:     log.WithComponent("entity_store"),
		now:     time.Now,
	}
}

// WithTransaction runs fn in a READ COMMITTED transaction.
//
// READ COMMITTED is required by the author resolver: after a unique-index
// conflict it re-reads the row the competing transaction just committed,
// which a REPEATABLE READ snapshot would not see.
func (s *EntityStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return s.db.WithTransaction(ctx, opts, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, &storeTx{store: s, tx: tx})
	})
}

// InsertReturningID inserts row into t and scans the generated id into id
func (s *EntityStore) InsertReturningID(ctx context.Context, q sqlx.QueryerContext, t Table, row goqu.Record, id any) error {
	query, args, err := s.insertSQL(t, []goqu.Record{row}, false)
	if err != nil {
		return err
	}
	s.logQuery(query)

	if err := q.QueryRowxContext(ctx, query, args...).Scan(id); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", t.Name, err)
	}
	return nil
}

// InsertIgnoringConflict inserts row into t with ON CONFLICT DO NOTHING
func (s *EntityStore) InsertIgnoringConflict(ctx context.Context, q sqlx.QueryerContext, t Table, row goqu.Record, id any) (bool, error) {
	query, args, err := s.insertSQL(t, []goqu.Record{row}, true)
	if err != nil {
		return false, err
	}
	s.logQuery(query)

	err = q.QueryRowxContext(ctx, query, args...).Scan(id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert into %s: %w", t.Name, err)
	}
	return true, nil
}

// InsertMany inserts rows into t in a single statement
func (s *EntityStore) InsertMany(ctx context.Context, q sqlx.ExecerContext, t Table, rows []goqu.Record) error {
	if len(rows) == 0 {
		return nil
	}

	vals := make([]any, len(rows))
	for i, r := range rows {
		vals[i] = r
	}
	query, args, err := s.dialect.Insert(t.Name).Rows(vals...).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build insert into %s: %w", t.Name, err)
	}
	s.logQuery(query)

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", t.Name, err)
	}
	return nil
}

// FindOneWhere scans the first active row of t matching where into dest
func (s *EntityStore) FindOneWhere(ctx context.Context, q sqlx.QueryerContext, t Table, where goqu.Ex, dest any) error {
	ds := s.selectFrom(t, where).Limit(1)
	return s.Get(ctx, q, ds, dest)
}

// FindWhere scans all active rows of t matching where, ordered by id, into dest (a slice pointer)
func (s *EntityStore) FindWhere(ctx context.Context, q sqlx.QueryerContext, t Table, where goqu.Ex, page Page, dest any) error {
	ds := s.selectFrom(t, where)
	if t.IDColumn != "" {
		ds = ds.Order(goqu.C(t.IDColumn).Asc())
	}
	if page.Limit > 0 {
		ds = ds.Limit(page.Limit)
	}
	if page.Offset > 0 {
		ds = ds.Offset(page.Offset)
	}
	return s.Select(ctx, q, ds, dest)
}

// Count returns the number of active rows of t matching where
func (s *EntityStore) Count(ctx context.Context, q sqlx.QueryerContext, t Table, where goqu.Ex) (int64, error) {
	ds := s.selectFrom(t, where).Select(goqu.COUNT(goqu.Star()))
	var n int64
	if err := s.Get(ctx, q, ds, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateWhere sets columns on active rows of t matching where and returns the affected row count
func (s *EntityStore) UpdateWhere(ctx context.Context, q sqlx.ExecerContext, t Table, set goqu.Record, where goqu.Ex) (int64, error) {
	ds := s.dialect.Update(t.Name).Set(set).Where(s.conditions(t, where)...)
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build update of %s: %w", t.Name, err)
	}
	return s.exec(ctx, q, t, query, args)
}

// SoftDeleteWhere stamps deleted_at on active rows of t matching where
func (s *EntityStore) SoftDeleteWhere(ctx context.Context, q sqlx.ExecerContext, t Table, where goqu.Ex) (int64, error) {
	if !t.SoftDelete {
		return 0, fmt.Errorf("table %s does not support soft delete", t.Name)
	}
	now := s.now().UTC()
	return s.UpdateWhere(ctx, q, t, goqu.Record{colDeletedAt: now, colUpdatedAt: now}, where)
}

// HardDeleteWhere physically removes rows of t matching where, soft-deleted or not.
// Dependent rows go through the ON DELETE CASCADE constraints.
func (s *EntityStore) HardDeleteWhere(ctx context.Context, q sqlx.ExecerContext, t Table, where goqu.Ex) (int64, error) {
	query, args, err := s.dialect.Delete(t.Name).Where(where).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete from %s: %w", t.Name, err)
	}
	return s.exec(ctx, q, t, query, args)
}

// Get runs ds and scans exactly one row into dest
func (s *EntityStore) Get(ctx context.Context, q sqlx.QueryerContext, ds *goqu.SelectDataset, dest any) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build select: %w", err)
	}
	s.logQuery(query)

	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		return fmt.Errorf("failed to select row: %w", err)
	}
	return nil
}

// Select runs ds and scans every row into dest
func (s *EntityStore) Select(ctx context.Context, q sqlx.QueryerContext, ds *goqu.SelectDataset, dest any) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build select: %w", err)
	}
	s.logQuery(query)

	if err := sqlx.SelectContext(ctx, q, dest, query, args...); err != nil {
		return fmt.Errorf("failed to select rows: %w", err)
	}
	return nil
}

// Dialect exposes the SQL builder for queries beyond the single-table primitives
func (s *EntityStore) Dialect() goqu.DialectWrapper {
	return s.dialect
}

func (s *EntityStore) insertSQL(t Table, rows []goqu.Record, ignoreConflict bool) (string, []any, error) {
	if t.IDColumn == "" {
		return "", nil, fmt.Errorf("%s: %w", t.Name, ErrNoIDColumn)
	}

	vals := make([]any, len(rows))
	for i, r := range rows {
		vals[i] = r
	}
	ds := s.dialect.Insert(t.Name).Rows(vals...).Returning(goqu.C(t.IDColumn))
	if ignoreConflict {
		ds = ds.OnConflict(goqu.DoNothing())
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build insert into %s: %w", t.Name, err)
	}
	return query, args, nil
}

func (s *EntityStore) selectFrom(t Table, where goqu.Ex) *goqu.SelectDataset {
	return s.dialect.From(t.Name).Where(s.conditions(t, where)...)
}

// conditions adds the active-row filter to where for soft-deletable tables
func (s *EntityStore) conditions(t Table, where goqu.Ex) []goqu.Expression {
	var exps []goqu.Expression
	if len(where) > 0 {
		exps = append(exps, where)
	}
	if t.SoftDelete {
		exps = append(exps, goqu.C(colDeletedAt).IsNull())
	}
	return exps
}

func (s *EntityStore) exec(ctx context.Context, q sqlx.ExecerContext, t Table, query string, args []any) (int64, error) {
	s.logQuery(query)

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (s *EntityStore) logQuery(query string) {
	s.log.Debug().Str("query", query).Msg("executing sql")
}

// storeTx binds the entity store primitives to one open transaction
type storeTx struct {
	store *EntityStore
	tx    *sqlx.Tx
}

func (t *storeTx) InsertReturningID(ctx context.Context, table Table, row goqu.Record, id any) error {
	return t.store.InsertReturningID(ctx, t.tx, table, row, id)
}

func (t *storeTx) InsertIgnoringConflict(ctx context.Context, table Table, row goqu.Record, id any) (bool, error) {
	return t.store.InsertIgnoringConflict(ctx, t.tx, table, row, id)
}

func (t *storeTx) FindOneWhere(ctx context.Context, table Table, where goqu.Ex, dest any) error {
	return t.store.FindOneWhere(ctx, t.tx, table, where, dest)
}

func (t *storeTx) InsertMany(ctx context.Context, table Table, rows []goqu.Record) error {
	return t.store.InsertMany(ctx, t.tx, table, rows)
}
