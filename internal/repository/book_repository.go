package repository

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/readtrack/readtrack/internal/database"
	"github.com/readtrack/readtrack/internal/model"
)

// BookRepository handles book reads and deletes outside the creation path
type BookRepository struct {
	db    *database.Postgres
	store *EntityStore
}

// NewBookRepository creates a new BookRepository
func NewBookRepository(db *database.Postgres, store *EntityStore) *BookRepository {
	return &BookRepository{db: db, store: store}
}

// GetByID retrieves an active book. A missing or soft-deleted book yields an
// error wrapping sql.ErrNoRows.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	var book model.Book
	if err := r.store.FindOneWhere(ctx, r.db, Books, goqu.Ex{"id": id}, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// ListAuthors returns the active authors linked to a book, ordered by name
func (r *BookRepository) ListAuthors(ctx context.Context, bookID int64) ([]model.Author, error) {
	ds := r.store.Dialect().
		From(goqu.T(Authors.Name).As("a")).
		Join(goqu.T(BookAuthors.Name).As("ba"), goqu.On(goqu.I("ba.author_id").Eq(goqu.I("a.id")))).
		Select(goqu.T("a").All()).
		Where(
			goqu.I("ba.book_id").Eq(bookID),
			goqu.I("a.deleted_at").IsNull(),
		).
		Order(goqu.I("a.name").Asc())

	authors := make([]model.Author, 0)
	if err := r.store.Select(ctx, r.db, ds, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

// List returns a page of active books and the total number of active books
func (r *BookRepository) List(ctx context.Context, page Page) ([]model.Book, int64, error) {
	total, err := r.store.Count(ctx, r.db, Books, nil)
	if err != nil {
		return nil, 0, err
	}

	books := make([]model.Book, 0)
	if err := r.store.FindWhere(ctx, r.db, Books, nil, page, &books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// SoftDelete marks an active book deleted and reports whether it existed
func (r *BookRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	n, err := r.store.SoftDeleteWhere(ctx, r.db, Books, goqu.Ex{"id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HardDelete physically removes a book, soft-deleted or not, together with its
// associations and reads. It reports whether a row was removed.
func (r *BookRepository) HardDelete(ctx context.Context, id int64) (bool, error) {
	n, err := r.store.HardDeleteWhere(ctx, r.db, Books, goqu.Ex{"id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
