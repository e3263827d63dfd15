package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/readtrack/readtrack/internal/model"
	"github.com/readtrack/readtrack/internal/repository"
)

// memStore is an in-memory repository.Transactor. Writes of a transaction stay
// pending until fn returns nil and are discarded otherwise. Transactions run
// one at a time.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextBookID int64
	books      map[int64]goqu.Record
	authors    map[uuid.UUID]goqu.Record
	links      []model.BookAuthor

	// fault is consulted before every primitive; a non-nil result fails it
	fault func(op string, table repository.Table) error
	// onAuthorMiss runs once, right after the first author lookup that finds nothing
	onAuthorMiss func(s *memStore)
}

func newMemStore() *memStore {
	return &memStore{
		books:   make(map[int64]goqu.Record),
		authors: make(map[uuid.UUID]goqu.Record),
	}
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{
		store:   s,
		books:   make(map[int64]goqu.Record),
		authors: make(map[uuid.UUID]goqu.Record),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range tx.books {
		s.books[id] = row
	}
	for id, row := range tx.authors {
		s.authors[id] = row
	}
	s.links = append(s.links, tx.links...)
	return nil
}

// commitAuthor inserts an author outside any transaction, as a concurrent
// transaction that already committed would have
func (s *memStore) commitAuthor(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.authors[id] = goqu.Record{"name": name}
	return id
}

func (s *memStore) check(op string, table repository.Table) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, table)
}

func (s *memStore) bookCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.books)
}

func (s *memStore) authorIDs(name string) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for id, row := range s.authors {
		if row["name"] == name {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *memStore) authorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.authors)
}

func (s *memStore) linksOf(bookID int64) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for _, l := range s.links {
		if l.BookID == bookID {
			ids = append(ids, l.AuthorID)
		}
	}
	return ids
}

func (s *memStore) linkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

type memTx struct {
	store   *memStore
	books   map[int64]goqu.Record
	authors map[uuid.UUID]goqu.Record
	links   []model.BookAuthor
}

func (t *memTx) InsertReturningID(_ context.Context, table repository.Table, row goqu.Record, id any) error {
	if err := t.store.check("insert", table); err != nil {
		return err
	}

	switch table {
	case repository.Books:
		t.store.mu.Lock()
		t.store.nextBookID++
		bookID := t.store.nextBookID
		t.store.mu.Unlock()

		t.books[bookID] = row
		*id.(*int64) = bookID
	case repository.Authors:
		authorID := uuid.New()
		t.authors[authorID] = row
		*id.(*uuid.UUID) = authorID
	default:
		return fmt.Errorf("%s: %w", table.Name, repository.ErrNoIDColumn)
	}
	return nil
}

func (t *memTx) InsertIgnoringConflict(ctx context.Context, table repository.Table, row goqu.Record, id any) (bool, error) {
	if table != repository.Authors {
		return false, fmt.Errorf("memstore: conflict handling only supported on authors, got %s", table.Name)
	}
	if err := t.store.check("insert", table); err != nil {
		return false, err
	}

	if _, _, ok := t.findAuthor(row["name"]); ok {
		return false, nil
	}

	authorID := uuid.New()
	t.authors[authorID] = row
	*id.(*uuid.UUID) = authorID
	return true, nil
}

func (t *memTx) FindOneWhere(_ context.Context, table repository.Table, where goqu.Ex, dest any) error {
	if table != repository.Authors {
		return fmt.Errorf("memstore: lookups only supported on authors, got %s", table.Name)
	}
	if err := t.store.check("find", table); err != nil {
		return err
	}

	id, row, ok := t.findAuthor(where["name"])
	if !ok {
		if hook := t.store.onAuthorMiss; hook != nil {
			t.store.onAuthorMiss = nil
			hook(t.store)
		}
		return fmt.Errorf("failed to get %s: %w", table.Name, sql.ErrNoRows)
	}

	author := dest.(*model.Author)
	author.ID = id
	author.Name, _ = row["name"].(string)
	return nil
}

func (t *memTx) InsertMany(_ context.Context, table repository.Table, rows []goqu.Record) error {
	if table != repository.BookAuthors {
		return fmt.Errorf("memstore: bulk insert only supported on book_authors, got %s", table.Name)
	}
	if err := t.store.check("insert", table); err != nil {
		return err
	}

	for _, row := range rows {
		link := model.BookAuthor{
			BookID:   row["book_id"].(int64),
			AuthorID: uuid.MustParse(row["author_id"].(string)),
		}
		if t.hasLink(link) {
			return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint \"book_authors_pkey\""}
		}
		t.links = append(t.links, link)
	}
	return nil
}

// findAuthor sees this transaction's own writes and everything committed
func (t *memTx) findAuthor(name any) (uuid.UUID, goqu.Record, bool) {
	for id, row := range t.authors {
		if row["name"] == name {
			return id, row, true
		}
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, row := range t.store.authors {
		if row["name"] == name {
			return id, row, true
		}
	}
	return uuid.Nil, nil, false
}

func (t *memTx) hasLink(link model.BookAuthor) bool {
	for _, l := range t.links {
		if l == link {
			return true
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, l := range t.store.links {
		if l == link {
			return true
		}
	}
	return false
}
