package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/model"
	"github.com/readtrack/readtrack/internal/repository"
	"github.com/readtrack/readtrack/internal/validation"
)

var errInjected = errors.New("injected failure")

func newTestBookService(store *memStore, books BookReader) *BookService {
	return NewBookService(store, books, NewAuthorResolver(nil), validation.New(), nil)
}

func dune(authors ...string) model.CreateBookInput {
	in := model.CreateBookInput{
		Title:    "Dune",
		Language: "en",
		Genre:    model.GenreFiction,
		Pages:    412,
	}
	for _, name := range authors {
		in.Authors = append(in.Authors, model.AuthorInput{Name: name})
	}
	return in
}

// failNth fails the nth call (1-based) of op on table
func failNth(op string, table repository.Table, n int) func(string, repository.Table) error {
	calls := 0
	return func(gotOp string, gotTable repository.Table) error {
		if gotOp != op || gotTable != table {
			return nil
		}
		calls++
		if calls == n {
			return errInjected
		}
		return nil
	}
}

func TestCreateBook_EmptyStore(t *testing.T) {
	store := newMemStore()
	svc := newTestBookService(store, nil)

	err := svc.CreateBook(context.Background(), dune("Frank Herbert"))

	require.NoError(t, err)
	assert.Equal(t, 1, store.bookCount())
	require.Len(t, store.authorIDs("Frank Herbert"), 1)
	assert.Equal(t, store.authorIDs("Frank Herbert"), store.linksOf(1))
}

func TestCreateBook_ReusesExistingAuthor(t *testing.T) {
	store := newMemStore()
	svc := newTestBookService(store, nil)

	require.NoError(t, svc.CreateBook(context.Background(), dune("Frank Herbert")))
	second := dune("Frank Herbert")
	second.Title = "Dune Messiah"
	require.NoError(t, svc.CreateBook(context.Background(), second))

	assert.Equal(t, 2, store.bookCount())
	ids := store.authorIDs("Frank Herbert")
	require.Len(t, ids, 1)
	assert.Equal(t, 2, store.linkCount())
	assert.Equal(t, ids, store.linksOf(1))
	assert.Equal(t, ids, store.linksOf(2))
}

func TestCreateBook_ExistingAuthorIsNotOverwritten(t *testing.T) {
	store := newMemStore()
	existing := store.commitAuthor("Frank Herbert")
	svc := newTestBookService(store, nil)

	desc := "American science-fiction author"
	in := dune()
	in.Authors = []model.AuthorInput{{Name: "Frank Herbert", Description: &desc}}
	require.NoError(t, svc.CreateBook(context.Background(), in))

	assert.Equal(t, []uuid.UUID{existing}, store.linksOf(1))
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.authors[existing], "description")
}

func TestCreateBook_NameMatchIsExact(t *testing.T) {
	store := newMemStore()
	store.commitAuthor("Frank Herbert")
	svc := newTestBookService(store, nil)

	require.NoError(t, svc.CreateBook(context.Background(), dune("frank herbert")))

	assert.Equal(t, 2, store.authorCount())
}

func TestCreateBook_DuplicateNamesInOneRequest(t *testing.T) {
	store := newMemStore()
	svc := newTestBookService(store, nil)

	err := svc.CreateBook(context.Background(), dune("Frank Herbert", "Brian Herbert", "Frank Herbert"))

	require.NoError(t, err)
	assert.Equal(t, 2, store.authorCount())
	links := store.linksOf(1)
	require.Len(t, links, 2)
	assert.Equal(t, store.authorIDs("Frank Herbert")[0], links[0])
	assert.Equal(t, store.authorIDs("Brian Herbert")[0], links[1])
}

func TestCreateBook_Atomicity(t *testing.T) {
	tests := []struct {
		name  string
		fault func(string, repository.Table) error
	}{
		{"book insert", failNth("insert", repository.Books, 1)},
		{"first author lookup", failNth("find", repository.Authors, 1)},
		{"second author insert", failNth("insert", repository.Authors, 2)},
		{"association insert", failNth("insert", repository.BookAuthors, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			existing := store.commitAuthor("Kevin J. Anderson")
			store.fault = tt.fault
			svc := newTestBookService(store, nil)

			err := svc.CreateBook(context.Background(), dune("Frank Herbert", "Brian Herbert", "Kevin J. Anderson"))

			require.ErrorIs(t, err, errInjected)
			assert.Equal(t, 0, store.bookCount())
			assert.Equal(t, 1, store.authorCount())
			assert.Equal(t, []uuid.UUID{existing}, store.authorIDs("Kevin J. Anderson"))
			assert.Equal(t, 0, store.linkCount())
		})
	}
}

func TestCreateBook_StoreErrorsPropagateUnchanged(t *testing.T) {
	store := newMemStore()
	store.fault = failNth("insert", repository.BookAuthors, 1)
	svc := newTestBookService(store, nil)

	err := svc.CreateBook(context.Background(), dune("Frank Herbert"))

	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, apperror.KindInternal, apperror.Classify(err, apperror.ModeDefault).Kind)
}

func TestCreateBook_ConcurrentAuthorCreation(t *testing.T) {
	store := newMemStore()
	var winner uuid.UUID
	// another transaction commits the same author between our lookup and insert
	store.onAuthorMiss = func(s *memStore) {
		winner = s.commitAuthor("Frank Herbert")
	}
	svc := newTestBookService(store, nil)

	err := svc.CreateBook(context.Background(), dune("Frank Herbert"))

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{winner}, store.authorIDs("Frank Herbert"))
	assert.Equal(t, []uuid.UUID{winner}, store.linksOf(1))
}

func TestCreateBook_ParallelRequestsShareAuthor(t *testing.T) {
	store := newMemStore()
	svc := newTestBookService(store, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := dune("Frank Herbert")
			in.Title = fmt.Sprintf("Dune %d", i)
			errs[i] = svc.CreateBook(context.Background(), in)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 8, store.bookCount())
	assert.Len(t, store.authorIDs("Frank Herbert"), 1)
	assert.Equal(t, 8, store.linkCount())
}

func TestCreateBook_ResolveGivesUpAfterRepeatedConflicts(t *testing.T) {
	tx := &conflictingTx{}

	_, err := NewAuthorResolver(nil).Resolve(context.Background(), tx, model.AuthorInput{Name: "Frank Herbert"})

	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, MaxResolveAttempts, tx.inserts)
}

func TestCreateBook_ValidationRunsBeforeTransaction(t *testing.T) {
	store := newMemStore()
	opened := false
	store.fault = func(string, repository.Table) error {
		opened = true
		return nil
	}
	svc := newTestBookService(store, nil)

	in := dune()
	err := svc.CreateBook(context.Background(), in)

	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.False(t, opened)
	assert.Equal(t, 0, store.bookCount())
}

func TestCreateBook_CanceledContextRollsBack(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	store.fault = func(op string, table repository.Table) error {
		if op == "insert" && table == repository.Books {
			cancel()
		}
		return nil
	}
	svc := newTestBookService(store, nil)

	err := svc.CreateBook(ctx, dune("Frank Herbert"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.bookCount())
	assert.Equal(t, 0, store.authorCount())
}

// conflictingTx never finds the author and never wins the insert
type conflictingTx struct {
	repository.Tx
	inserts int
}

func (c *conflictingTx) FindOneWhere(context.Context, repository.Table, goqu.Ex, any) error {
	return sql.ErrNoRows
}

func (c *conflictingTx) InsertIgnoringConflict(context.Context, repository.Table, goqu.Record, any) (bool, error) {
	c.inserts++
	return false, nil
}

type stubBooks struct {
	book       *model.Book
	authors    []model.Author
	list       []model.Book
	total      int64
	page       repository.Page
	deleted    bool
	err        error
	deletedIDs []int64
}

func (s *stubBooks) GetByID(_ context.Context, id int64) (*model.Book, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.book == nil || s.book.ID != id {
		return nil, fmt.Errorf("failed to get books: %w", sql.ErrNoRows)
	}
	return s.book, nil
}

func (s *stubBooks) ListAuthors(context.Context, int64) ([]model.Author, error) {
	return s.authors, nil
}

func (s *stubBooks) List(_ context.Context, page repository.Page) ([]model.Book, int64, error) {
	s.page = page
	return s.list, s.total, s.err
}

func (s *stubBooks) SoftDelete(_ context.Context, id int64) (bool, error) {
	s.deletedIDs = append(s.deletedIDs, id)
	return s.deleted, s.err
}

func (s *stubBooks) HardDelete(_ context.Context, id int64) (bool, error) {
	s.deletedIDs = append(s.deletedIDs, id)
	return s.deleted, s.err
}

func TestGetBook(t *testing.T) {
	books := &stubBooks{
		book:    &model.Book{ID: 4, Title: "Dune"},
		authors: []model.Author{{Name: "Frank Herbert"}},
	}
	svc := newTestBookService(newMemStore(), books)

	got, err := svc.GetBook(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, []model.Author{{Name: "Frank Herbert"}}, got.Authors)
}

func TestGetBook_MissingIsNotFound(t *testing.T) {
	svc := newTestBookService(newMemStore(), &stubBooks{})

	_, err := svc.GetBook(context.Background(), 4)

	out := apperror.Classify(err, apperror.ModeProduction)
	assert.Equal(t, apperror.KindNotFound, out.Kind)
	assert.Equal(t, "Resource not found", out.Message)
}

func TestListBooks_Paging(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		want        repository.Page
	}{
		{"defaults", 0, 0, repository.Page{Limit: 50, Offset: 0}},
		{"third page", 3, 20, repository.Page{Limit: 20, Offset: 40}},
		{"max limit", 1, 100, repository.Page{Limit: 100, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books := &stubBooks{total: 7}
			svc := newTestBookService(newMemStore(), books)

			list, err := svc.ListBooks(context.Background(), tt.page, tt.limit)

			require.NoError(t, err)
			assert.Equal(t, tt.want, books.page)
			assert.Equal(t, int64(7), list.Total)
		})
	}
}

func TestListBooks_RejectsBadPaging(t *testing.T) {
	svc := newTestBookService(newMemStore(), &stubBooks{})

	_, err := svc.ListBooks(context.Background(), -1, 10)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.ListBooks(context.Background(), 1, 101)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDeleteBook(t *testing.T) {
	books := &stubBooks{deleted: true}
	svc := newTestBookService(newMemStore(), books)

	require.NoError(t, svc.DeleteBook(context.Background(), 9))
	require.NoError(t, svc.PurgeBook(context.Background(), 9))
	assert.Equal(t, []int64{9, 9}, books.deletedIDs)
}

func TestDeleteBook_MissingIsNotFound(t *testing.T) {
	svc := newTestBookService(newMemStore(), &stubBooks{deleted: false})

	err := svc.DeleteBook(context.Background(), 9)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "Book with id 9 not found")

	err = svc.PurgeBook(context.Background(), 9)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
