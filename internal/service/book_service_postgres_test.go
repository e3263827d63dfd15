package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/database"
	"github.com/readtrack/readtrack/internal/repository"
	"github.com/readtrack/readtrack/internal/validation"
)

// newPostgresBookService runs against READTRACK_TEST_DATABASE_DSN with all
// migrations applied and the book tables emptied
func newPostgresBookService(t *testing.T) (*BookService, *sqlx.DB) {
	t.Helper()

	dsn := os.Getenv("READTRACK_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("READTRACK_TEST_DATABASE_DSN not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := database.NewMigrator(db.DB, "file://../../migrations")
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}

	_, err = db.Exec("TRUNCATE book_authors, books, authors RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	pg := database.NewPostgresFromDB(db, 10*time.Second)
	store := repository.NewEntityStore(pg, nil)
	svc := NewBookService(store, repository.NewBookRepository(pg, store), NewAuthorResolver(nil), validation.New(), nil)
	return svc, db
}

func count(t *testing.T, db *sqlx.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, query, args...))
	return n
}

func TestPostgres_CreateBookScenarios(t *testing.T) {
	svc, db := newPostgresBookService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateBook(ctx, dune("Frank Herbert")))
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM books"))
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM authors WHERE name = $1", "Frank Herbert"))
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM book_authors"))

	second := dune("Frank Herbert")
	second.Title = "Dune Messiah"
	require.NoError(t, svc.CreateBook(ctx, second))
	assert.Equal(t, 2, count(t, db, "SELECT count(*) FROM books"))
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM authors"))
	assert.Equal(t, 2, count(t, db, "SELECT count(*) FROM book_authors"))

	book, err := svc.GetBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	require.Len(t, book.Authors, 1)
	assert.Equal(t, "Frank Herbert", book.Authors[0].Name)
}

func TestPostgres_FailedCreateLeavesNothing(t *testing.T) {
	svc, db := newPostgresBookService(t)

	// the second author overflows varchar(255) after the book and first author are inserted
	err := svc.CreateBook(context.Background(), dune("Frank Herbert", strings.Repeat("x", 300)))

	require.Error(t, err)
	assert.Equal(t, "Data too long for field", apperror.Classify(err, apperror.ModeProduction).Message)
	assert.Equal(t, 0, count(t, db, "SELECT count(*) FROM books"))
	assert.Equal(t, 0, count(t, db, "SELECT count(*) FROM authors"))
	assert.Equal(t, 0, count(t, db, "SELECT count(*) FROM book_authors"))
}

func TestPostgres_ConcurrentCreatesShareOneAuthor(t *testing.T) {
	svc, db := newPostgresBookService(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := dune("Frank Herbert", "Brian Herbert")
			in.Title = fmt.Sprintf("Dune %d", i)
			errs[i] = svc.CreateBook(context.Background(), in)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, workers, count(t, db, "SELECT count(*) FROM books"))
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM authors WHERE name = $1", "Frank Herbert"))
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM authors WHERE name = $1", "Brian Herbert"))
	assert.Equal(t, 2*workers, count(t, db, "SELECT count(*) FROM book_authors"))
}

func TestPostgres_SoftAndHardDelete(t *testing.T) {
	svc, db := newPostgresBookService(t)
	ctx := context.Background()
	require.NoError(t, svc.CreateBook(ctx, dune("Frank Herbert")))

	require.NoError(t, svc.DeleteBook(ctx, 1))
	_, err := svc.GetBook(ctx, 1)
	assert.Equal(t, apperror.KindNotFound, apperror.Classify(err, apperror.ModeDefault).Kind)
	assert.ErrorIs(t, svc.DeleteBook(ctx, 1), apperror.ErrNotFound)
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM book_authors"))

	list, err := svc.ListBooks(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list.Books)
	assert.Zero(t, list.Total)

	require.NoError(t, svc.PurgeBook(ctx, 1))
	assert.Equal(t, 0, count(t, db, "SELECT count(*) FROM books"))
	assert.Equal(t, 0, count(t, db, "SELECT count(*) FROM book_authors"))
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM authors"))
}
