package service

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/logger"
	"github.com/readtrack/readtrack/internal/model"
	"github.com/readtrack/readtrack/internal/repository"
	"github.com/readtrack/readtrack/internal/validation"
)

// Paging limits of ListBooks
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// BookReader is the read and delete side of book storage
type BookReader interface {
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	ListAuthors(ctx context.Context, bookID int64) ([]model.Author, error)
	List(ctx context.Context, page repository.Page) ([]model.Book, int64, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
	HardDelete(ctx context.Context, id int64) (bool, error)
}

// BookService handles book business logic
type BookService struct {
	tx        repository.Transactor
	books     BookReader
	resolver  *AuthorResolver
	validator *validation.Validator
	log       *logger.Logger
}

// NewBookService creates a new BookService
func NewBookService(
	tx repository.Transactor,
	books BookReader,
	resolver *AuthorResolver,
	validator *validation.Validator,
	log *logger.Logger,
) *BookService {
	if log == nil {
		log = logger.Nop()
	}
	return &BookService{
		tx:        tx,
		books:     books,
		resolver:  resolver,
		validator: validator,
		log:       log.WithComponent("book_service"),
	}
}

// BookList is one page of active books
type BookList struct {
	Books []model.Book `json:"books"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// CreateBook inserts a book, resolves each author candidate in order and links
// the resolved authors, all in one transaction. Nothing is persisted unless
// every step succeeds.
func (s *BookService) CreateBook(ctx context.Context, in model.CreateBookInput) error {
	if err := s.validator.Validate(in); err != nil {
		return err
	}

	var bookID int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.InsertReturningID(ctx, repository.Books, in.Record(), &bookID); err != nil {
			return err
		}

		seen := make(map[uuid.UUID]struct{}, len(in.Authors))
		links := make([]goqu.Record, 0, len(in.Authors))
		for _, candidate := range in.Authors {
			if err := ctx.Err(); err != nil {
				return err
			}

			authorID, err := s.resolver.Resolve(ctx, tx, candidate)
			if err != nil {
				return err
			}
			if _, dup := seen[authorID]; dup {
				continue
			}
			seen[authorID] = struct{}{}
			links = append(links, model.BookAuthor{BookID: bookID, AuthorID: authorID}.Record())
		}

		return tx.InsertMany(ctx, repository.BookAuthors, links)
	})
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	s.log.Info().Int64("book_id", bookID).Int("authors", len(in.Authors)).Msg("book created")
	return nil
}

// GetBook returns an active book with its active authors. A missing book
// surfaces the store's no-row error.
func (s *BookService) GetBook(ctx context.Context, id int64) (*model.BookWithAuthors, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book %d: %w", id, err)
	}

	authors, err := s.books.ListAuthors(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors of book %d: %w", id, err)
	}

	return &model.BookWithAuthors{Book: *book, Authors: authors}, nil
}

// ListBooks returns one page of active books ordered by id. page starts at 1;
// zero values select the first page and the default limit.
func (s *BookService) ListBooks(ctx context.Context, page, limit int) (*BookList, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if page < 1 {
		return nil, apperror.Validation("page must be at least 1")
	}
	if limit < 1 || limit > MaxPageLimit {
		return nil, apperror.Validationf("limit must be between 1 and %d", MaxPageLimit)
	}

	books, total, err := s.books.List(ctx, repository.Page{
		Limit:  uint(limit),
		Offset: uint((page - 1) * limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return &BookList{Books: books, Total: total, Page: page, Limit: limit}, nil
}

// DeleteBook soft-deletes an active book
func (s *BookService) DeleteBook(ctx context.Context, id int64) error {
	deleted, err := s.books.SoftDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete book %d: %w", id, err)
	}
	if !deleted {
		return apperror.NotFoundf("Book with id %d not found", id)
	}

	s.log.Info().Int64("book_id", id).Msg("book soft-deleted")
	return nil
}

// PurgeBook physically removes a book, including a soft-deleted one, and its
// author links
func (s *BookService) PurgeBook(ctx context.Context, id int64) error {
	deleted, err := s.books.HardDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to purge book %d: %w", id, err)
	}
	if !deleted {
		return apperror.NotFoundf("Book with id %d not found", id)
	}

	s.log.Info().Int64("book_id", id).Msg("book purged")
	return nil
}
