package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/logger"
	"github.com/readtrack/readtrack/internal/model"
	"github.com/readtrack/readtrack/internal/repository"
)

// MaxResolveAttempts bounds the lookup/insert cycle of one author
const MaxResolveAttempts = 3

// AuthorResolver maps an author candidate to the id of the single active
// author with that exact name, creating the author when none exists.
//
// Name uniqueness among active authors is backed by a partial unique index.
// An insert that loses a race to a concurrent transaction inserts nothing,
// and the resolver looks the name up again to pick up the winner's row.
type AuthorResolver struct {
	log *logger.Logger
}

// NewAuthorResolver creates a new AuthorResolver
func NewAuthorResolver(log *logger.Logger) *AuthorResolver {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthorResolver{log: log.WithComponent("author_resolver")}
}

// Resolve returns the id of the active author named in.Name. An existing
// author is returned unchanged; the other fields of in only apply on creation.
// Store failures are returned as-is.
func (r *AuthorResolver) Resolve(ctx context.Context, tx repository.Tx, in model.AuthorInput) (uuid.UUID, error) {
	for attempt := 1; attempt <= MaxResolveAttempts; attempt++ {
		var existing model.Author
		err := tx.FindOneWhere(ctx, repository.Authors, goqu.Ex{"name": in.Name}, &existing)
		if err == nil {
			return existing.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, err
		}

		var id uuid.UUID
		inserted, err := tx.InsertIgnoringConflict(ctx, repository.Authors, in.Record(), &id)
		if err != nil {
			return uuid.Nil, err
		}
		if inserted {
			r.log.Debug().Str("author_id", id.String()).Msg("author created")
			return id, nil
		}

		r.log.Debug().
			Str("name", in.Name).
			Int("attempt", attempt).
			Msg("author name taken concurrently, looking up again")
	}

	return uuid.Nil, apperror.Conflict("Author " + in.Name + " is being modified concurrently, please retry")
}
