package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Genre is the closed set of book genres stored in the genre enum type
type Genre string

const (
	GenreFiction    Genre = "FICTION"
	GenreNonfiction Genre = "NONFICTION"
	GenreFantasy    Genre = "FANTASY"
	GenreMystery    Genre = "MYSTERY"
	GenreHistory    Genre = "HISTORY"
	GenreScience    Genre = "SCIENCE"
	GenreBiography  Genre = "BIOGRAPHY"
	GenreOther      Genre = "OTHER"
)

// Valid reports whether g is one of the known genres
func (g Genre) Valid() bool {
	switch g {
	case GenreFiction, GenreNonfiction, GenreFantasy, GenreMystery,
		GenreHistory, GenreScience, GenreBiography, GenreOther:
		return true
	}
	return false
}

// Book is a row of the books table
type Book struct {
	ID            int64          `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Edition       *int           `db:"edition" json:"edition,omitempty"`
	Language      string         `db:"language" json:"language"`
	Genre         Genre          `db:"genre" json:"genre"`
	Pages         int            `db:"pages" json:"pages"`
	Tags          pq.StringArray `db:"tags" json:"tags,omitempty"`
	ISBN          *string        `db:"isbn" json:"isbn,omitempty"`
	PublishedYear *int           `db:"published_year" json:"published_year,omitempty"`
	Publisher     *string        `db:"publisher" json:"publisher,omitempty"`
	Description   *string        `db:"description" json:"description,omitempty"`
	CoverURL      *string        `db:"cover_url" json:"cover_url,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
}

// BookWithAuthors is a book together with its active authors
type BookWithAuthors struct {
	Book
	Authors []Author `json:"authors"`
}

// BookAuthor is a row of the book_authors association table
type BookAuthor struct {
	BookID   int64     `db:"book_id"`
	AuthorID uuid.UUID `db:"author_id"`
}

// Record returns the insertable columns of the association
func (ba BookAuthor) Record() map[string]any {
	return map[string]any{"book_id": ba.BookID, "author_id": ba.AuthorID.String()}
}

// CreateBookInput carries the attributes of a book and its author candidates
type CreateBookInput struct {
	Title         string        `json:"title" validate:"required"`
	Edition       *int          `json:"edition,omitempty" validate:"omitempty,gte=1"`
	Language      string        `json:"language" validate:"required"`
	Genre         Genre         `json:"genre" validate:"required,oneof=FICTION NONFICTION FANTASY MYSTERY HISTORY SCIENCE BIOGRAPHY OTHER"`
	Pages         int           `json:"pages" validate:"required,gt=0"`
	Tags          []string      `json:"tags,omitempty"`
	ISBN          *string       `json:"isbn,omitempty"`
	PublishedYear *int          `json:"published_year,omitempty"`
	Publisher     *string       `json:"publisher,omitempty"`
	Description   *string       `json:"description,omitempty"`
	CoverURL      *string       `json:"cover_url,omitempty"`
	Authors       []AuthorInput `json:"authors" validate:"required,min=1,dive"`
}

// Record returns the insertable columns of the book; unset optional fields are omitted
// so the column defaults apply.
func (in CreateBookInput) Record() map[string]any {
	rec := map[string]any{
		"title":    in.Title,
		"language": in.Language,
		"genre":    string(in.Genre),
		"pages":    in.Pages,
	}
	if in.Edition != nil {
		rec["edition"] = *in.Edition
	}
	if in.Tags != nil {
		rec["tags"] = pq.Array(in.Tags)
	}
	if in.ISBN != nil {
		rec["isbn"] = *in.ISBN
	}
	if in.PublishedYear != nil {
		rec["published_year"] = *in.PublishedYear
	}
	if in.Publisher != nil {
		rec["publisher"] = *in.Publisher
	}
	if in.Description != nil {
		rec["description"] = *in.Description
	}
	if in.CoverURL != nil {
		rec["cover_url"] = *in.CoverURL
	}
	return rec
}
