package readtrack

import "time"

// Genre values accepted by the API.
const (
	GenreFiction    = "FICTION"
	GenreNonfiction = "NONFICTION"
	GenreFantasy    = "FANTASY"
	GenreMystery    = "MYSTERY"
	GenreHistory    = "HISTORY"
	GenreScience    = "SCIENCE"
	GenreBiography  = "BIOGRAPHY"
	GenreOther      = "OTHER"
)

// AuthorRequest identifies an author by name. The optional fields are only
// stored when the author does not exist yet.
type AuthorRequest struct {
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// CreateBookRequest contains the attributes of a new book.
type CreateBookRequest struct {
	Title         string          `json:"title"`
	Edition       *int            `json:"edition,omitempty"`
	Language      string          `json:"language"`
	Genre         string          `json:"genre"`
	Pages         int             `json:"pages"`
	Tags          []string        `json:"tags,omitempty"`
	ISBN          *string         `json:"isbn,omitempty"`
	PublishedYear *int            `json:"published_year,omitempty"`
	Publisher     *string         `json:"publisher,omitempty"`
	Description   *string         `json:"description,omitempty"`
	CoverURL      *string         `json:"cover_url,omitempty"`
	Authors       []AuthorRequest `json:"authors"`
}

// Author is an author returned by the API.
type Author struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Book is a book returned by the API. Authors is only populated by GetBook.
type Book struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Edition       *int      `json:"edition,omitempty"`
	Language      string    `json:"language"`
	Genre         string    `json:"genre"`
	Pages         int       `json:"pages"`
	Tags          []string  `json:"tags,omitempty"`
	ISBN          *string   `json:"isbn,omitempty"`
	PublishedYear *int      `json:"published_year,omitempty"`
	Publisher     *string   `json:"publisher,omitempty"`
	Description   *string   `json:"description,omitempty"`
	CoverURL      *string   `json:"cover_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Authors       []Author  `json:"authors,omitempty"`
}

// BookList is one page of books.
type BookList struct {
	Books []Book `json:"books"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
