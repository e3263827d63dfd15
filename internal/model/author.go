package model

import (
	"time"

	"github.com/google/uuid"
)

// Author is a row of the authors table
type Author struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `db:"date_of_death" json:"date_of_death,omitempty"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// AuthorInput is a candidate author supplied with a new book.
// Name is the natural key used for de-duplication; the other fields only
// apply when the author does not exist yet.
type AuthorInput struct {
	Name        string     `json:"name" validate:"required"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// Record returns the insertable columns of the author
func (in AuthorInput) Record() map[string]any {
	rec := map[string]any{"name": in.Name}
	if in.DateOfBirth != nil {
		rec["date_of_birth"] = *in.DateOfBirth
	}
	if in.DateOfDeath != nil {
		rec["date_of_death"] = *in.DateOfDeath
	}
	if in.Description != nil {
		rec["description"] = *in.Description
	}
	return rec
}
