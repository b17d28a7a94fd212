package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal identity record. It anchors event attribution and the
// stats cache; authentication itself lives outside this service.
type User struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Author is a person who wrote, edited, or translated books.
type Author struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Genre is a shared classification label for books.
type Genre struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Book is a tracked book. Genre references are optional and survive genre
// deletion (SET NULL).
type Book struct {
	ID               int64
	Title            string
	PageCount        *int
	YearPublished    *int
	PrimaryGenreID   *int64
	SecondaryGenreID *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BookAuthor links a book to an author with a contribution role.
type BookAuthor struct {
	BookID   int64
	AuthorID int64
	Role     AuthorRole
}

// BookWithAuthors carries a book together with its author links, used where
// author names must be denormalized into event payloads.
type BookWithAuthors struct {
	Book    Book
	Authors []BookAuthor
}

// UserBook shelves a book for a user as "library" or "wishlist".
type UserBook struct {
	UserID    uuid.UUID
	BookID    int64
	Shelf     Shelf
	CreatedAt time.Time
}

// Reading is one user's reading session of a book.
type Reading struct {
	ID         int64
	UserID     uuid.UUID
	BookID     int64
	Status     ReadingStatus
	Rating     *int
	Format     *ReadingFormat
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
