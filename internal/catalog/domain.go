package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Book represents a title with a tracked set of physical copies.
type Book struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Author          string    `json:"author" db:"author"`
	Category        string    `json:"category,omitempty" db:"category"`
	Description     string    `json:"description,omitempty" db:"description"`
	Cover           string    `json:"cover,omitempty" db:"cover"`
	TotalCopies     int       `json:"total_copies" db:"total_copies"`
	AvailableCopies int       `json:"available_copies" db:"available_copies"`
	Available       bool      `json:"available" db:"available"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Store is the persistence port for books.
type Store interface {
	Insert(ctx context.Context, book *Book) error
	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	Save(ctx context.Context, book *Book) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Book, error)

	// AdjustAvailability atomically applies delta to the available copy count
	// and recomputes the availability flag, returning the updated book. A
	// negative delta never drives the count below zero; the store reports
	// errs.ErrNoCopies instead of applying such an update.
	AdjustAvailability(ctx context.Context, id uuid.UUID, delta int) (*Book, error)
}
