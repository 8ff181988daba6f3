package lending

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a loan. Pending is the only non-terminal
// state; a return resolves the loan to exactly one of the other three.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusReturned  Status = "Returned"
	StatusFine      Status = "Fine"
	StatusCancelled Status = "Borrow Cancelled"
)

// Loan is one borrow transaction linking a user and a book. DueDate carries
// the domain's historical "return date" naming: it is the date the book is
// expected back, not the actual return timestamp.
type Loan struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	BookID     uuid.UUID `json:"book_id" db:"book_id"`
	BorrowDate time.Time `json:"borrow_date" db:"borrow_date"`
	DueDate    time.Time `json:"return_date" db:"due_date"`
	Returned   bool      `json:"returned" db:"returned"`
	FinePaid   bool      `json:"fine_paid" db:"fine_paid"`
	Status     Status    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Store is the persistence port for loans.
type Store interface {
	Insert(ctx context.Context, loan *Loan) error
	Get(ctx context.Context, id uuid.UUID) (*Loan, error)
	Save(ctx context.Context, loan *Loan) error
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Loan, error)

	// FindDueOn returns loans with the given due date (calendar-day match)
	// and the given returned flag.
	FindDueOn(ctx context.Context, due time.Time, returned bool) ([]*Loan, error)

	// FindReturnedBefore returns returned loans whose due date is strictly
	// before cutoff.
	FindReturnedBefore(ctx context.Context, cutoff time.Time) ([]*Loan, error)

	// ExistsActive reports whether an unreturned loan links the user and book.
	ExistsActive(ctx context.Context, userID, bookID uuid.UUID) (bool, error)

	CountActive(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context, ids []uuid.UUID) error
}

// Transactor runs fn so that all store mutations made through the derived
// context commit together or not at all.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
