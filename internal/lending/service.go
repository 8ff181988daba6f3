package lending

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the borrowing lifecycle manager.
type Service interface {
	Borrow(ctx context.Context, userID, bookID uuid.UUID, borrowDate, dueDate time.Time) (*Loan, error)
	Return(ctx context.Context, loanID uuid.UUID) (*Loan, error)
	LoansByUser(ctx context.Context, userID uuid.UUID) ([]*Loan, error)
	TotalUnpaidFine(ctx context.Context, userID uuid.UUID) (int, error)
	AlreadyBorrowed(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	ActiveLoanCount(ctx context.Context) (int, error)
}
