package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"libracore/internal/accounts"
	"libracore/internal/catalog"
	"libracore/internal/clock"
	"libracore/internal/errs"
)

// service implements the Service interface. It orchestrates borrow and return
// against the catalog and loan stores, with the Engine supplying all decision
// logic.
type service struct {
	loans  Store
	books  catalog.Store
	users  accounts.Store
	engine Engine
	tx     Transactor
	clk    clock.Clock
	tracer trace.Tracer
	logger *zap.Logger
}

// NewService creates a new lending service instance.
func NewService(loans Store, books catalog.Store, users accounts.Store, engine Engine, tx Transactor, clk clock.Clock, logger *zap.Logger) Service {
	return &service{
		loans:  loans,
		books:  books,
		users:  users,
		engine: engine,
		tx:     tx,
		clk:    clk,
		tracer: otel.Tracer("libracore/lending"),
		logger: logger,
	}
}

// Borrow creates a pending loan and reserves one copy of the book. The copy
// decrement and the loan insert commit as one unit.
func (s *service) Borrow(ctx context.Context, userID, bookID uuid.UUID, borrowDate, dueDate time.Time) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "lending.borrow",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	held, err := s.loans.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}
	if !s.engine.CanBorrow(held, s.clk.Now()) {
		span.SetAttributes(attribute.Bool("borrow.blocked", true))
		return nil, errs.ErrIneligible
	}

	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book.AvailableCopies <= 0 {
		return nil, errs.ErrNoCopies
	}

	active, err := s.loans.ExistsActive(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("check active loan: %w", err)
	}
	if active {
		return nil, errs.ErrAlreadyBorrowed
	}

	now := s.clk.Now()
	loan := &Loan{
		ID:         uuid.New(),
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
		Returned:   false,
		FinePaid:   false,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The decrement is guarded in the store, so a concurrent borrow that
		// takes the last copy surfaces here instead of overcommitting.
		if _, err := s.books.AdjustAvailability(ctx, bookID, -1); err != nil {
			return err
		}
		return s.loans.Insert(ctx, loan)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("commit borrow: %w", err)
	}

	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("book_id", bookID.String()),
		zap.Time("due_date", dueDate),
	)
	return loan, nil
}

// Return releases the copy and resolves the loan to its terminal status.
func (s *service) Return(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "lending.return",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	loan, err := s.loans.Get(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	if loan.Returned {
		return nil, errs.ErrLoanClosed
	}

	now := s.clk.Now()
	loan.Returned = true
	loan.Status = s.engine.ClassifyReturn(loan, now)
	loan.UpdatedAt = now

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.books.AdjustAvailability(ctx, loan.BookID, +1); err != nil {
			return err
		}
		return s.loans.Save(ctx, loan)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("commit return: %w", err)
	}

	span.SetAttributes(attribute.String("loan.status", string(loan.Status)))
	s.logger.Info("loan returned",
		zap.String("loan_id", loan.ID.String()),
		zap.String("status", string(loan.Status)),
	)
	return loan, nil
}

// LoansByUser returns all loan records for a user.
func (s *service) LoansByUser(ctx context.Context, userID uuid.UUID) ([]*Loan, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return s.loans.FindByUser(ctx, userID)
}

// TotalUnpaidFine sums the accrued fines on a user's unreturned loans.
// Display only; it does not gate borrowing.
func (s *service) TotalUnpaidFine(ctx context.Context, userID uuid.UUID) (int, error) {
	loans, err := s.LoansByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := s.clk.Now()
	total := 0
	for _, loan := range loans {
		if !loan.Returned {
			total += s.engine.CalculateFine(loan, now)
		}
	}
	return total, nil
}

// AlreadyBorrowed reports whether an active loan links the user and book.
func (s *service) AlreadyBorrowed(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return false, fmt.Errorf("get book: %w", err)
	}
	return s.loans.ExistsActive(ctx, userID, bookID)
}

// ActiveLoanCount returns the number of unreturned loans across all users.
func (s *service) ActiveLoanCount(ctx context.Context) (int, error) {
	return s.loans.CountActive(ctx)
}
