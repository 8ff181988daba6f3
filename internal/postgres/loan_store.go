package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"libracore/internal/errs"
	"libracore/internal/lending"
)

// LoanStore persists loan records.
type LoanStore struct {
	db *DB
}

var _ lending.Store = (*LoanStore)(nil)

func NewLoanStore(db *DB) *LoanStore {
	return &LoanStore{db: db}
}

const loanColumns = `id, user_id, book_id, borrow_date, due_date, returned, fine_paid, status, created_at, updated_at`

func (s *LoanStore) Insert(ctx context.Context, loan *lending.Loan) error {
	query := `
		INSERT INTO loans (id, user_id, book_id, borrow_date, due_date, returned, fine_paid, status, created_at, updated_at)
		VALUES (:id, :user_id, :book_id, :borrow_date, :due_date, :returned, :fine_paid, :status, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.db.ext(ctx), query, loan); err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (s *LoanStore) Get(ctx context.Context, id uuid.UUID) (*lending.Loan, error) {
	loan := &lending.Loan{}
	err := sqlx.GetContext(ctx, s.db.ext(ctx), loan, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	if err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("loan %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

func (s *LoanStore) Save(ctx context.Context, loan *lending.Loan) error {
	query := `
		UPDATE loans
		SET returned = :returned, fine_paid = :fine_paid, status = :status, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, s.db.ext(ctx), query, loan)
	if err != nil {
		return fmt.Errorf("save loan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("loan %s: %w", loan.ID, errs.ErrNotFound)
	}
	return nil
}

func (s *LoanStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]*lending.Loan, error) {
	var loans []*lending.Loan
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = $1 ORDER BY created_at DESC`
	if err := sqlx.SelectContext(ctx, s.db.ext(ctx), &loans, query, userID); err != nil {
		return nil, fmt.Errorf("find loans by user: %w", err)
	}
	return loans, nil
}

func (s *LoanStore) FindDueOn(ctx context.Context, due time.Time, returned bool) ([]*lending.Loan, error) {
	var loans []*lending.Loan
	query := `SELECT ` + loanColumns + ` FROM loans WHERE due_date::date = $1::date AND returned = $2`
	if err := sqlx.SelectContext(ctx, s.db.ext(ctx), &loans, query, due, returned); err != nil {
		return nil, fmt.Errorf("find loans due on: %w", err)
	}
	return loans, nil
}

func (s *LoanStore) FindReturnedBefore(ctx context.Context, cutoff time.Time) ([]*lending.Loan, error) {
	var loans []*lending.Loan
	query := `SELECT ` + loanColumns + ` FROM loans WHERE returned = TRUE AND due_date::date < $1::date`
	if err := sqlx.SelectContext(ctx, s.db.ext(ctx), &loans, query, cutoff); err != nil {
		return nil, fmt.Errorf("find returned loans: %w", err)
	}
	return loans, nil
}

func (s *LoanStore) ExistsActive(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM loans WHERE user_id = $1 AND book_id = $2 AND returned = FALSE)`
	if err := sqlx.GetContext(ctx, s.db.ext(ctx), &exists, query, userID, bookID); err != nil {
		return false, fmt.Errorf("check active loan: %w", err)
	}
	return exists, nil
}

func (s *LoanStore) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, s.db.ext(ctx), &count, `SELECT COUNT(*) FROM loans WHERE returned = FALSE`); err != nil {
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return count, nil
}

func (s *LoanStore) DeleteAll(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.ext(ctx).ExecContext(ctx, `DELETE FROM loans WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete loans: %w", err)
	}
	return nil
}
