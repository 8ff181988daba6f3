package lending

import "time"

// Engine holds the pure borrowing rules: eligibility, return classification
// and fine computation. It has no side effects and no store access; all
// temporal comparisons are calendar-day granular.
type Engine struct {
	// FinePerDay is the flat charge per whole day a loan is overdue.
	FinePerDay int
}

// CanBorrow reports whether a user holding the given loans may borrow. One
// overdue, unreturned loan blocks all new borrows.
func (e Engine) CanBorrow(loans []*Loan, today time.Time) bool {
	day := dateOf(today)
	for _, loan := range loans {
		if !loan.Returned && !loan.DueDate.IsZero() && dateOf(loan.DueDate).Before(day) {
			return false
		}
	}
	return true
}

// ClassifyReturn resolves the terminal status of a loan returned today. A
// borrow date in the future marks the loan as a cancelled borrow; that check
// takes precedence over lateness.
func (e Engine) ClassifyReturn(loan *Loan, today time.Time) Status {
	day := dateOf(today)
	switch {
	case !loan.BorrowDate.IsZero() && dateOf(loan.BorrowDate).After(day):
		return StatusCancelled
	case !loan.DueDate.IsZero() && dateOf(loan.DueDate).Before(day):
		return StatusFine
	default:
		return StatusReturned
	}
}

// CalculateFine returns the accrued fine for a loan as of today. Returned
// loans and loans with a settled fine owe nothing, as do loans not yet past
// their due date. The fine is linear per whole day overdue, uncapped.
func (e Engine) CalculateFine(loan *Loan, today time.Time) int {
	if loan == nil || loan.Returned || loan.FinePaid {
		return 0
	}
	if loan.DueDate.IsZero() {
		return 0
	}

	daysOverdue := daysBetween(loan.DueDate, today)
	if daysOverdue <= 0 {
		return 0
	}
	return daysOverdue * e.FinePerDay
}

// dateOf truncates t to its calendar day in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)) / (24 * time.Hour))
}
