// Package errs contains sentinel errors shared across layers so handlers can
// map failures to responses with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested user, book or loan does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIneligible indicates the user holds an overdue loan and may not borrow.
	ErrIneligible = errors.New("user has overdue loans")

	// ErrNoCopies indicates the book has no available copies left.
	ErrNoCopies = errors.New("no copies available")

	// ErrAlreadyBorrowed indicates the user already holds an active loan for the book.
	ErrAlreadyBorrowed = errors.New("book already borrowed")

	// ErrLoanClosed indicates a return was attempted on a loan already in a
	// terminal status.
	ErrLoanClosed = errors.New("loan already returned")

	// ErrAlreadyExists indicates a unique constraint violation (email or mobile taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrVersionConflict indicates a concurrent update won the copy-count race.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates too many OTP requests in the current window.
	ErrRateLimited = errors.New("rate limited")
)
