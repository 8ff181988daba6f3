// Package memory implements the store ports in memory for tests and
// development runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"libracore/internal/accounts"
	"libracore/internal/catalog"
	"libracore/internal/errs"
	"libracore/internal/lending"
)

// DB holds every record behind one mutex. The per-entity stores are views
// over the same DB so they share state the way tables share a database.
type DB struct {
	mu    sync.Mutex
	users map[uuid.UUID]accounts.User
	books map[uuid.UUID]catalog.Book
	loans map[uuid.UUID]lending.Loan

	// txMu serializes WithinTx bodies so transactional sequences do not
	// interleave. True rollback is not simulated; tests that need commit
	// failures inject them at the store boundary instead.
	txMu sync.Mutex
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{
		users: make(map[uuid.UUID]accounts.User),
		books: make(map[uuid.UUID]catalog.Book),
		loans: make(map[uuid.UUID]lending.Loan),
	}
}

var _ lending.Transactor = (*DB)(nil)

// WithinTx serializes fn against other transactions.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return fn(ctx)
}

// Accounts returns the accounts.Store view.
func (db *DB) Accounts() *AccountStore { return &AccountStore{db: db} }

// Catalog returns the catalog.Store view.
func (db *DB) Catalog() *CatalogStore { return &CatalogStore{db: db} }

// Loans returns the lending.Store view.
func (db *DB) Loans() *LoanStore { return &LoanStore{db: db} }

// --- accounts.Store ---

type AccountStore struct {
	db *DB
}

var _ accounts.Store = (*AccountStore)(nil)

func (s *AccountStore) Insert(ctx context.Context, user *accounts.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, u := range s.db.users {
		if u.Email == user.Email || u.Mobile == user.Mobile {
			return fmt.Errorf("email or mobile: %w", errs.ErrAlreadyExists)
		}
	}
	s.db.users[user.ID] = *user
	return nil
}

func (s *AccountStore) Get(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, u := range s.db.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user: %w", errs.ErrNotFound)
}

func (s *AccountStore) FindByMobile(ctx context.Context, mobile string) (*accounts.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, u := range s.db.users {
		if u.Mobile == mobile {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user: %w", errs.ErrNotFound)
}

func (s *AccountStore) Save(ctx context.Context, user *accounts.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, errs.ErrNotFound)
	}
	s.db.users[user.ID] = *user
	return nil
}

// copyUser detaches the OTP pointers so callers cannot mutate stored state.
func copyUser(u accounts.User) *accounts.User {
	c := u
	if u.OTP != nil {
		otp := *u.OTP
		c.OTP = &otp
	}
	if u.OTPGeneratedAt != nil {
		at := *u.OTPGeneratedAt
		c.OTPGeneratedAt = &at
	}
	return &c
}

// --- catalog.Store ---

type CatalogStore struct {
	db *DB
}

var _ catalog.Store = (*CatalogStore)(nil)

func (s *CatalogStore) Insert(ctx context.Context, book *catalog.Book) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.books[book.ID] = *book
	return nil
}

func (s *CatalogStore) Get(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	b, ok := s.db.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, errs.ErrNotFound)
	}
	c := b
	return &c, nil
}

func (s *CatalogStore) Save(ctx context.Context, book *catalog.Book) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.books[book.ID]; !ok {
		return fmt.Errorf("book %s: %w", book.ID, errs.ErrNotFound)
	}
	s.db.books[book.ID] = *book
	return nil
}

func (s *CatalogStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.books[id]; !ok {
		return fmt.Errorf("book %s: %w", id, errs.ErrNotFound)
	}
	delete(s.db.books, id)
	return nil
}

func (s *CatalogStore) List(ctx context.Context) ([]*catalog.Book, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	books := make([]*catalog.Book, 0, len(s.db.books))
	for _, b := range s.db.books {
		c := b
		books = append(books, &c)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func (s *CatalogStore) AdjustAvailability(ctx context.Context, id uuid.UUID, delta int) (*catalog.Book, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	b, ok := s.db.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, errs.ErrNotFound)
	}

	next := b.AvailableCopies + delta
	if next < 0 {
		return nil, errs.ErrNoCopies
	}
	if next > b.TotalCopies {
		return nil, errs.ErrVersionConflict
	}

	b.AvailableCopies = next
	b.Available = next > 0
	s.db.books[id] = b
	c := b
	return &c, nil
}

// --- lending.Store ---

type LoanStore struct {
	db *DB
}

var _ lending.Store = (*LoanStore)(nil)

func (s *LoanStore) Insert(ctx context.Context, loan *lending.Loan) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.loans[loan.ID] = *loan
	return nil
}

func (s *LoanStore) Get(ctx context.Context, id uuid.UUID) (*lending.Loan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	l, ok := s.db.loans[id]
	if !ok {
		return nil, fmt.Errorf("loan %s: %w", id, errs.ErrNotFound)
	}
	c := l
	return &c, nil
}

func (s *LoanStore) Save(ctx context.Context, loan *lending.Loan) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.loans[loan.ID]; !ok {
		return fmt.Errorf("loan %s: %w", loan.ID, errs.ErrNotFound)
	}
	s.db.loans[loan.ID] = *loan
	return nil
}

func (s *LoanStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]*lending.Loan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var loans []*lending.Loan
	for _, l := range s.db.loans {
		if l.UserID == userID {
			c := l
			loans = append(loans, &c)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].CreatedAt.After(loans[j].CreatedAt) })
	return loans, nil
}

func (s *LoanStore) FindDueOn(ctx context.Context, due time.Time, returned bool) ([]*lending.Loan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var loans []*lending.Loan
	for _, l := range s.db.loans {
		if l.Returned == returned && sameDay(l.DueDate, due) {
			c := l
			loans = append(loans, &c)
		}
	}
	return loans, nil
}

func (s *LoanStore) FindReturnedBefore(ctx context.Context, cutoff time.Time) ([]*lending.Loan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var loans []*lending.Loan
	for _, l := range s.db.loans {
		if l.Returned && dateOf(l.DueDate).Before(dateOf(cutoff)) {
			c := l
			loans = append(loans, &c)
		}
	}
	return loans, nil
}

func (s *LoanStore) ExistsActive(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, l := range s.db.loans {
		if l.UserID == userID && l.BookID == bookID && !l.Returned {
			return true, nil
		}
	}
	return false, nil
}

func (s *LoanStore) CountActive(ctx context.Context) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	count := 0
	for _, l := range s.db.loans {
		if !l.Returned {
			count++
		}
	}
	return count, nil
}

func (s *LoanStore) DeleteAll(ctx context.Context, ids []uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, id := range ids {
		delete(s.db.loans, id)
	}
	return nil
}

func sameDay(a, b time.Time) bool { return dateOf(a).Equal(dateOf(b)) }

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
