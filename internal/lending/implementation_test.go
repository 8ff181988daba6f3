package lending_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libracore/internal/accounts"
	"libracore/internal/catalog"
	"libracore/internal/clock"
	"libracore/internal/errs"
	"libracore/internal/lending"
	"libracore/internal/memory"
)

type fixture struct {
	db      *memory.DB
	clk     *clock.Manual
	service lending.Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db := memory.New()
	clk := clock.NewManual(now)
	svc := lending.NewService(db.Loans(), db.Catalog(), db.Accounts(), lending.Engine{FinePerDay: 10}, db, clk, zap.NewNop())
	return &fixture{db: db, clk: clk, service: svc}
}

func (f *fixture) addUser(t *testing.T, mobile string) *accounts.User {
	t.Helper()
	user := &accounts.User{ID: uuid.New(), Email: mobile + "@test.com", Mobile: mobile, Role: accounts.RoleUser}
	require.NoError(t, f.db.Accounts().Insert(context.Background(), user))
	return user
}

func (f *fixture) addBook(t *testing.T, title string, copies int) *catalog.Book {
	t.Helper()
	book := &catalog.Book{ID: uuid.New(), Title: title, Author: "A. Author", TotalCopies: copies, AvailableCopies: copies, Available: copies > 0}
	require.NoError(t, f.db.Catalog().Insert(context.Background(), book))
	return book
}

func TestBorrowCreatesPendingLoanAndReservesCopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	book := f.addBook(t, "Pride and Prejudice", 5)

	loan, err := f.service.Borrow(ctx, user.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)

	assert.Equal(t, lending.StatusPending, loan.Status)
	assert.False(t, loan.Returned)
	assert.False(t, loan.FinePaid)
	assert.Equal(t, date(2024, 1, 10), loan.DueDate)

	got, err := f.db.Catalog().Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.AvailableCopies)
	assert.True(t, got.Available)
}

func TestBorrowSameBookTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	book := f.addBook(t, "Dune", 5)

	_, err := f.service.Borrow(ctx, user.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)

	_, err = f.service.Borrow(ctx, user.ID, book.ID, date(2024, 1, 2), date(2024, 1, 12))
	assert.ErrorIs(t, err, errs.ErrAlreadyBorrowed)

	got, err := f.db.Catalog().Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.AvailableCopies, "failed borrow must not consume a copy")
}

func TestBorrowBlockedByOverdueLoan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	overdue := f.addBook(t, "Overdue Book", 1)
	next := f.addBook(t, "Next Book", 1)

	_, err := f.service.Borrow(ctx, user.ID, overdue.ID, date(2024, 1, 1), date(2024, 1, 5))
	require.NoError(t, err)

	f.clk.Set(date(2024, 1, 6))
	_, err = f.service.Borrow(ctx, user.ID, next.ID, date(2024, 1, 6), date(2024, 1, 16))
	assert.ErrorIs(t, err, errs.ErrIneligible)
}

func TestBorrowNoCopies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	alice := f.addUser(t, "9999999991")
	bob := f.addUser(t, "9999999992")
	book := f.addBook(t, "Single Copy", 1)

	_, err := f.service.Borrow(ctx, alice.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)

	_, err = f.service.Borrow(ctx, bob.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10))
	assert.ErrorIs(t, err, errs.ErrNoCopies)
}

func TestBorrowUnknownUserAndBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")

	_, err := f.service.Borrow(ctx, uuid.New(), uuid.New(), date(2024, 1, 1), date(2024, 1, 10))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.service.Borrow(ctx, user.ID, uuid.New(), date(2024, 1, 1), date(2024, 1, 10))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReturnOnTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	book := f.addBook(t, "Emma", 1)

	loan, err := f.service.Borrow(ctx, user.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)

	f.clk.Set(date(2024, 1, 5))
	returned, err := f.service.Return(ctx, loan.ID)
	require.NoError(t, err)

	assert.Equal(t, lending.StatusReturned, returned.Status)
	assert.True(t, returned.Returned)

	got, err := f.db.Catalog().Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
	assert.True(t, got.Available, "return must flip availability back on")
}

func TestReturnLateAccruesFine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	book := f.addBook(t, "Middlemarch", 1)

	loan, err := f.service.Borrow(ctx, user.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)

	// Five days past due: fine is 50 at the moment of return.
	f.clk.Set(date(2024, 1, 15))
	fine, err := f.service.TotalUnpaidFine(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, fine)

	returned, err := f.service.Return(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.StatusFine, returned.Status)
}

func TestReturnFutureBorrowIsCancelled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	book := f.addBook(t, "Tomorrow's Book", 1)

	loan, err := f.service.Borrow(ctx, user.ID, book.ID, date(2024, 1, 2), date(2023, 12, 20))
	require.NoError(t, err)

	returned, err := f.service.Return(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.StatusCancelled, returned.Status,
		"future borrow date takes precedence over lateness")
}

func TestReturnTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	book := f.addBook(t, "Persuasion", 1)

	loan, err := f.service.Borrow(ctx, user.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)

	_, err = f.service.Return(ctx, loan.ID)
	require.NoError(t, err)

	_, err = f.service.Return(ctx, loan.ID)
	assert.ErrorIs(t, err, errs.ErrLoanClosed)

	got, err := f.db.Catalog().Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies, "double return must not mint copies")
}

func TestReturnUnknownLoan(t *testing.T) {
	f := newFixture(t, date(2024, 1, 1))
	_, err := f.service.Return(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTotalUnpaidFineSkipsClosedLoans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	late := f.addBook(t, "Late Book", 1)
	onTime := f.addBook(t, "Second Late Book", 1)

	lateLoan, err := f.service.Borrow(ctx, user.ID, late.ID, date(2024, 1, 1), date(2024, 1, 5))
	require.NoError(t, err)
	_, err = f.service.Borrow(ctx, user.ID, onTime.ID, date(2024, 1, 1), date(2024, 1, 8))
	require.NoError(t, err)

	f.clk.Set(date(2024, 1, 10))

	// 5 days late at 10/day plus 2 days late at 10/day.
	fine, err := f.service.TotalUnpaidFine(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, fine)

	// Returning the first loan removes its share.
	_, err = f.service.Return(ctx, lateLoan.ID)
	require.NoError(t, err)
	fine, err = f.service.TotalUnpaidFine(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, fine)
}

func TestAlreadyBorrowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	book := f.addBook(t, "Villette", 2)

	held, err := f.service.AlreadyBorrowed(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, held)

	loan, err := f.service.Borrow(ctx, user.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)

	held, err = f.service.AlreadyBorrowed(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, held)

	_, err = f.service.Return(ctx, loan.ID)
	require.NoError(t, err)

	held, err = f.service.AlreadyBorrowed(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, held, "a returned loan no longer counts as borrowed")
}

func TestConcurrentBorrowsNeverOvercommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	book := f.addBook(t, "The Great Gatsby", 1)

	users := make([]*accounts.User, 10)
	for i := range users {
		users[i] = f.addUser(t, "88888888"+string(rune('0'+i))+"0")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for _, user := range users {
		wg.Add(1)
		go func(u *accounts.User) {
			defer wg.Done()
			if _, err := f.service.Borrow(ctx, u.ID, book.ID, date(2024, 1, 1), date(2024, 1, 10)); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(user)
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "only one borrow may take the last copy")

	got, err := f.db.Catalog().Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)
	assert.False(t, got.Available)
}

func TestActiveLoanCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, 1, 1))
	user := f.addUser(t, "9999999991")
	a := f.addBook(t, "Book A", 1)
	b := f.addBook(t, "Book B", 1)

	loan, err := f.service.Borrow(ctx, user.ID, a.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)
	_, err = f.service.Borrow(ctx, user.ID, b.ID, date(2024, 1, 1), date(2024, 1, 10))
	require.NoError(t, err)

	count, err := f.service.ActiveLoanCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = f.service.Return(ctx, loan.ID)
	require.NoError(t, err)

	count, err = f.service.ActiveLoanCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
