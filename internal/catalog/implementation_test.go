package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libracore/internal/catalog"
	"libracore/internal/clock"
	"libracore/internal/errs"
	"libracore/internal/memory"
)

func newService(t *testing.T) (catalog.Service, *memory.DB) {
	t.Helper()
	db := memory.New()
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return catalog.NewService(db.Catalog(), clk, zap.NewNop()), db
}

func TestAddBook(t *testing.T) {
	svc, _ := newService(t)

	book, err := svc.AddBook(context.Background(), "Wuthering Heights", "Emily Bronte", "Fiction", "", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, book.TotalCopies)
	assert.Equal(t, 3, book.AvailableCopies)
	assert.True(t, book.Available)

	got, err := svc.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
}

func TestAddBookValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "", "Author", "", "", 1)
	assert.Error(t, err)

	_, err = svc.AddBook(ctx, "Title", "", "", "", 1)
	assert.Error(t, err)

	_, err = svc.AddBook(ctx, "Title", "Author", "", "", -1)
	assert.Error(t, err)
}

func TestAddBookZeroCopiesUnavailable(t *testing.T) {
	svc, _ := newService(t)

	book, err := svc.AddBook(context.Background(), "Out of Stock", "Author", "", "", 0)
	require.NoError(t, err)
	assert.False(t, book.Available)
}

func TestUpdateCopiesKeepsLoansAccounted(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, "Popular Book", "Author", "", "", 5)
	require.NoError(t, err)

	// Two copies go out on loan.
	_, err = db.Catalog().AdjustAvailability(ctx, book.ID, -2)
	require.NoError(t, err)

	updated, err := svc.UpdateCopies(ctx, book.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.TotalCopies)
	assert.Equal(t, 1, updated.AvailableCopies, "the two loaned copies stay accounted for")

	// Total cannot drop below what is on loan.
	_, err = svc.UpdateCopies(ctx, book.ID, 1)
	assert.Error(t, err)
}

func TestUpdateCopiesToExactLoanCount(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, "Tight Supply", "Author", "", "", 2)
	require.NoError(t, err)
	_, err = db.Catalog().AdjustAvailability(ctx, book.ID, -2)
	require.NoError(t, err)

	updated, err := svc.UpdateCopies(ctx, book.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableCopies)
	assert.False(t, updated.Available)
}

func TestRemoveBook(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, "Ephemeral", "Author", "", "", 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveBook(ctx, book.ID))

	_, err = svc.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	err = svc.RemoveBook(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListBooks(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = svc.AddBook(ctx, "First", "Author", "", "", 1)
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, "Second", "Author", "", "", 1)
	require.NoError(t, err)

	books, err = svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}
