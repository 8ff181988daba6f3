package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libracore/internal/catalog"
	"libracore/internal/errs"
)

// CatalogStore persists books.
type CatalogStore struct {
	db *DB
}

var _ catalog.Store = (*CatalogStore)(nil)

func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) Insert(ctx context.Context, book *catalog.Book) error {
	query := `
		INSERT INTO books (id, title, author, category, description, cover, total_copies, available_copies, available, created_at, updated_at)
		VALUES (:id, :title, :author, :category, :description, :cover, :total_copies, :available_copies, :available, :created_at, :updated_at)
	`
	_, err := sqlx.NamedExecContext(ctx, s.db.ext(ctx), query, book)
	return err
}

func (s *CatalogStore) Get(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	query := `
		SELECT id, title, author, category, description, cover, total_copies, available_copies, available, created_at, updated_at
		FROM books
		WHERE id = $1
	`
	book := &catalog.Book{}
	if err := sqlx.GetContext(ctx, s.db.ext(ctx), book, query, id); err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("book %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

func (s *CatalogStore) Save(ctx context.Context, book *catalog.Book) error {
	query := `
		UPDATE books
		SET title = :title, author = :author, category = :category, description = :description,
		    cover = :cover, total_copies = :total_copies, available_copies = :available_copies,
		    available = :available, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, s.db.ext(ctx), query, book)
	if err != nil {
		return fmt.Errorf("save book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("book %s: %w", book.ID, errs.ErrNotFound)
	}
	return nil
}

func (s *CatalogStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ext(ctx).ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("book %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (s *CatalogStore) List(ctx context.Context) ([]*catalog.Book, error) {
	query := `
		SELECT id, title, author, category, description, cover, total_copies, available_copies, available, created_at, updated_at
		FROM books
		ORDER BY title, author
	`
	var books []*catalog.Book
	if err := sqlx.SelectContext(ctx, s.db.ext(ctx), &books, query); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// AdjustAvailability applies delta to the available copy count with the
// bounds checked inside the UPDATE, so concurrent adjustments cannot push the
// count below zero or above the total.
func (s *CatalogStore) AdjustAvailability(ctx context.Context, id uuid.UUID, delta int) (*catalog.Book, error) {
	query := `
		UPDATE books
		SET available_copies = available_copies + $2,
		    available = available_copies + $2 > 0,
		    updated_at = NOW()
		WHERE id = $1
		  AND available_copies + $2 >= 0
		  AND available_copies + $2 <= total_copies
		RETURNING id, title, author, category, description, cover, total_copies, available_copies, available, created_at, updated_at
	`
	book := &catalog.Book{}
	err := sqlx.GetContext(ctx, s.db.ext(ctx), book, query, id, delta)
	if err == nil {
		return book, nil
	}
	if !noRows(err) {
		return nil, fmt.Errorf("adjust availability: %w", err)
	}

	// The guard rejected the update or the book is gone; look again to tell
	// the caller which.
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	if delta < 0 {
		return nil, errs.ErrNoCopies
	}
	return nil, errs.ErrVersionConflict
}
