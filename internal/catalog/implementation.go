package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"libracore/internal/clock"
)

// service implements the Service interface.
type service struct {
	store  Store
	clk    clock.Clock
	logger *zap.Logger
}

// NewService creates a new catalog service instance.
func NewService(store Store, clk clock.Clock, logger *zap.Logger) Service {
	return &service{store: store, clk: clk, logger: logger}
}

// AddBook creates a new book. All copies start available.
func (s *service) AddBook(ctx context.Context, title, author, category, description string, totalCopies int) (*Book, error) {
	if title == "" || author == "" {
		return nil, fmt.Errorf("title and author are required")
	}
	if totalCopies < 0 {
		return nil, fmt.Errorf("total copies must be non-negative")
	}

	now := s.clk.Now()
	book := &Book{
		ID:              uuid.New(),
		Title:           title,
		Author:          author,
		Category:        category,
		Description:     description,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		Available:       totalCopies > 0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Insert(ctx, book); err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}

	s.logger.Info("book added",
		zap.String("book_id", book.ID.String()),
		zap.String("title", book.Title),
		zap.Int("total_copies", book.TotalCopies),
	)
	return book, nil
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.store.Get(ctx, id)
}

// UpdateCopies changes the total copy count, shifting the available count by
// the same delta so active loans stay accounted for.
func (s *service) UpdateCopies(ctx context.Context, id uuid.UUID, totalCopies int) (*Book, error) {
	if totalCopies < 0 {
		return nil, fmt.Errorf("total copies must be non-negative")
	}

	book, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	onLoan := book.TotalCopies - book.AvailableCopies
	if totalCopies < onLoan {
		return nil, fmt.Errorf("%d copies are on loan, total cannot go below that", onLoan)
	}

	book.TotalCopies = totalCopies
	book.AvailableCopies = totalCopies - onLoan
	book.Available = book.AvailableCopies > 0
	book.UpdatedAt = s.clk.Now()

	if err := s.store.Save(ctx, book); err != nil {
		return nil, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// RemoveBook deletes a book from the catalog.
func (s *service) RemoveBook(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ListBooks returns the full catalog.
func (s *service) ListBooks(ctx context.Context) ([]*Book, error) {
	return s.store.List(ctx)
}
