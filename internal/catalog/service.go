package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, title, author, category, description string, totalCopies int) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	UpdateCopies(ctx context.Context, id uuid.UUID, totalCopies int) (*Book, error)
	RemoveBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context) ([]*Book, error)
}
