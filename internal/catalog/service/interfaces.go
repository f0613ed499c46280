package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

// ResolverInterface defines the interface for resolver operations.
type ResolverInterface interface {
	Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.MediaRecord, error)
	BatchSearch(ctx context.Context, items []BatchItem) []BatchItemResult
	Trending(ctx context.Context, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error)
	Ready(ctx context.Context) error
	MaxLimit() int
}

// Ensure Resolver implements the interface.
var _ ResolverInterface = (*Resolver)(nil)
