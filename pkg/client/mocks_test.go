package client_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/client"
)

// MockSearcher is a mock for the single-item search
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	args := m.Called(ctx, query, mediaType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MediaRecord), args.Error(1)
}

// MockBatchSearcher is a mock for the bulk endpoint
type MockBatchSearcher struct {
	mock.Mock
}

func (m *MockBatchSearcher) BatchSearch(ctx context.Context, items []client.Item) ([]client.BatchMatch, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]client.BatchMatch), args.Error(1)
}

// MockSink is a mock for the image sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) SaveImage(ctx context.Context, id int64, imageURL string) error {
	args := m.Called(ctx, id, imageURL)
	return args.Error(0)
}

func withCover(title, cover string) []domain.MediaRecord {
	return []domain.MediaRecord{{Title: title, Type: domain.TypeAnime, CoverImage: cover}}
}
