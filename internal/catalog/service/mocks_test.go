package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// MockProvider is a mock for a catalog provider
type MockProvider struct {
	mock.Mock
	name string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	args := m.Called(ctx, query, mediaType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MediaRecord), args.Error(1)
}

// panicProvider blows up on every search
type panicProvider struct{}

func (panicProvider) Name() string { return "panicky" }

func (panicProvider) Search(context.Context, string, domain.MediaType, int) ([]domain.MediaRecord, error) {
	panic("unexpected payload shape")
}

// MockPublisher is a mock for the event publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event interfaces.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// providers holds one mock per chain position
type providers struct {
	anilist, jikan, tmdb, omdb, tvmaze *MockProvider
}

func newProviders() *providers {
	return &providers{
		anilist: NewMockProvider("anilist"),
		jikan:   NewMockProvider("jikan"),
		tmdb:    NewMockProvider("tmdb"),
		omdb:    NewMockProvider("omdb"),
		tvmaze:  NewMockProvider("tvmaze"),
	}
}

// families mirrors service.DefaultFamilies with mocks in place of adapters.
func (p *providers) families() []service.Family {
	return []service.Family{
		{
			Name:   "illustrated",
			Base:   domain.TypeAnime,
			Types:  domain.IllustratedTypes,
			Stages: []service.Stage{{Provider: p.anilist}, {Provider: p.jikan}},
		},
		{
			Name:  "screen",
			Base:  domain.TypeSeries,
			Types: domain.ScreenTypes,
			Stages: []service.Stage{
				{Provider: p.tmdb},
				{Provider: p.omdb},
				{Provider: p.tvmaze, Skip: func(t domain.MediaType) bool { return t == domain.TypeMovie }},
			},
		},
	}
}

func (p *providers) assertExpectations(t mock.TestingT) {
	p.anilist.AssertExpectations(t)
	p.jikan.AssertExpectations(t)
	p.tmdb.AssertExpectations(t)
	p.omdb.AssertExpectations(t)
	p.tvmaze.AssertExpectations(t)
}

func records(recs ...*domain.MediaRecord) []domain.MediaRecord {
	out := make([]domain.MediaRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, *r)
	}
	return out
}
