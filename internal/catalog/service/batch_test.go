package service_test

import (
	"github.com/stretchr/testify/mock"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	"github.com/narwhalmedia/mediaresolver/test/testutil"
)

func (s *ResolverTestSuite) TestBatchSearch_Sources() {
	// Arrange
	_, err := s.store.Upsert(s.ctx, testutil.CreateAniListRecord(20, "Naruto", domain.TypeAnime, 8))
	s.Require().NoError(err)

	cloy := testutil.CreateTMDBRecord(94796, "Crash Landing on You", domain.TypeKDrama, 8.7)
	s.providers.tmdb.On("Search", mock.Anything, "Crash Landing on You", domain.TypeKDrama, 1).
		Return(records(cloy), nil).Once()
	for _, p := range []*MockProvider{s.providers.tmdb, s.providers.omdb, s.providers.tvmaze} {
		p.On("Search", mock.Anything, "Unknown Show", domain.TypeSeries, 1).Return(nil, nil).Once()
	}

	items := []service.BatchItem{
		{ID: 1, Title: "Naruto", Type: "Anime"},
		{ID: 2, Title: "Crash Landing on You", Type: "K-Drama"},
		{ID: 3, Title: "Some Novel", Type: "Book"},
		{ID: 4, Title: "Unknown Show", Type: "TV"},
		{ID: 5, Title: "   ", Type: "Anime"},
	}

	// Act
	results := s.resolver.BatchSearch(s.ctx, items)

	// Assert
	s.Require().Len(results, len(items))
	for i, res := range results {
		s.Equal(items[i].ID, res.ID, "results keep input order")
	}

	s.True(results[0].Found)
	s.Equal(service.SourceDatabase, results[0].Source)
	s.Equal("Naruto", results[0].Data.Title)

	s.True(results[1].Found)
	s.Equal(service.SourceAPI, results[1].Source)
	s.Equal(domain.TypeKDrama, results[1].Data.Type)
	s.NotEmpty(results[1].Data.ID)

	for _, res := range results[2:] {
		s.False(res.Found)
		s.Equal(service.SourceNone, res.Source)
		s.Nil(res.Data)
	}
}

func (s *ResolverTestSuite) TestBatchSearch_ResolvedItemIsStored() {
	s.providers.anilist.On("Search", mock.Anything, "Vinland Saga", domain.TypeManga, 1).
		Return(records(testutil.CreateAniListRecord(30642, "Vinland Saga", domain.TypeManga, 9)), nil).Once()
	items := []service.BatchItem{{ID: 7, Title: "Vinland Saga", Type: "manga"}}

	first := s.resolver.BatchSearch(s.ctx, items)
	second := s.resolver.BatchSearch(s.ctx, items)

	s.Equal(service.SourceAPI, first[0].Source)
	s.Equal(service.SourceDatabase, second[0].Source)
	s.Equal(first[0].Data.ID, second[0].Data.ID)
}
