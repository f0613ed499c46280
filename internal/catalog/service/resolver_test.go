package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/repository"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/service"
	pkgerrors "github.com/narwhalmedia/mediaresolver/pkg/errors"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
	"github.com/narwhalmedia/mediaresolver/pkg/metrics"
	"github.com/narwhalmedia/mediaresolver/test/testutil"
)

// ResolverTestSuite runs the resolver against a real sqlite store and
// database query cache with mocked providers.
type ResolverTestSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	tdb       *testutil.TestDB
	store     *repository.GormMediaStore
	cache     *repository.GormQueryCache
	providers *providers
	publisher *MockPublisher
	registry  *prometheus.Registry
	resolver  *service.Resolver
}

func (s *ResolverTestSuite) SetupTest() {
	s.tdb = testutil.SetupSQLite(s.T(), repository.Models()...)

	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.FixedClock(&s.now)
	s.store = repository.NewGormMediaStore(s.tdb.DB).WithClock(clock)
	s.cache = repository.NewGormQueryCache(s.tdb.DB).WithClock(clock)
	s.providers = newProviders()
	s.publisher = &MockPublisher{}
	s.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.registry = prometheus.NewRegistry()

	s.resolver = service.NewResolver(
		s.store,
		s.cache,
		s.providers.families(),
		s.publisher,
		metrics.New(s.registry),
		logger.NewNoop(),
		service.Options{},
	)
}

func (s *ResolverTestSuite) TearDownTest() {
	s.providers.assertExpectations(s.T())
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

func (s *ResolverTestSuite) TestSearch_NarutoAnime() {
	// Arrange
	s.providers.anilist.On("Search", mock.Anything, "naruto", domain.TypeAnime, 5).
		Return(records(
			testutil.CreateAniListRecord(20, "Naruto", domain.TypeAnime, 7.99),
			testutil.CreateAniListRecord(1735, "Naruto: Shippuuden", domain.TypeAnime, 8.22),
			testutil.CreateAniListRecord(2472, "Naruto Movie", domain.TypeMovie, 6.9),
		), nil).Once()

	// Act
	first, err := s.resolver.Search(s.ctx, "naruto", domain.TypeAnime, 5)
	s.Require().NoError(err)
	second, err := s.resolver.Search(s.ctx, "naruto", domain.TypeAnime, 5)
	s.Require().NoError(err)

	// Assert
	s.Len(first, 2, "records of another type are filtered out")
	for _, rec := range first {
		s.Equal(domain.TypeAnime, rec.Type)
		s.GreaterOrEqual(rec.Rating, 0.0)
		s.LessOrEqual(rec.Rating, 10.0)
		s.NotEqual(uuid.Nil, rec.ID)
	}

	firstJSON, err := json.Marshal(first)
	s.Require().NoError(err)
	secondJSON, err := json.Marshal(second)
	s.Require().NoError(err)
	s.JSONEq(string(firstJSON), string(secondJSON))
	s.Equal(string(firstJSON), string(secondJSON))

	s.providers.anilist.AssertNumberOfCalls(s.T(), "Search", 1)
	s.providers.jikan.AssertNotCalled(s.T(), "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ResolverTestSuite) TestSearch_CacheHitTruncatesToLimit() {
	s.providers.anilist.On("Search", mock.Anything, "One Piece", domain.TypeAnime, 3).
		Return(records(
			testutil.CreateAniListRecord(21, "One Piece", domain.TypeAnime, 8.7),
			testutil.CreateAniListRecord(459, "One Piece Movie 1", domain.TypeAnime, 7.1),
			testutil.CreateAniListRecord(460, "One Piece Special", domain.TypeAnime, 7.0),
		), nil).Once()

	_, err := s.resolver.Search(s.ctx, "One Piece", domain.TypeAnime, 3)
	s.Require().NoError(err)

	// A lower limit with the same key is served from the cached list.
	results, err := s.resolver.Search(s.ctx, "  one   PIECE ", domain.TypeAnime, 1)

	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal("One Piece", results[0].Title)
}

func (s *ResolverTestSuite) TestSearch_CacheExpiresAtTTL() {
	bleach := records(testutil.CreateAniListRecord(269, "Bleach", domain.TypeAnime, 7.9))
	s.providers.anilist.On("Search", mock.Anything, "bleach", domain.TypeAnime, 5).Return(bleach, nil).Once()
	// After expiry the stored row already fills one slot.
	s.providers.anilist.On("Search", mock.Anything, "bleach", domain.TypeAnime, 4).Return(bleach, nil).Once()

	_, err := s.resolver.Search(s.ctx, "bleach", domain.TypeAnime, 5)
	s.Require().NoError(err)

	s.now = s.now.Add(24*time.Hour - time.Second)
	_, err = s.resolver.Search(s.ctx, "bleach", domain.TypeAnime, 5)
	s.Require().NoError(err)
	s.providers.anilist.AssertNumberOfCalls(s.T(), "Search", 1)

	// At exactly the expiry the entry is gone. The store only has one match,
	// so the chain tops up again.
	s.now = s.now.Add(time.Second)
	results, err := s.resolver.Search(s.ctx, "bleach", domain.TypeAnime, 5)
	s.Require().NoError(err)

	s.Len(results, 1, "store row and provider row are the same record")
	s.providers.anilist.AssertNumberOfCalls(s.T(), "Search", 2)
}

func (s *ResolverTestSuite) TestSearch_FallbackContinuesAfterFailure() {
	tests := []struct {
		name    string
		primary func(p *providers) service.Stage
	}{
		{"error", func(p *providers) service.Stage {
			p.anilist.On("Search", mock.Anything, "berserk", domain.TypeManga, 2).
				Return(nil, errors.New("anilist: 503 Service Unavailable")).Once()
			return service.Stage{Provider: p.anilist}
		}},
		{"empty", func(p *providers) service.Stage {
			p.anilist.On("Search", mock.Anything, "berserk", domain.TypeManga, 2).
				Return([]domain.MediaRecord{}, nil).Once()
			return service.Stage{Provider: p.anilist}
		}},
		{"panic", func(p *providers) service.Stage {
			return service.Stage{Provider: panicProvider{}}
		}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			// Arrange
			p := newProviders()
			mal := &domain.MediaRecord{
				MalID: domain.IntPtr(2), Title: "Berserk", Type: domain.TypeManga,
				Status: domain.StatusOngoing, Rating: 9.47, Source: "jikan",
			}
			p.jikan.On("Search", mock.Anything, "berserk", domain.TypeManga, 2).
				Return(records(mal), nil).Once()
			families := p.families()
			families[0].Stages[0] = tt.primary(p)

			store := repository.NewGormMediaStore(testutil.SetupSQLite(s.T(), repository.Models()...).DB)
			resolver := service.NewResolver(store, repository.NewMemoryQueryCache(0, nil),
				families, nil, nil, logger.NewNoop(), service.Options{})

			// Act
			results, err := resolver.Search(s.ctx, "berserk", domain.TypeManga, 2)

			// Assert
			s.Require().NoError(err)
			s.Require().Len(results, 1)
			s.Equal("Berserk", results[0].Title)
			s.Equal(2, *results[0].MalID)
			p.assertExpectations(s.T())
		})
	}
}

func (s *ResolverTestSuite) TestSearch_MovieSkipsTVMaze() {
	s.providers.tmdb.On("Search", mock.Anything, "nothing here", domain.TypeMovie, 4).Return(nil, nil).Once()
	s.providers.omdb.On("Search", mock.Anything, "nothing here", domain.TypeMovie, 4).Return(nil, nil).Once()

	results, err := s.resolver.Search(s.ctx, "nothing here", domain.TypeMovie, 4)

	s.Require().NoError(err)
	s.Empty(results)
	s.providers.tvmaze.AssertNotCalled(s.T(), "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.providers.anilist.AssertNotCalled(s.T(), "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ResolverTestSuite) TestSearch_PrimaryRowsStopChainBeforeTypeFilter() {
	// TMDB only knows the title as a generic series. It still answered, so
	// the fallbacks stay idle and the kdrama filter leaves nothing.
	s.providers.tmdb.On("Search", mock.Anything, "signal", domain.TypeKDrama, 3).
		Return(records(testutil.CreateTMDBRecord(63, "Signal", domain.TypeSeries, 8.4)), nil).Once()

	results, err := s.resolver.Search(s.ctx, "signal", domain.TypeKDrama, 3)

	s.Require().NoError(err)
	s.Empty(results)
	s.providers.omdb.AssertNotCalled(s.T(), "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.providers.tvmaze.AssertNotCalled(s.T(), "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ResolverTestSuite) TestSearch_NoTypeRunsBothFamilies() {
	s.providers.anilist.On("Search", mock.Anything, "monster", domain.TypeAll, 4).
		Return(records(testutil.CreateAniListRecord(19, "Monster", domain.TypeAnime, 8.8)), nil).Once()
	s.providers.tmdb.On("Search", mock.Anything, "monster", domain.TypeAll, 4).
		Return(records(testutil.CreateTMDBRecord(1030, "Monster", domain.TypeMovie, 6.4)), nil).Once()

	results, err := s.resolver.Search(s.ctx, "monster", domain.TypeAll, 4)

	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(domain.TypeAnime, results[0].Type, "illustrated family comes first")
	s.Equal(domain.TypeMovie, results[1].Type)
}

func (s *ResolverTestSuite) TestSearch_StoreSatisfiesLimit() {
	for i, title := range []string{"Frieren", "Frieren Recap"} {
		_, err := s.store.Upsert(s.ctx, testutil.CreateAniListRecord(100+i, title, domain.TypeAnime, 9))
		s.Require().NoError(err)
	}

	results, err := s.resolver.Search(s.ctx, "frieren", domain.TypeAnime, 2)

	s.Require().NoError(err)
	s.Len(results, 2)
	s.providers.anilist.AssertNotCalled(s.T(), "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ResolverTestSuite) TestSearch_StoreTopUpDeduplicates() {
	// Arrange
	stored := testutil.CreateAniListRecord(20, "Naruto", domain.TypeAnime, 8)
	_, err := s.store.Upsert(s.ctx, stored)
	s.Require().NoError(err)

	s.providers.anilist.On("Search", mock.Anything, "naruto", domain.TypeAnime, 2).
		Return(records(
			testutil.CreateAniListRecord(20, "Naruto", domain.TypeAnime, 8),
			testutil.CreateAniListRecord(1735, "Naruto: Shippuuden", domain.TypeAnime, 8.2),
		), nil).Once()

	// Act
	results, err := s.resolver.Search(s.ctx, "naruto", domain.TypeAnime, 3)

	// Assert
	s.Require().NoError(err)
	titles := make([]string, 0, len(results))
	for _, rec := range results {
		titles = append(titles, rec.Title)
	}
	s.Empty(cmp.Diff([]string{"Naruto", "Naruto: Shippuuden"}, titles))
	s.Equal(stored.ID, results[0].ID)
}

func (s *ResolverTestSuite) TestSearch_UpsertIsIdempotent() {
	var events []*domain.MediaResolvedEvent
	publisher := &MockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		events = append(events, args.Get(1).(*domain.MediaResolvedEvent))
	}).Return(nil)

	s.providers.anilist.On("Search", mock.Anything, mock.Anything, domain.TypeAnime, 1).
		Return(records(testutil.CreateAniListRecord(5114, "Fullmetal Alchemist: Brotherhood", domain.TypeAnime, 9.1)), nil)
	resolver := service.NewResolver(s.store, s.cache, s.providers.families(), publisher, nil,
		logger.NewNoop(), service.Options{})

	first, err := resolver.Search(s.ctx, "fmab", domain.TypeAnime, 1)
	s.Require().NoError(err)
	second, err := resolver.Search(s.ctx, "hagane no renkinjutsushi", domain.TypeAnime, 1)
	s.Require().NoError(err)

	s.Equal(first[0].ID, second[0].ID)
	var rows int64
	s.Require().NoError(s.tdb.DB.Model(&repository.MediaItem{}).Count(&rows).Error)
	s.EqualValues(1, rows)
	s.Require().Len(events, 2)
	s.True(events[0].Created)
	s.False(events[1].Created)
	s.Equal(domain.EventMediaResolved, events[0].EventType())
}

func (s *ResolverTestSuite) TestSearch_UpsertFailureStillReturnsRecord() {
	// Without an external id the store refuses the record.
	orphan := testutil.CreateTestRecord("Ghost Title", domain.TypeAnime, 5)
	s.providers.anilist.On("Search", mock.Anything, "ghost title", domain.TypeAnime, 1).
		Return(records(orphan), nil).Once()

	results, err := s.resolver.Search(s.ctx, "ghost title", domain.TypeAnime, 1)

	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(uuid.Nil, results[0].ID)
	s.publisher.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything)
}

func (s *ResolverTestSuite) TestSearch_RecordsMetrics() {
	s.providers.anilist.On("Search", mock.Anything, "mushishi", domain.TypeAnime, 1).
		Return(nil, errors.New("timeout")).Once()
	s.providers.jikan.On("Search", mock.Anything, "mushishi", domain.TypeAnime, 1).
		Return(nil, nil).Once()

	_, err := s.resolver.Search(s.ctx, "mushishi", domain.TypeAnime, 1)
	s.Require().NoError(err)
	_, err = s.resolver.Search(s.ctx, "mushishi", domain.TypeAnime, 1)
	s.Require().NoError(err)

	count, err := promtestutil.GatherAndCount(s.registry, "mediaresolver_provider_requests_total")
	s.Require().NoError(err)
	s.Equal(2, count, "one error series and one empty series")
	count, err = promtestutil.GatherAndCount(s.registry, "mediaresolver_query_cache_lookups_total")
	s.Require().NoError(err)
	s.Equal(2, count, "one miss series and one hit series")
}

func (s *ResolverTestSuite) TestGet() {
	rec := testutil.CreateAniListRecord(1, "Cowboy Bebop", domain.TypeAnime, 8.6)
	_, err := s.store.Upsert(s.ctx, rec)
	s.Require().NoError(err)

	got, err := s.resolver.Get(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("Cowboy Bebop", got.Title)

	_, err = s.resolver.Get(s.ctx, uuid.New())
	s.True(pkgerrors.IsNotFound(err))
}

func (s *ResolverTestSuite) TestTrending() {
	for i, rating := range []float64{6.1, 9.3, 7.7} {
		_, err := s.store.Upsert(s.ctx, testutil.CreateTMDBRecord(500+i, "Film", domain.TypeMovie, rating))
		s.Require().NoError(err)
	}

	results, err := s.resolver.Trending(s.ctx, domain.TypeMovie, 2)

	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(9.3, results[0].Rating)
	s.Equal(7.7, results[1].Rating)

	_, err = s.resolver.Trending(s.ctx, "podcast", 2)
	s.True(pkgerrors.IsBadRequest(err))
}

func TestSearch_Validation(t *testing.T) {
	resolver := service.NewResolver(nil, nil, nil, nil, nil, logger.NewNoop(), service.Options{})

	tests := []struct {
		name  string
		query string
		typ   domain.MediaType
		limit int
	}{
		{"empty query", "   ", domain.TypeAnime, 5},
		{"zero limit", "naruto", domain.TypeAnime, 0},
		{"limit above max", "naruto", domain.TypeAnime, 51},
		{"unknown type", "naruto", domain.MediaType("podcast"), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Search(context.Background(), tt.query, tt.typ, tt.limit)

			require.Error(t, err)
			assert.True(t, pkgerrors.IsBadRequest(err))
		})
	}
}

var _ interfaces.EventPublisher = (*MockPublisher)(nil)
