package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/catalog/repository"
	pkgerrors "github.com/narwhalmedia/mediaresolver/pkg/errors"
	"github.com/narwhalmedia/mediaresolver/test/testutil"
)

type MediaStoreTestSuite struct {
	suite.Suite
	db    *testutil.TestDB
	store *repository.GormMediaStore
	ctx   context.Context
}

func (suite *MediaStoreTestSuite) SetupSuite() {
	suite.ctx = context.Background()
	suite.db = testutil.SetupSQLite(suite.T(), repository.Models()...)
}

func (suite *MediaStoreTestSuite) SetupTest() {
	suite.store = repository.NewGormMediaStore(suite.db.DB)
	suite.Require().NoError(suite.db.TruncateTables("media_keywords", "media_items"))
}

func (suite *MediaStoreTestSuite) TestUpsert_CreatesThenUpdatesSameRow() {
	// Arrange
	first := testutil.CreateAniListRecord(20, "Naruto", domain.TypeAnime, 7.9)

	// Act
	created, err := suite.store.Upsert(suite.ctx, first)
	suite.Require().NoError(err)

	second := testutil.CreateAniListRecord(20, "Naruto", domain.TypeAnime, 8.1)
	second.Keywords = domain.BuildKeywords("Naruto", "ナルト")
	createdAgain, err := suite.store.Upsert(suite.ctx, second)

	// Assert
	suite.Require().NoError(err)
	assert.True(suite.T(), created)
	assert.False(suite.T(), createdAgain)
	assert.Equal(suite.T(), first.ID, second.ID)
	assert.True(suite.T(), first.CreatedAt.Equal(second.CreatedAt))

	var count int64
	suite.Require().NoError(suite.db.DB.Model(&repository.MediaItem{}).Count(&count).Error)
	assert.EqualValues(suite.T(), 1, count)

	stored, err := suite.store.GetByID(suite.ctx, first.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 8.1, stored.Rating)
	assert.ElementsMatch(suite.T(), second.Keywords, stored.Keywords)
}

func (suite *MediaStoreTestSuite) TestUpsert_KeepsExternalIDsTheProviderOmitted() {
	// Arrange
	fromJikan := testutil.CreateTestRecord("Frieren", domain.TypeAnime, 9.3)
	fromJikan.MalID = domain.IntPtr(52991)
	_, err := suite.store.Upsert(suite.ctx, fromJikan)
	suite.Require().NoError(err)

	fromAniList := testutil.CreateAniListRecord(154587, "Frieren", domain.TypeAnime, 9.1)
	fromAniList.MalID = domain.IntPtr(52991)

	// Act
	created, err := suite.store.Upsert(suite.ctx, fromAniList)
	suite.Require().NoError(err)

	onlyAniList := testutil.CreateAniListRecord(154587, "Frieren", domain.TypeAnime, 9.2)
	_, err = suite.store.Upsert(suite.ctx, onlyAniList)
	suite.Require().NoError(err)

	// Assert
	assert.False(suite.T(), created)
	stored, err := suite.store.GetByID(suite.ctx, fromJikan.ID)
	suite.Require().NoError(err)
	require.NotNil(suite.T(), stored.MalID)
	require.NotNil(suite.T(), stored.AniListID)
	assert.Equal(suite.T(), 52991, *stored.MalID)
	assert.Equal(suite.T(), 154587, *stored.AniListID)
}

func (suite *MediaStoreTestSuite) TestUpsert_RequiresExternalID() {
	rec := testutil.CreateTestRecord("Orphan", domain.TypeMovie, 5)

	_, err := suite.store.Upsert(suite.ctx, rec)

	assert.True(suite.T(), pkgerrors.IsBadRequest(err))
}

func (suite *MediaStoreTestSuite) TestSearch_RanksByRatingAndFiltersType() {
	// Arrange
	for _, rec := range []*domain.MediaRecord{
		testutil.CreateAniListRecord(1, "Naruto", domain.TypeAnime, 7.9),
		testutil.CreateAniListRecord(2, "Naruto Shippuden", domain.TypeAnime, 8.3),
		testutil.CreateAniListRecord(3, "Naruto", domain.TypeManga, 8.0),
		testutil.CreateTMDBRecord(4, "Bleach", domain.TypeAnime, 9.0),
	} {
		_, err := suite.store.Upsert(suite.ctx, rec)
		suite.Require().NoError(err)
	}

	// Act
	anime, err := suite.store.Search(suite.ctx, "  NARUTO ", domain.TypeAnime, 10)
	suite.Require().NoError(err)
	all, err := suite.store.Search(suite.ctx, "naruto", domain.TypeAll, 2)
	suite.Require().NoError(err)

	// Assert
	require.Len(suite.T(), anime, 2)
	assert.Equal(suite.T(), "Naruto Shippuden", anime[0].Title)
	assert.Equal(suite.T(), "Naruto", anime[1].Title)
	for _, rec := range anime {
		assert.Equal(suite.T(), domain.TypeAnime, rec.Type)
	}
	require.Len(suite.T(), all, 2)
	assert.Equal(suite.T(), 8.3, all[0].Rating)
	assert.Equal(suite.T(), 8.0, all[1].Rating)
}

func (suite *MediaStoreTestSuite) TestSearch_MatchesKeywords() {
	rec := testutil.CreateAniListRecord(16498, "Shingeki no Kyojin", domain.TypeAnime, 8.5)
	rec.Keywords = domain.BuildKeywords("Shingeki no Kyojin", "Attack on Titan")
	_, err := suite.store.Upsert(suite.ctx, rec)
	suite.Require().NoError(err)

	results, err := suite.store.Search(suite.ctx, "attack on titan", domain.TypeAll, 5)

	suite.Require().NoError(err)
	require.Len(suite.T(), results, 1)
	assert.Equal(suite.T(), rec.ID, results[0].ID)
}

func (suite *MediaStoreTestSuite) TestSearch_EscapesLikeWildcards() {
	_, err := suite.store.Upsert(suite.ctx, testutil.CreateTMDBRecord(10, "Anything", domain.TypeMovie, 6))
	suite.Require().NoError(err)

	results, err := suite.store.Search(suite.ctx, "%", domain.TypeAll, 5)

	suite.Require().NoError(err)
	assert.Empty(suite.T(), results)
}

func (suite *MediaStoreTestSuite) TestGetByID_NotFound() {
	_, err := suite.store.GetByID(suite.ctx, uuid.New())

	assert.True(suite.T(), pkgerrors.IsNotFound(err))
}

func (suite *MediaStoreTestSuite) TestTopRated() {
	for i, rating := range []float64{6.5, 9.1, 7.7} {
		_, err := suite.store.Upsert(suite.ctx, testutil.CreateTMDBRecord(100+i, "Film", domain.TypeMovie, rating))
		suite.Require().NoError(err)
	}

	top, err := suite.store.TopRated(suite.ctx, domain.TypeMovie, 2)

	suite.Require().NoError(err)
	require.Len(suite.T(), top, 2)
	assert.Equal(suite.T(), 9.1, top[0].Rating)
	assert.Equal(suite.T(), 7.7, top[1].Rating)
}

func (suite *MediaStoreTestSuite) TestPing() {
	ctx, cancel := context.WithTimeout(suite.ctx, time.Second)
	defer cancel()

	assert.NoError(suite.T(), suite.store.Ping(ctx))
}

func TestMediaStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MediaStoreTestSuite))
}
