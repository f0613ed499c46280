package testutil

import (
	"time"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

// CreateTestRecord creates a provider-shaped record with sane defaults.
func CreateTestRecord(title string, mediaType domain.MediaType, rating float64) *domain.MediaRecord {
	rec := &domain.MediaRecord{
		Title:       title,
		Type:        mediaType,
		Description: title + " description",
		Genres:      []string{"Action"},
		CoverImage:  "https://img.example.com/" + domain.NormalizeQuery(title) + ".jpg",
		Rating:      rating,
		Status:      domain.StatusCompleted,
		Keywords:    domain.BuildKeywords(title),
	}
	return rec
}

// CreateAniListRecord creates a record keyed by an AniList id.
func CreateAniListRecord(id int, title string, mediaType domain.MediaType, rating float64) *domain.MediaRecord {
	rec := CreateTestRecord(title, mediaType, rating)
	rec.AniListID = domain.IntPtr(id)
	rec.Source = "anilist"
	return rec
}

// CreateTMDBRecord creates a record keyed by a TMDB id.
func CreateTMDBRecord(id int, title string, mediaType domain.MediaType, rating float64) *domain.MediaRecord {
	rec := CreateTestRecord(title, mediaType, rating)
	rec.TMDBID = domain.IntPtr(id)
	rec.Source = "tmdb"
	return rec
}

// FixedClock returns a clock pinned to *now, so tests can advance time.
func FixedClock(now *time.Time) func() time.Time {
	return func() time.Time { return *now }
}
