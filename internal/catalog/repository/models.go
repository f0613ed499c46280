package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

// MediaItem is the canonical store row.
type MediaItem struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// External IDs, unique when present
	AniListID *int    `gorm:"column:anilist_id;uniqueIndex"`
	MalID     *int    `gorm:"column:mal_id;uniqueIndex"`
	TMDBID    *int    `gorm:"column:tmdb_id;uniqueIndex"`
	IMDbID    *string `gorm:"column:imdb_id;type:varchar(20);uniqueIndex"`
	TVMazeID  *int    `gorm:"column:tvmaze_id;uniqueIndex"`

	Title       string   `gorm:"not null;index"`
	Type        string   `gorm:"type:varchar(16);not null;index"`
	Description string   `gorm:"type:text"`
	Genres      []string `gorm:"type:text;serializer:json"`
	CoverImage  string
	BannerImage string
	Rating      float64 `gorm:"not null;default:0;index"`
	ReleaseDate string  `gorm:"type:varchar(10)"`
	Status      string  `gorm:"type:varchar(16);not null"`
	Episodes    *int
	Chapters    *int
	Duration    *int
	Season      string `gorm:"type:varchar(16)"`
	Source      string `gorm:"type:varchar(32)"`
	RawData     string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Keywords []MediaKeyword `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE"`
}

func (MediaItem) TableName() string { return "media_items" }

// MediaKeyword is one lower-cased title variant used for exact keyword matches.
type MediaKeyword struct {
	ID      uint      `gorm:"primaryKey"`
	MediaID uuid.UUID `gorm:"type:uuid;not null;index"`
	Keyword string    `gorm:"type:varchar(255);not null;index"`
}

func (MediaKeyword) TableName() string { return "media_keywords" }

// QueryCacheEntry memoizes one search response until ExpiresAt.
type QueryCacheEntry struct {
	ID        uint      `gorm:"primaryKey"`
	CacheKey  string    `gorm:"type:varchar(512);uniqueIndex;not null"`
	Query     string    `gorm:"type:varchar(255);not null"`
	Type      string    `gorm:"type:varchar(16);not null"`
	Results   string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (QueryCacheEntry) TableName() string { return "query_cache_entries" }

// Models lists every table this package owns, in migration order.
func Models() []interface{} {
	return []interface{}{&MediaItem{}, &MediaKeyword{}, &QueryCacheEntry{}}
}

func toModel(rec *domain.MediaRecord) *MediaItem {
	item := &MediaItem{
		ID:          rec.ID,
		AniListID:   rec.AniListID,
		MalID:       rec.MalID,
		TMDBID:      rec.TMDBID,
		IMDbID:      rec.IMDbID,
		TVMazeID:    rec.TVMazeID,
		Title:       rec.Title,
		Type:        string(rec.Type),
		Description: rec.Description,
		Genres:      rec.Genres,
		CoverImage:  rec.CoverImage,
		BannerImage: rec.BannerImage,
		Rating:      rec.Rating,
		ReleaseDate: rec.ReleaseDate,
		Status:      string(rec.Status),
		Episodes:    rec.Episodes,
		Chapters:    rec.Chapters,
		Duration:    rec.Duration,
		Season:      rec.Season,
		Source:      rec.Source,
		RawData:     string(rec.RawData),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	for _, kw := range rec.Keywords {
		item.Keywords = append(item.Keywords, MediaKeyword{MediaID: rec.ID, Keyword: kw})
	}
	return item
}

func toDomain(item *MediaItem) domain.MediaRecord {
	rec := domain.MediaRecord{
		ID:          item.ID,
		AniListID:   item.AniListID,
		MalID:       item.MalID,
		TMDBID:      item.TMDBID,
		IMDbID:      item.IMDbID,
		TVMazeID:    item.TVMazeID,
		Title:       item.Title,
		Type:        domain.MediaType(item.Type),
		Description: item.Description,
		Genres:      item.Genres,
		CoverImage:  item.CoverImage,
		BannerImage: item.BannerImage,
		Rating:      item.Rating,
		ReleaseDate: item.ReleaseDate,
		Status:      domain.MediaStatus(item.Status),
		Episodes:    item.Episodes,
		Chapters:    item.Chapters,
		Duration:    item.Duration,
		Season:      item.Season,
		Source:      item.Source,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
		Keywords:    make([]string, 0, len(item.Keywords)),
	}
	if rec.Genres == nil {
		rec.Genres = []string{}
	}
	if item.RawData != "" && json.Valid([]byte(item.RawData)) {
		rec.RawData = json.RawMessage(item.RawData)
	}
	for _, kw := range item.Keywords {
		rec.Keywords = append(rec.Keywords, kw.Keyword)
	}
	return rec
}
