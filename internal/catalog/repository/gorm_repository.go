package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	pkgerrors "github.com/narwhalmedia/mediaresolver/pkg/errors"
	"github.com/narwhalmedia/mediaresolver/pkg/repository"
)

// GormMediaStore implements MediaStore using GORM.
type GormMediaStore struct {
	db  *gorm.DB
	now Clock
}

// NewGormMediaStore creates a new GORM media store.
func NewGormMediaStore(db *gorm.DB) *GormMediaStore {
	return &GormMediaStore{db: db, now: utcNow}
}

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func (s *GormMediaStore) WithClock(now Clock) *GormMediaStore {
	s.now = now
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search searches stored records by title substring or exact keyword.
func (s *GormMediaStore) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	q := domain.NormalizeQuery(query)
	if q == "" || limit <= 0 {
		return []domain.MediaRecord{}, nil
	}
	pattern := "%" + likeEscaper.Replace(q) + "%"

	tx := s.db.WithContext(ctx).Model(&MediaItem{}).Preload("Keywords").
		Where(`(LOWER(media_items.title) LIKE ? ESCAPE '\' OR EXISTS (`+
			`SELECT 1 FROM media_keywords k WHERE k.media_id = media_items.id AND k.keyword = ?))`,
			pattern, q)
	if mediaType != domain.TypeAll {
		tx = tx.Where("media_items.type = ?", string(mediaType))
	}

	var items []*MediaItem
	if err := tx.Order("media_items.rating DESC").Order("media_items.title").Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to search media: %w", err)
	}
	return toDomainList(items), nil
}

// GetByID retrieves a record by its internal ID.
func (s *GormMediaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaRecord, error) {
	item, err := repository.FindByID[MediaItem](ctx, s.db, id, "Keywords")
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NotFound(fmt.Sprintf("media %s not found", id))
		}
		return nil, err
	}
	rec := toDomain(item)
	return &rec, nil
}

// TopRated lists the best rated records, optionally of a single type.
func (s *GormMediaStore) TopRated(ctx context.Context, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	tx := s.db.WithContext(ctx).Preload("Keywords")
	if mediaType != domain.TypeAll {
		tx = tx.Where("type = ?", string(mediaType))
	}

	var items []*MediaItem
	if err := tx.Order("rating DESC").Order("title").Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list top rated media: %w", err)
	}
	return toDomainList(items), nil
}

// Upsert inserts rec, or merges it into the row matching one of its external
// ids. A concurrent insert of the same title is retried once as an update.
func (s *GormMediaStore) Upsert(ctx context.Context, rec *domain.MediaRecord) (bool, error) {
	if !rec.HasExternalID() {
		return false, pkgerrors.BadRequest("media record has no external id")
	}

	created, err := s.upsert(ctx, rec)
	if err != nil && pkgerrors.IsConflict(err) {
		created, err = s.upsert(ctx, rec)
	}
	return created, err
}

func (s *GormMediaStore) upsert(ctx context.Context, rec *domain.MediaRecord) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByExternalID(ctx, tx, rec)
		if err != nil {
			return err
		}

		now := s.now()
		if existing == nil {
			if rec.ID == uuid.Nil {
				rec.ID = uuid.New()
			}
			rec.CreatedAt = now
			rec.UpdatedAt = now
			created = true
			return repository.Create(ctx, tx, toModel(rec))
		}

		mergeExternalIDs(rec, existing)
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now

		item := toModel(rec)
		keywords := item.Keywords
		item.Keywords = nil

		if err := repository.Update(ctx, tx, item); err != nil {
			return err
		}
		if err := tx.Where("media_id = ?", item.ID).Delete(&MediaKeyword{}).Error; err != nil {
			return fmt.Errorf("failed to clear keywords: %w", err)
		}
		if len(keywords) > 0 {
			if err := tx.Create(&keywords).Error; err != nil {
				return fmt.Errorf("failed to store keywords: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Ping checks the underlying connection.
func (s *GormMediaStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// findByExternalID looks the record up by each present external id in
// anilist, mal, tmdb, imdb, tvmaze order and returns the first hit.
func findByExternalID(ctx context.Context, tx *gorm.DB, rec *domain.MediaRecord) (*MediaItem, error) {
	type lookup struct {
		column string
		value  interface{}
	}
	var lookups []lookup
	if rec.AniListID != nil {
		lookups = append(lookups, lookup{"anilist_id", *rec.AniListID})
	}
	if rec.MalID != nil {
		lookups = append(lookups, lookup{"mal_id", *rec.MalID})
	}
	if rec.TMDBID != nil {
		lookups = append(lookups, lookup{"tmdb_id", *rec.TMDBID})
	}
	if rec.IMDbID != nil {
		lookups = append(lookups, lookup{"imdb_id", *rec.IMDbID})
	}
	if rec.TVMazeID != nil {
		lookups = append(lookups, lookup{"tvmaze_id", *rec.TVMazeID})
	}

	for _, l := range lookups {
		item, err := repository.FindOneBy[MediaItem](ctx, tx, l.column+" = ?", l.value)
		if err == nil {
			return item, nil
		}
		if !pkgerrors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to look up media by %s: %w", l.column, err)
		}
	}
	return nil, nil
}

// mergeExternalIDs keeps ids the stored row knows but the provider omitted.
func mergeExternalIDs(rec *domain.MediaRecord, existing *MediaItem) {
	if rec.AniListID == nil {
		rec.AniListID = existing.AniListID
	}
	if rec.MalID == nil {
		rec.MalID = existing.MalID
	}
	if rec.TMDBID == nil {
		rec.TMDBID = existing.TMDBID
	}
	if rec.IMDbID == nil {
		rec.IMDbID = existing.IMDbID
	}
	if rec.TVMazeID == nil {
		rec.TVMazeID = existing.TVMazeID
	}
}

func toDomainList(items []*MediaItem) []domain.MediaRecord {
	records := make([]domain.MediaRecord, 0, len(items))
	for _, item := range items {
		records = append(records, toDomain(item))
	}
	return records
}
