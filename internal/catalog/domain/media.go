package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaType is the closed set of media kinds the catalog knows about.
type MediaType string

const (
	TypeAnime  MediaType = "anime"
	TypeManga  MediaType = "manga"
	TypeManhwa MediaType = "manhwa"
	TypeManhua MediaType = "manhua"
	TypeMovie  MediaType = "movie"
	TypeSeries MediaType = "series"
	TypeKDrama MediaType = "kdrama"
	TypeJDrama MediaType = "jdrama"

	// TypeAll is the zero value and means "no type filter".
	TypeAll MediaType = ""
)

// AllTypes lists every valid MediaType.
var AllTypes = []MediaType{
	TypeAnime, TypeManga, TypeManhwa, TypeManhua,
	TypeMovie, TypeSeries, TypeKDrama, TypeJDrama,
}

// IllustratedTypes share the AniList -> Jikan provider chain.
var IllustratedTypes = []MediaType{TypeAnime, TypeManga, TypeManhwa, TypeManhua}

// ScreenTypes share the TMDB -> OMDb -> TVMaze provider chain.
var ScreenTypes = []MediaType{TypeMovie, TypeSeries, TypeKDrama, TypeJDrama}

// Valid reports whether t is one of the closed enum values.
func (t MediaType) Valid() bool {
	for _, v := range AllTypes {
		if t == v {
			return true
		}
	}
	return false
}

// IsIllustrated reports whether t belongs to the illustrated serial family.
func (t MediaType) IsIllustrated() bool {
	return contains(IllustratedTypes, t)
}

// IsScreen reports whether t belongs to the screen family.
func (t MediaType) IsScreen() bool {
	return contains(ScreenTypes, t)
}

// IsReadable reports whether t is counted in chapters rather than episodes.
func (t MediaType) IsReadable() bool {
	return t == TypeManga || t == TypeManhwa || t == TypeManhua
}

// KeyPart returns the segment used in cache keys.
func (t MediaType) KeyPart() string {
	if t == TypeAll {
		return "all"
	}
	return string(t)
}

func contains(types []MediaType, t MediaType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

// ParseType parses the canonical type names accepted by the search API.
// An empty string and "all" both mean TypeAll.
func ParseType(s string) (MediaType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return TypeAll, true
	}
	t := MediaType(s)
	return t, t.Valid()
}

// typeLabels maps the labels UI lists use to canonical types, keyed after
// lower-casing and removing separators.
var typeLabels = map[string]MediaType{
	"anime":    TypeAnime,
	"manga":    TypeManga,
	"manhwa":   TypeManhwa,
	"manhua":   TypeManhua,
	"webtoon":  TypeManhwa,
	"movie":    TypeMovie,
	"film":     TypeMovie,
	"series":   TypeSeries,
	"tv":       TypeSeries,
	"tvseries": TypeSeries,
	"tvshow":   TypeSeries,
	"show":     TypeSeries,
	"kdrama":   TypeKDrama,
	"jdrama":   TypeJDrama,
}

// ParseTypeLabel maps free-form labels such as "K-Drama" or "TV" onto a type.
// It returns false for labels no provider family can serve.
func ParseTypeLabel(label string) (MediaType, bool) {
	key := strings.NewReplacer("-", "", " ", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(label)))
	t, ok := typeLabels[key]
	return t, ok
}

// MediaStatus is the closed set of publication states.
type MediaStatus string

const (
	StatusOngoing   MediaStatus = "ongoing"
	StatusCompleted MediaStatus = "completed"
	StatusUpcoming  MediaStatus = "upcoming"
	StatusHiatus    MediaStatus = "hiatus"
)

// Valid reports whether s is one of the closed enum values.
func (s MediaStatus) Valid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusUpcoming, StatusHiatus:
		return true
	}
	return false
}

// MediaRecord is the canonical resolved entity.
type MediaRecord struct {
	ID uuid.UUID `json:"id"`

	AniListID *int    `json:"anilistId,omitempty"`
	MalID     *int    `json:"malId,omitempty"`
	TMDBID    *int    `json:"tmdbId,omitempty"`
	IMDbID    *string `json:"imdbId,omitempty"`
	TVMazeID  *int    `json:"tvmazeId,omitempty"`

	Title       string      `json:"title"`
	Type        MediaType   `json:"type"`
	Description string      `json:"description"`
	Genres      []string    `json:"genres"`
	CoverImage  string      `json:"coverImage"`
	BannerImage string      `json:"bannerImage,omitempty"`
	Rating      float64     `json:"rating"`
	ReleaseDate string      `json:"releaseDate,omitempty"`
	Status      MediaStatus `json:"status"`
	Episodes    *int        `json:"episodes,omitempty"`
	Chapters    *int        `json:"chapters,omitempty"`
	Duration    *int        `json:"duration,omitempty"` // minutes
	Season      string      `json:"season,omitempty"`

	Keywords []string        `json:"keywords"`
	Source   string          `json:"source,omitempty"`
	RawData  json.RawMessage `json:"rawData,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasExternalID reports whether the record carries at least one provider id.
func (m *MediaRecord) HasExternalID() bool {
	return m.AniListID != nil || m.MalID != nil || m.TMDBID != nil || m.IMDbID != nil || m.TVMazeID != nil
}

// Sanitize enforces the enum invariants on a provider record. fallback is
// used when the type is unknown.
func (m *MediaRecord) Sanitize(fallback MediaType) {
	if !m.Type.Valid() {
		m.Type = fallback
	}
	if !m.Status.Valid() {
		m.Status = StatusUpcoming
	}
	m.Rating = clampRating(m.Rating)
	if m.Genres == nil {
		m.Genres = []string{}
	}
	if m.Keywords == nil {
		m.Keywords = BuildKeywords(m.Title)
	}
}

// IntPtr returns a pointer to v, or nil when v is zero.
func IntPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

// StringPtr returns a pointer to v, or nil when v is empty.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
