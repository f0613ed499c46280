package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

const aniListSearchQuery = `query ($search: String, $type: MediaType, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(search: $search, type: $type, sort: SEARCH_MATCH, isAdult: false) {
      id
      idMal
      title { romaji english native }
      synonyms
      description(asHtml: false)
      format
      status
      episodes
      chapters
      duration
      season
      seasonYear
      averageScore
      genres
      countryOfOrigin
      coverImage { extraLarge large }
      bannerImage
      startDate { year month day }
    }
  }
}`

// AniList searches the AniList GraphQL API. No key is required.
type AniList struct {
	baseURL string
	client  *client
}

// NewAniList creates a new AniList adapter.
func NewAniList(opts Options) *AniList {
	opts = opts.withDefaults()
	return &AniList{
		baseURL: opts.BaseURL,
		client:  newClient(NameAniList, opts),
	}
}

func (a *AniList) Name() string { return NameAniList }

type aniListResponse struct {
	Data struct {
		Page struct {
			Media []json.RawMessage `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type aniListMedia struct {
	ID    int  `json:"id"`
	IDMal *int `json:"idMal"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Synonyms        []string `json:"synonyms"`
	Description     string   `json:"description"`
	Format          string   `json:"format"`
	Status          string   `json:"status"`
	Episodes        *int     `json:"episodes"`
	Chapters        *int     `json:"chapters"`
	Duration        *int     `json:"duration"`
	Season          string   `json:"season"`
	SeasonYear      *int     `json:"seasonYear"`
	AverageScore    *float64 `json:"averageScore"`
	Genres          []string `json:"genres"`
	CountryOfOrigin string   `json:"countryOfOrigin"`
	CoverImage      struct {
		ExtraLarge string `json:"extraLarge"`
		Large      string `json:"large"`
	} `json:"coverImage"`
	BannerImage string `json:"bannerImage"`
	StartDate   struct {
		Year  *int `json:"year"`
		Month *int `json:"month"`
		Day   *int `json:"day"`
	} `json:"startDate"`
}

var aniListStatuses = map[string]domain.MediaStatus{
	"FINISHED":         domain.StatusCompleted,
	"RELEASING":        domain.StatusOngoing,
	"NOT_YET_RELEASED": domain.StatusUpcoming,
	"CANCELLED":        domain.StatusCompleted,
	"HIATUS":           domain.StatusHiatus,
}

var aniListAnimeFormats = map[string]bool{
	"TV": true, "TV_SHORT": true, "MOVIE": true, "SPECIAL": true, "OVA": true, "ONA": true, "MUSIC": true,
}

var aniListReadableFormats = map[string]bool{
	"MANGA": true, "ONE_SHOT": true, "NOVEL": true,
}

// Search implements Provider.
func (a *AniList) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	if limit <= 0 || (mediaType != domain.TypeAll && !mediaType.IsIllustrated()) {
		return nil, nil
	}

	variables := map[string]interface{}{
		"search":  query,
		"perPage": limit,
	}
	switch {
	case mediaType == domain.TypeAnime:
		variables["type"] = "ANIME"
	case mediaType.IsReadable():
		variables["type"] = "MANGA"
	}

	var resp aniListResponse
	body := map[string]interface{}{"query": aniListSearchQuery, "variables": variables}
	if err := a.client.postJSON(ctx, a.baseURL, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, errors.New("anilist: " + strings.Join(msgs, "; "))
	}

	records := make([]domain.MediaRecord, 0, len(resp.Data.Page.Media))
	for _, raw := range resp.Data.Page.Media {
		var m aniListMedia
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("anilist: decoding media: %w", err)
		}
		records = append(records, a.toRecord(&m, raw, mediaType))
	}
	return records, nil
}

func (a *AniList) toRecord(m *aniListMedia, raw json.RawMessage, requested domain.MediaType) domain.MediaRecord {
	title := m.Title.English
	if title == "" {
		title = m.Title.Romaji
	}
	if title == "" {
		title = m.Title.Native
	}

	rec := domain.MediaRecord{
		AniListID:   domain.IntPtr(m.ID),
		MalID:       m.IDMal,
		Title:       title,
		Type:        aniListType(m.Format, m.CountryOfOrigin, requested),
		Description: StripMarkup(m.Description),
		Genres:      m.Genres,
		CoverImage:  firstNonEmpty(m.CoverImage.ExtraLarge, m.CoverImage.Large),
		BannerImage: m.BannerImage,
		Status:      aniListStatuses[m.Status],
		ReleaseDate: partialDate(m.StartDate.Year, m.StartDate.Month, m.StartDate.Day),
		Episodes:    m.Episodes,
		Chapters:    m.Chapters,
		Duration:    m.Duration,
		Season:      aniListSeason(m.Season, m.SeasonYear),
		Keywords:    domain.BuildKeywords(append([]string{m.Title.English, m.Title.Romaji, m.Title.Native}, m.Synonyms...)...),
		Source:      NameAniList,
		RawData:     compactJSON(raw),
	}
	if m.AverageScore != nil {
		rec.Rating = domain.NormalizeRating(*m.AverageScore, 100)
	}
	rec.Sanitize(domain.OrDefault(requested, domain.TypeAnime))
	return rec
}

func aniListType(format, country string, requested domain.MediaType) domain.MediaType {
	switch {
	case aniListAnimeFormats[format]:
		return domain.TypeAnime
	case aniListReadableFormats[format]:
		return domain.InferReadableType(country)
	}
	return domain.OrDefault(requested, domain.TypeAnime)
}

func aniListSeason(season string, year *int) string {
	if season == "" {
		return ""
	}
	if year == nil {
		return strings.ToLower(season)
	}
	return fmt.Sprintf("%s %d", strings.ToLower(season), *year)
}

// partialDate formats as much of a date as is known: "2002", "2002-10" or "2002-10-03".
func partialDate(year, month, day *int) string {
	switch {
	case year == nil || *year == 0:
		return ""
	case month == nil || *month == 0:
		return fmt.Sprintf("%04d", *year)
	case day == nil || *day == 0:
		return fmt.Sprintf("%04d-%02d", *year, *month)
	}
	return fmt.Sprintf("%04d-%02d-%02d", *year, *month, *day)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
