package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

// Jikan searches MyAnimeList through the unofficial Jikan REST API. The
// free tier allows roughly three requests a second, so every request waits
// a fixed delay first.
type Jikan struct {
	baseURL string
	client  *client
}

// NewJikan creates a new Jikan adapter.
func NewJikan(opts Options, delay time.Duration) *Jikan {
	opts = opts.withDefaults()
	c := newClient(NameJikan, opts)
	c.before = func(ctx context.Context) error { return waitDelay(ctx, delay) }
	return &Jikan{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  c,
	}
}

func (j *Jikan) Name() string { return NameJikan }

type jikanResponse struct {
	Data []json.RawMessage `json:"data"`
}

type jikanItem struct {
	MalID  int `json:"mal_id"`
	Images struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	TitleSynonyms []string `json:"title_synonyms"`
	Type          string   `json:"type"`
	Episodes      *int     `json:"episodes"`
	Chapters      *int     `json:"chapters"`
	Status        string   `json:"status"`
	Duration      string   `json:"duration"`
	Score         *float64 `json:"score"`
	Synopsis      string   `json:"synopsis"`
	Season        string   `json:"season"`
	Year          *int     `json:"year"`
	Aired         struct {
		From string `json:"from"`
	} `json:"aired"`
	Published struct {
		From string `json:"from"`
	} `json:"published"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

var jikanStatuses = map[string]domain.MediaStatus{
	"Finished Airing":   domain.StatusCompleted,
	"Finished":          domain.StatusCompleted,
	"Discontinued":      domain.StatusCompleted,
	"Currently Airing":  domain.StatusOngoing,
	"Publishing":        domain.StatusOngoing,
	"Not yet aired":     domain.StatusUpcoming,
	"Not yet published": domain.StatusUpcoming,
	"On Hiatus":         domain.StatusHiatus,
}

var jikanTypes = map[string]domain.MediaType{
	"TV":          domain.TypeAnime,
	"TV Special":  domain.TypeAnime,
	"Movie":       domain.TypeAnime,
	"OVA":         domain.TypeAnime,
	"ONA":         domain.TypeAnime,
	"Special":     domain.TypeAnime,
	"Music":       domain.TypeAnime,
	"Manga":       domain.TypeManga,
	"One-shot":    domain.TypeManga,
	"Doujinshi":   domain.TypeManga,
	"Light Novel": domain.TypeManga,
	"Novel":       domain.TypeManga,
	"Manhwa":      domain.TypeManhwa,
	"Manhua":      domain.TypeManhua,
}

// Search implements Provider. Without a type both the anime and the manga
// endpoints are queried.
func (j *Jikan) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	if limit <= 0 || (mediaType != domain.TypeAll && !mediaType.IsIllustrated()) {
		return nil, nil
	}

	var endpoints []string
	switch {
	case mediaType == domain.TypeAll:
		endpoints = []string{"anime", "manga"}
	case mediaType == domain.TypeAnime:
		endpoints = []string{"anime"}
	default:
		endpoints = []string{"manga"}
	}

	var records []domain.MediaRecord
	for _, endpoint := range endpoints {
		params := url.Values{}
		params.Set("q", query)
		params.Set("limit", fmt.Sprint(limit))
		params.Set("sfw", "true")
		if mediaType == domain.TypeManhwa || mediaType == domain.TypeManhua {
			params.Set("type", string(mediaType))
		}

		var resp jikanResponse
		if err := j.client.getJSON(ctx, j.baseURL+"/"+endpoint+"?"+params.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, raw := range resp.Data {
			var item jikanItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, fmt.Errorf("jikan: decoding item: %w", err)
			}
			records = append(records, j.toRecord(&item, raw, mediaType, endpoint))
		}
	}

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (j *Jikan) toRecord(item *jikanItem, raw json.RawMessage, requested domain.MediaType, endpoint string) domain.MediaRecord {
	genres := make([]string, 0, len(item.Genres))
	for _, g := range item.Genres {
		genres = append(genres, g.Name)
	}

	fallback := domain.OrDefault(requested, domain.TypeAnime)
	if endpoint == "manga" && requested == domain.TypeAll {
		fallback = domain.TypeManga
	}
	mediaType, ok := jikanTypes[item.Type]
	if !ok {
		mediaType = fallback
	}

	started := item.Aired.From
	if started == "" {
		started = item.Published.From
	}

	rec := domain.MediaRecord{
		MalID:       domain.IntPtr(item.MalID),
		Title:       firstNonEmpty(item.TitleEnglish, item.Title, item.TitleJapanese),
		Type:        mediaType,
		Description: StripMarkup(item.Synopsis),
		Genres:      genres,
		CoverImage:  firstNonEmpty(item.Images.JPG.LargeImageURL, item.Images.JPG.ImageURL),
		Status:      jikanStatuses[item.Status],
		ReleaseDate: datePrefix(started),
		Episodes:    item.Episodes,
		Chapters:    item.Chapters,
		Duration:    domain.IntPtr(parseJikanDuration(item.Duration)),
		Keywords:    domain.BuildKeywords(append([]string{item.TitleEnglish, item.Title, item.TitleJapanese}, item.TitleSynonyms...)...),
		Source:      NameJikan,
		RawData:     compactJSON(raw),
	}
	if item.Season != "" && item.Year != nil {
		rec.Season = fmt.Sprintf("%s %d", strings.ToLower(item.Season), *item.Year)
	}
	if item.Score != nil {
		rec.Rating = domain.NormalizeRating(*item.Score, 10)
	}
	rec.Sanitize(fallback)
	return rec
}

// parseJikanDuration turns "24 min per ep" or "1 hr 55 min" into minutes.
func parseJikanDuration(s string) int {
	fields := strings.Fields(s)
	minutes := 0
	for i := 0; i+1 < len(fields); i++ {
		n, err := cast.ToIntE(fields[i])
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(strings.ToLower(fields[i+1]), ".") {
		case "hr", "hrs", "hour", "hours":
			minutes += n * 60
		case "min", "mins", "minutes":
			minutes += n
		}
	}
	return minutes
}

// datePrefix keeps the YYYY-MM-DD part of an ISO timestamp.
func datePrefix(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}
