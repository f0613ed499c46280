package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// TMDB searches The Movie Database. An API key is required.
type TMDB struct {
	baseURL      string
	imageBaseURL string
	apiKey       string
	client       *client
	now          func() time.Time
}

// NewTMDB creates a new TMDB adapter.
func NewTMDB(opts Options, imageBaseURL string) *TMDB {
	opts = opts.withDefaults()
	return &TMDB{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		apiKey:       opts.APIKey,
		client:       newClient(NameTMDB, opts),
		now:          time.Now,
	}
}

func (t *TMDB) Name() string { return NameTMDB }

// tmdbGenres maps TMDB genre ids to names for search results, which only
// carry ids.
var tmdbGenres = map[int]string{
	28: "Action", 12: "Adventure", 16: "Animation", 35: "Comedy", 80: "Crime",
	99: "Documentary", 18: "Drama", 10751: "Family", 14: "Fantasy", 36: "History",
	27: "Horror", 10402: "Music", 9648: "Mystery", 10749: "Romance",
	878: "Science Fiction", 10770: "TV Movie", 53: "Thriller", 10752: "War", 37: "Western",
	10759: "Action & Adventure", 10762: "Kids", 10763: "News", 10764: "Reality",
	10765: "Sci-Fi & Fantasy", 10766: "Soap", 10767: "Talk", 10768: "War & Politics",
}

var tmdbTVStatuses = map[string]domain.MediaStatus{
	"Returning Series": domain.StatusOngoing,
	"Ended":            domain.StatusCompleted,
	"Canceled":         domain.StatusCompleted,
	"In Production":    domain.StatusUpcoming,
	"Planned":          domain.StatusUpcoming,
	"Pilot":            domain.StatusUpcoming,
}

type tmdbSearchResponse struct {
	Results []json.RawMessage `json:"results"`
}

type tmdbResult struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	Name             string   `json:"name"`
	OriginalTitle    string   `json:"original_title"`
	OriginalName     string   `json:"original_name"`
	Overview         string   `json:"overview"`
	PosterPath       string   `json:"poster_path"`
	BackdropPath     string   `json:"backdrop_path"`
	ReleaseDate      string   `json:"release_date"`
	FirstAirDate     string   `json:"first_air_date"`
	VoteAverage      float64  `json:"vote_average"`
	Popularity       float64  `json:"popularity"`
	GenreIDs         []int    `json:"genre_ids"`
	OriginalLanguage string   `json:"original_language"`
	OriginCountry    []string `json:"origin_country"`
}

type tmdbTVDetails struct {
	Status           string `json:"status"`
	NumberOfEpisodes int    `json:"number_of_episodes"`
	NumberOfSeasons  int    `json:"number_of_seasons"`
	EpisodeRunTime   []int  `json:"episode_run_time"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
	OriginCountry    []string `json:"origin_country"`
	OriginalLanguage string   `json:"original_language"`
}

type tmdbCandidate struct {
	result tmdbResult
	raw    json.RawMessage
	tv     bool
}

// Search implements Provider. Without a type both movies and TV are
// searched and merged by popularity.
func (t *TMDB) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	if t.apiKey == "" || limit <= 0 || (mediaType != domain.TypeAll && !mediaType.IsScreen()) {
		return nil, nil
	}

	var candidates []tmdbCandidate
	if mediaType == domain.TypeAll || mediaType == domain.TypeMovie {
		movies, err := t.search(ctx, "movie", query, false)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, movies...)
	}
	if mediaType != domain.TypeMovie {
		shows, err := t.search(ctx, "tv", query, true)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, shows...)
	}

	if mediaType == domain.TypeAll {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].result.Popularity > candidates[j].result.Popularity
		})
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return t.resolve(ctx, candidates), nil
}

func (t *TMDB) search(ctx context.Context, kind, query string, tv bool) ([]tmdbCandidate, error) {
	params := url.Values{}
	params.Set("api_key", t.apiKey)
	params.Set("query", query)
	params.Set("include_adult", "false")

	var resp tmdbSearchResponse
	if err := t.client.getJSON(ctx, t.baseURL+"/search/"+kind+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	candidates := make([]tmdbCandidate, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var r tmdbResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("tmdb: decoding result: %w", err)
		}
		candidates = append(candidates, tmdbCandidate{result: r, raw: raw, tv: tv})
	}
	return candidates, nil
}

// resolve converts candidates to records. TV shows need a detail call; a
// failed detail call drops that show.
func (t *TMDB) resolve(ctx context.Context, candidates []tmdbCandidate) []domain.MediaRecord {
	resolved := make([]*domain.MediaRecord, len(candidates))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(maxDetailCalls)
	for i := range candidates {
		c := candidates[i]
		if !c.tv {
			rec := t.movieRecord(&c.result, c.raw)
			resolved[i] = &rec
			continue
		}
		p.Go(func(ctx context.Context) error {
			var details tmdbTVDetails
			params := url.Values{}
			params.Set("api_key", t.apiKey)
			err := t.client.getJSON(ctx, fmt.Sprintf("%s/tv/%d?%s", t.baseURL, c.result.ID, params.Encode()), &details)
			if err != nil {
				t.client.logger.Debug("Dropping show after failed detail call",
					interfaces.Int("tmdb_id", c.result.ID),
					interfaces.Error(err))
				return nil
			}
			rec := t.tvRecord(&c.result, &details, c.raw)
			resolved[i] = &rec
			return nil
		})
	}
	_ = p.Wait()

	records := make([]domain.MediaRecord, 0, len(resolved))
	for _, rec := range resolved {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

func (t *TMDB) movieRecord(r *tmdbResult, raw json.RawMessage) domain.MediaRecord {
	rec := t.baseRecord(r, raw)
	rec.Title = firstNonEmpty(r.Title, r.OriginalTitle)
	rec.Type = domain.TypeMovie
	rec.ReleaseDate = r.ReleaseDate
	rec.Status = releaseStatus(r.ReleaseDate, t.now())
	rec.Keywords = domain.BuildKeywords(r.Title, r.OriginalTitle)
	rec.Sanitize(domain.TypeMovie)
	return rec
}

func (t *TMDB) tvRecord(r *tmdbResult, d *tmdbTVDetails, raw json.RawMessage) domain.MediaRecord {
	rec := t.baseRecord(r, raw)
	rec.Title = firstNonEmpty(r.Name, r.OriginalName)
	rec.ReleaseDate = r.FirstAirDate
	rec.Status = tmdbTVStatuses[d.Status]
	rec.Episodes = domain.IntPtr(d.NumberOfEpisodes)
	if len(d.EpisodeRunTime) > 0 {
		rec.Duration = domain.IntPtr(d.EpisodeRunTime[0])
	}
	if d.NumberOfSeasons > 0 {
		rec.Season = fmt.Sprintf("%d seasons", d.NumberOfSeasons)
		if d.NumberOfSeasons == 1 {
			rec.Season = "1 season"
		}
	}
	if len(d.Genres) > 0 {
		rec.Genres = rec.Genres[:0]
		for _, g := range d.Genres {
			rec.Genres = append(rec.Genres, g.Name)
		}
	}

	lang := firstNonEmpty(d.OriginalLanguage, r.OriginalLanguage)
	countries := d.OriginCountry
	if len(countries) == 0 {
		countries = r.OriginCountry
	}
	rec.Type = domain.InferScreenType(domain.TypeSeries, lang, countries, rec.Genres...)
	rec.Keywords = domain.BuildKeywords(r.Name, r.OriginalName)
	rec.Sanitize(domain.TypeSeries)
	return rec
}

func (t *TMDB) baseRecord(r *tmdbResult, raw json.RawMessage) domain.MediaRecord {
	genres := make([]string, 0, len(r.GenreIDs))
	for _, id := range r.GenreIDs {
		if name, ok := tmdbGenres[id]; ok {
			genres = append(genres, name)
		}
	}
	return domain.MediaRecord{
		TMDBID:      domain.IntPtr(r.ID),
		Description: StripMarkup(r.Overview),
		Genres:      genres,
		CoverImage:  t.imageURL(r.PosterPath),
		BannerImage: t.imageURL(r.BackdropPath),
		Rating:      domain.NormalizeRating(r.VoteAverage, 10),
		Source:      NameTMDB,
		RawData:     compactJSON(raw),
	}
}

func (t *TMDB) imageURL(path string) string {
	if path == "" {
		return ""
	}
	return t.imageBaseURL + path
}

// releaseStatus derives a movie's status from its release date.
func releaseStatus(date string, now time.Time) domain.MediaStatus {
	released, err := time.Parse("2006-01-02", date)
	if err != nil || released.After(now) {
		return domain.StatusUpcoming
	}
	return domain.StatusCompleted
}
