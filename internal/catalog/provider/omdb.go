package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cast"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// OMDb searches the Open Movie Database. An API key is required. Search
// results are thin, so every hit is followed by a detail call.
type OMDb struct {
	baseURL string
	apiKey  string
	client  *client
	now     func() time.Time
}

// NewOMDb creates a new OMDb adapter.
func NewOMDb(opts Options) *OMDb {
	opts = opts.withDefaults()
	return &OMDb{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		client:  newClient(NameOMDb, opts),
		now:     time.Now,
	}
}

func (o *OMDb) Name() string { return NameOMDb }

type omdbSearchResponse struct {
	Search []struct {
		IMDbID string `json:"imdbID"`
		Type   string `json:"Type"`
	} `json:"Search"`
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

type omdbDetails struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Plot       string `json:"Plot"`
	Language   string `json:"Language"`
	Country    string `json:"Country"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
	Type       string `json:"Type"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

var omdbTypes = map[string]domain.MediaType{
	"movie":  domain.TypeMovie,
	"series": domain.TypeSeries,
}

// Search implements Provider.
func (o *OMDb) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	if o.apiKey == "" || limit <= 0 || (mediaType != domain.TypeAll && !mediaType.IsScreen()) {
		return nil, nil
	}

	params := url.Values{}
	params.Set("apikey", o.apiKey)
	params.Set("s", query)
	switch {
	case mediaType == domain.TypeMovie:
		params.Set("type", "movie")
	case mediaType.IsScreen():
		params.Set("type", "series")
	}

	var resp omdbSearchResponse
	if err := o.client.getJSON(ctx, o.baseURL+"/?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Response == "False" {
		// "Movie not found!" is a normal empty answer; anything else is a failure.
		if strings.Contains(strings.ToLower(resp.Error), "not found") {
			return nil, nil
		}
		return nil, errors.New("omdb: " + resp.Error)
	}

	ids := make([]string, 0, len(resp.Search))
	for _, hit := range resp.Search {
		if _, ok := omdbTypes[hit.Type]; ok && hit.IMDbID != "" {
			ids = append(ids, hit.IMDbID)
		}
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	return o.details(ctx, ids, mediaType), nil
}

func (o *OMDb) details(ctx context.Context, ids []string, requested domain.MediaType) []domain.MediaRecord {
	resolved := make([]*domain.MediaRecord, len(ids))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(maxDetailCalls)
	for i, id := range ids {
		p.Go(func(ctx context.Context) error {
			params := url.Values{}
			params.Set("apikey", o.apiKey)
			params.Set("i", id)
			params.Set("plot", "short")

			var raw json.RawMessage
			if err := o.client.getJSON(ctx, o.baseURL+"/?"+params.Encode(), &raw); err != nil {
				o.client.logger.Debug("Dropping title after failed detail call",
					interfaces.String("imdb_id", id),
					interfaces.Error(err))
				return nil
			}
			var d omdbDetails
			if err := json.Unmarshal(raw, &d); err != nil || d.Response == "False" {
				return nil
			}
			rec := o.toRecord(&d, raw, requested)
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

func (o *OMDb) toRecord(d *omdbDetails, raw json.RawMessage, requested domain.MediaType) domain.MediaRecord {
	base, ok := omdbTypes[d.Type]
	if !ok {
		base = domain.OrDefault(requested, domain.TypeSeries)
	}

	countries := splitList(d.Country)
	languages := splitList(d.Language)
	genres := splitList(d.Genre)
	lang := ""
	if len(languages) > 0 {
		lang = languages[0]
	}

	rec := domain.MediaRecord{
		IMDbID:      domain.StringPtr(d.IMDbID),
		Title:       d.Title,
		Type:        domain.InferScreenType(base, lang, countries),
		Description: StripMarkup(naToEmpty(d.Plot)),
		Genres:      genres,
		CoverImage:  naToEmpty(d.Poster),
		Rating:      domain.NormalizeRating(cast.ToFloat64(naToEmpty(d.IMDbRating)), 10),
		ReleaseDate: omdbDate(d.Released),
		Status:      omdbStatus(base, d.Year, o.now()),
		Duration:    domain.IntPtr(cast.ToInt(firstField(naToEmpty(d.Runtime)))),
		Keywords:    domain.BuildKeywords(d.Title),
		Source:      NameOMDb,
		RawData:     compactJSON(raw),
	}
	rec.Sanitize(base)
	return rec
}

// omdbStatus derives status from the Year field: "2010" for a finished
// title, "2010–" for a running series and "2010–2015" for an ended one.
func omdbStatus(base domain.MediaType, year string, now time.Time) domain.MediaStatus {
	year = strings.ReplaceAll(year, "–", "-")
	start, end, ranged := strings.Cut(year, "-")

	startYear := cast.ToInt(strings.TrimSpace(start))
	if startYear == 0 || startYear > now.Year() {
		return domain.StatusUpcoming
	}
	if base != domain.TypeMovie && ranged && strings.TrimSpace(end) == "" {
		return domain.StatusOngoing
	}
	return domain.StatusCompleted
}

// omdbDate converts "16 Jul 2010" to "2010-07-16".
func omdbDate(s string) string {
	t, err := time.Parse("02 Jan 2006", s)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func naToEmpty(s string) string {
	if s == "N/A" {
		return ""
	}
	return s
}

func splitList(s string) []string {
	s = naToEmpty(s)
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstField(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
