package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
)

// TVMaze searches TVMaze. It only knows about shows, so movie searches
// return nothing.
type TVMaze struct {
	baseURL string
	client  *client
}

// NewTVMaze creates a new TVMaze adapter.
func NewTVMaze(opts Options) *TVMaze {
	opts = opts.withDefaults()
	return &TVMaze{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  newClient(NameTVMaze, opts),
	}
}

func (t *TVMaze) Name() string { return NameTVMaze }

type tvMazeHit struct {
	Show json.RawMessage `json:"show"`
}

type tvMazeShow struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Language       string   `json:"language"`
	Genres         []string `json:"genres"`
	Status         string   `json:"status"`
	Runtime        *int     `json:"runtime"`
	AverageRuntime *int     `json:"averageRuntime"`
	Premiered      string   `json:"premiered"`
	Rating         struct {
		Average *float64 `json:"average"`
	} `json:"rating"`
	Network *struct {
		Country *struct {
			Code string `json:"code"`
		} `json:"country"`
	} `json:"network"`
	WebChannel *struct {
		Country *struct {
			Code string `json:"code"`
		} `json:"country"`
	} `json:"webChannel"`
	Image *struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
	Summary   string `json:"summary"`
	Externals struct {
		IMDb string `json:"imdb"`
	} `json:"externals"`
}

var tvMazeStatuses = map[string]domain.MediaStatus{
	"Running":          domain.StatusOngoing,
	"Ended":            domain.StatusCompleted,
	"To Be Determined": domain.StatusHiatus,
	"In Development":   domain.StatusUpcoming,
}

// Search implements Provider.
func (t *TVMaze) Search(ctx context.Context, query string, mediaType domain.MediaType, limit int) ([]domain.MediaRecord, error) {
	if limit <= 0 || mediaType == domain.TypeMovie || (mediaType != domain.TypeAll && !mediaType.IsScreen()) {
		return nil, nil
	}

	var hits []tvMazeHit
	if err := t.client.getJSON(ctx, t.baseURL+"/search/shows?q="+url.QueryEscape(query), &hits); err != nil {
		return nil, err
	}

	records := make([]domain.MediaRecord, 0, len(hits))
	for _, hit := range hits {
		var show tvMazeShow
		if err := json.Unmarshal(hit.Show, &show); err != nil {
			return nil, fmt.Errorf("tvmaze: decoding show: %w", err)
		}
		records = append(records, t.toRecord(&show, hit.Show))
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

func (t *TVMaze) toRecord(s *tvMazeShow, raw json.RawMessage) domain.MediaRecord {
	var countries []string
	if s.Network != nil && s.Network.Country != nil {
		countries = append(countries, s.Network.Country.Code)
	}
	if s.WebChannel != nil && s.WebChannel.Country != nil {
		countries = append(countries, s.WebChannel.Country.Code)
	}

	rec := domain.MediaRecord{
		TVMazeID:    domain.IntPtr(s.ID),
		IMDbID:      domain.StringPtr(s.Externals.IMDb),
		Title:       s.Name,
		Type:        domain.InferScreenType(domain.TypeSeries, s.Language, countries, s.Genres...),
		Description: StripMarkup(s.Summary),
		Genres:      s.Genres,
		ReleaseDate: s.Premiered,
		Status:      tvMazeStatuses[s.Status],
		Duration:    s.AverageRuntime,
		Keywords:    domain.BuildKeywords(s.Name),
		Source:      NameTVMaze,
		RawData:     compactJSON(raw),
	}
	if rec.Duration == nil {
		rec.Duration = s.Runtime
	}
	if s.Image != nil {
		rec.CoverImage = firstNonEmpty(s.Image.Original, s.Image.Medium)
	}
	if s.Rating.Average != nil {
		rec.Rating = domain.NormalizeRating(*s.Rating.Average, 10)
	}
	rec.Sanitize(domain.TypeSeries)
	return rec
}
