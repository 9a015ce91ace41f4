package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mediapick/internal/cache"
	"mediapick/internal/models"
)

type SortOrder string

const (
	SortPopularity  SortOrder = "popularity.desc"
	SortVoteAverage SortOrder = "vote_average.desc"
)

const (
	// DefaultVoteCount filters out items with too few votes for the
	// average to mean anything.
	DefaultVoteCount = 100

	maxPage = 500
)

// DiscoverParams is one page worth of discover filters. Zero values mean
// "not constrained" and are omitted from the request.
type DiscoverParams struct {
	GenreIDs         []int64
	OriginalLanguage string
	VoteAverageGte   float64
	VoteCountGte     int
	SortBy           SortOrder
	Page             int
	ReleaseDateGte   string
	ReleaseDateLte   string
}

// Page is one page of discover results, already normalized.
type Page struct {
	Results      []models.MediaItem `json:"results"`
	Page         int                `json:"page"`
	TotalPages   int                `json:"total_pages"`
	TotalResults int                `json:"total_results"`
}

// values renders the params for the given kind. Movies and series name
// their release-date bounds differently.
func (p DiscoverParams) values(kind models.MediaKind) url.Values {
	q := url.Values{}
	if len(p.GenreIDs) > 0 {
		q.Set("with_genres", joinIDs(p.GenreIDs))
	}
	if p.OriginalLanguage != "" {
		q.Set("with_original_language", strings.ToLower(p.OriginalLanguage))
	}
	if p.VoteAverageGte > 0 {
		q.Set("vote_average.gte", strconv.FormatFloat(p.VoteAverageGte, 'f', -1, 64))
	}
	votes := p.VoteCountGte
	if votes <= 0 {
		votes = DefaultVoteCount
	}
	q.Set("vote_count.gte", strconv.Itoa(votes))

	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = SortPopularity
	}
	q.Set("sort_by", string(sortBy))

	page := p.Page
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	q.Set("page", strconv.Itoa(page))

	dateGte, dateLte := "primary_release_date.gte", "primary_release_date.lte"
	if kind != models.KindMovie {
		dateGte, dateLte = "first_air_date.gte", "first_air_date.lte"
	}
	if p.ReleaseDateGte != "" {
		q.Set(dateGte, p.ReleaseDateGte)
	}
	if p.ReleaseDateLte != "" {
		q.Set(dateLte, p.ReleaseDateLte)
	}

	q.Set("include_adult", "false")
	q.Set("language", "en-US")
	return q
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// discoverKey fingerprints the exact query this discover call sends.
func discoverKey(kind models.MediaKind, q url.Values) string {
	params := make(map[string]any, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}
	return cache.Key("discover:"+string(kind), params)
}

// WithAnimation returns genreIDs with the animation genre unioned in.
func WithAnimation(genreIDs []int64) []int64 {
	for _, id := range genreIDs {
		if id == AnimationGenreID {
			return genreIDs
		}
	}
	out := make([]int64, 0, len(genreIDs)+1)
	out = append(out, genreIDs...)
	return append(out, AnimationGenreID)
}

// Discover dispatches on kind.
func (c *Client) Discover(ctx context.Context, kind models.MediaKind, p DiscoverParams) (*Page, error) {
	switch kind {
	case models.KindMovie:
		return c.DiscoverMovies(ctx, p)
	case models.KindSeries:
		return c.DiscoverSeries(ctx, p)
	case models.KindAnime:
		return c.DiscoverAnime(ctx, p)
	}
	return nil, fmt.Errorf("discover: unknown kind %q", kind)
}

func (c *Client) DiscoverMovies(ctx context.Context, p DiscoverParams) (*Page, error) {
	return c.discover(ctx, models.KindMovie, "/discover/movie", p)
}

func (c *Client) DiscoverSeries(ctx context.Context, p DiscoverParams) (*Page, error) {
	return c.discover(ctx, models.KindSeries, "/discover/tv", p)
}

// DiscoverAnime is series discovery pinned to Japanese origin with the
// animation genre unioned in.
func (c *Client) DiscoverAnime(ctx context.Context, p DiscoverParams) (*Page, error) {
	p.OriginalLanguage = "ja"
	p.GenreIDs = WithAnimation(p.GenreIDs)
	return c.discover(ctx, models.KindAnime, "/discover/tv", p)
}

func (c *Client) discover(ctx context.Context, kind models.MediaKind, path string, p DiscoverParams) (*Page, error) {
	q := p.values(kind)
	key := discoverKey(kind, q)
	return getJSON(ctx, c, key, cache.TTLDiscover, path, q, func(raw json.RawMessage) (*Page, error) {
		return decodePage(kind, raw)
	})
}

// decodePage flattens the duck-typed discover payload: movies carry
// title/release_date, series carry name/first_air_date.
func decodePage(kind models.MediaKind, raw json.RawMessage) (*Page, error) {
	var payload struct {
		Page         int `json:"page"`
		TotalPages   int `json:"total_pages"`
		TotalResults int `json:"total_results"`
		Results      []struct {
			ID               int64   `json:"id"`
			Title            string  `json:"title"`
			Name             string  `json:"name"`
			Overview         string  `json:"overview"`
			PosterPath       string  `json:"poster_path"`
			BackdropPath     string  `json:"backdrop_path"`
			ReleaseDate      string  `json:"release_date"`
			FirstAirDate     string  `json:"first_air_date"`
			VoteAverage      float64 `json:"vote_average"`
			VoteCount        int     `json:"vote_count"`
			GenreIDs         []int64 `json:"genre_ids"`
			OriginalLanguage string  `json:"original_language"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	page := &Page{
		Page:         payload.Page,
		TotalPages:   payload.TotalPages,
		TotalResults: payload.TotalResults,
		Results:      make([]models.MediaItem, 0, len(payload.Results)),
	}
	for _, r := range payload.Results {
		title := r.Title
		if title == "" {
			title = r.Name
		}
		date := r.ReleaseDate
		if date == "" {
			date = r.FirstAirDate
		}
		page.Results = append(page.Results, models.MediaItem{
			CatalogID:        r.ID,
			Kind:             kind,
			Title:            title,
			Overview:         r.Overview,
			PosterPath:       r.PosterPath,
			BackdropPath:     r.BackdropPath,
			ReleaseDate:      date,
			Rating:           r.VoteAverage,
			VoteCount:        r.VoteCount,
			GenreIDs:         r.GenreIDs,
			OriginalLanguage: strings.ToLower(r.OriginalLanguage),
		})
	}
	return page, nil
}
