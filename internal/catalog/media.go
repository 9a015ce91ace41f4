package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mediapick/internal/cache"
	"mediapick/internal/models"
)

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

type Provider struct {
	Name     string `json:"provider_name"`
	LogoPath string `json:"logo_path,omitempty"`
	Priority int    `json:"display_priority,omitempty"`
}

// RegionProviders is the availability of one item in one watch region.
type RegionProviders struct {
	Link     string     `json:"link,omitempty"`
	Flatrate []Provider `json:"flatrate,omitempty"`
	Rent     []Provider `json:"rent,omitempty"`
	Buy      []Provider `json:"buy,omitempty"`
}

// Details is the full record for one item.
type Details struct {
	models.MediaItem
	Genres         []Genre `json:"genres,omitempty"`
	RuntimeMinutes int     `json:"runtime_minutes,omitempty"`
	Seasons        int     `json:"seasons,omitempty"`
	Episodes       int     `json:"episodes,omitempty"`
	Status         string  `json:"status,omitempty"`
	Tagline        string  `json:"tagline,omitempty"`
}

// detailPath maps a kind to its resource root; anime lives under tv.
func detailPath(kind models.MediaKind) string {
	if kind == models.KindMovie {
		return "/movie"
	}
	return "/tv"
}

// Genres returns the catalog's genre list for the kind.
func (c *Client) Genres(ctx context.Context, kind models.MediaKind) ([]Genre, error) {
	path := "/genre/tv/list"
	if kind == models.KindMovie {
		path = "/genre/movie/list"
	}
	key := cache.Key("genres:"+string(kind), nil)
	return getJSON(ctx, c, key, cache.TTLGenres, path, nil, func(raw json.RawMessage) ([]Genre, error) {
		var payload struct {
			Genres []Genre `json:"genres"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload.Genres, nil
	})
}

// Videos returns the clips attached to an item, trailers included.
func (c *Client) Videos(ctx context.Context, kind models.MediaKind, id int64) ([]Video, error) {
	path := fmt.Sprintf("%s/%d/videos", detailPath(kind), id)
	key := cache.Key("videos", map[string]any{"kind": string(kind), "id": id})
	return getJSON(ctx, c, key, cache.TTLVideos, path, nil, func(raw json.RawMessage) ([]Video, error) {
		var payload struct {
			Results []Video `json:"results"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload.Results, nil
	})
}

// PickTrailer chooses the best playable trailer: official YouTube trailers
// first, then any YouTube trailer, then a teaser.
func PickTrailer(videos []Video) *Video {
	var trailer, teaser *Video
	for i := range videos {
		v := &videos[i]
		if !strings.EqualFold(v.Site, "YouTube") || v.Key == "" {
			continue
		}
		switch strings.ToLower(v.Type) {
		case "trailer":
			if v.Official {
				return v
			}
			if trailer == nil {
				trailer = v
			}
		case "teaser":
			if teaser == nil {
				teaser = v
			}
		}
	}
	if trailer != nil {
		return trailer
	}
	return teaser
}

// WatchProviders returns per-region availability, keyed by region code.
// A nil map means the catalog lists no providers for the item.
func (c *Client) WatchProviders(ctx context.Context, kind models.MediaKind, id int64) (map[string]RegionProviders, error) {
	path := fmt.Sprintf("%s/%d/watch/providers", detailPath(kind), id)
	key := cache.Key("providers", map[string]any{"kind": string(kind), "id": id})
	return getJSON(ctx, c, key, cache.TTLProviders, path, nil, func(raw json.RawMessage) (map[string]RegionProviders, error) {
		var payload struct {
			Results map[string]RegionProviders `json:"results"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload.Results, nil
	})
}

// Details returns the full record for one item, normalized across the
// movie/series field split.
func (c *Client) Details(ctx context.Context, kind models.MediaKind, id int64) (*Details, error) {
	path := fmt.Sprintf("%s/%d", detailPath(kind), id)
	key := cache.Key("details", map[string]any{"kind": string(kind), "id": id})
	return getJSON(ctx, c, key, cache.TTLDetails, path, nil, func(raw json.RawMessage) (*Details, error) {
		return decodeDetails(kind, raw)
	})
}

func decodeDetails(kind models.MediaKind, raw json.RawMessage) (*Details, error) {
	var payload struct {
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
		OriginalLanguage string  `json:"original_language"`
		Genres           []Genre `json:"genres"`
		Runtime          int     `json:"runtime"`
		EpisodeRunTime   []int   `json:"episode_run_time"`
		Seasons          int     `json:"number_of_seasons"`
		Episodes         int     `json:"number_of_episodes"`
		Status           string  `json:"status"`
		Tagline          string  `json:"tagline"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	title := payload.Title
	if title == "" {
		title = payload.Name
	}
	date := payload.ReleaseDate
	if date == "" {
		date = payload.FirstAirDate
	}
	runtime := payload.Runtime
	if runtime == 0 && len(payload.EpisodeRunTime) > 0 {
		runtime = payload.EpisodeRunTime[0]
	}
	genreIDs := make([]int64, 0, len(payload.Genres))
	for _, g := range payload.Genres {
		genreIDs = append(genreIDs, g.ID)
	}

	return &Details{
		MediaItem: models.MediaItem{
			CatalogID:        payload.ID,
			Kind:             kind,
			Title:            title,
			Overview:         payload.Overview,
			PosterPath:       payload.PosterPath,
			BackdropPath:     payload.BackdropPath,
			ReleaseDate:      date,
			Rating:           payload.VoteAverage,
			VoteCount:        payload.VoteCount,
			GenreIDs:         genreIDs,
			OriginalLanguage: strings.ToLower(payload.OriginalLanguage),
		},
		Genres:         payload.Genres,
		RuntimeMinutes: runtime,
		Seasons:        payload.Seasons,
		Episodes:       payload.Episodes,
		Status:         payload.Status,
		Tagline:        payload.Tagline,
	}, nil
}
