package models

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// MediaKind is the media category a recommendation can belong to.
// Anime is catalog-wise a series with Japanese origin and the animation
// genre; it is kept as its own kind because users rank it separately.
type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
	KindAnime  MediaKind = "anime"
)

func (k MediaKind) Valid() bool {
	switch k {
	case KindMovie, KindSeries, KindAnime:
		return true
	}
	return false
}

// Action is the feedback a user can record against a recommended item.
type Action string

const (
	ActionWatched     Action = "watched"
	ActionSkipped     Action = "skipped"
	ActionLiked       Action = "liked"
	ActionDisliked    Action = "disliked"
	ActionBlacklisted Action = "blacklisted"
)

func (a Action) Valid() bool {
	switch a {
	case ActionWatched, ActionSkipped, ActionLiked, ActionDisliked, ActionBlacklisted:
		return true
	}
	return false
}

// Mode selects how a recommendation request is resolved. Filtered uses the
// request overlay verbatim; smart derives everything from the stored taste
// profile and learned weights. The same values tag history rows as Source.
type Mode string

const (
	ModeFiltered Mode = "filtered"
	ModeSmart    Mode = "smart"
)

func (m Mode) Valid() bool {
	return m == ModeFiltered || m == ModeSmart
}

// MediaItem is the normalized view of one catalog entry. Movies and series
// arrive with different field names from the catalog; the adapter flattens
// both into this shape. Items are values and never mutated.
type MediaItem struct {
	CatalogID        int64     `json:"catalog_id"`
	Kind             MediaKind `json:"kind"`
	Title            string    `json:"title"`
	Overview         string    `json:"overview,omitempty"`
	PosterPath       string    `json:"poster_path,omitempty"`
	BackdropPath     string    `json:"backdrop_path,omitempty"`
	ReleaseDate      string    `json:"release_date,omitempty"`
	Rating           float64   `json:"rating,omitempty"`
	VoteCount        int       `json:"vote_count,omitempty"`
	GenreIDs         []int64   `json:"genre_ids,omitempty"`
	OriginalLanguage string    `json:"original_language,omitempty"`
}

// Year extracts the release year, the only date component the pipeline
// cares about. Returns 0 when the date is absent or malformed.
func (m MediaItem) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	var y int
	for _, c := range m.ReleaseDate[:4] {
		if c < '0' || c > '9' {
			return 0
		}
		y = y*10 + int(c-'0')
	}
	return y
}

// ItemKey identifies one item within one kind; the blacklist is a set of
// these. The same catalog id can appear under movie and series.
type ItemKey struct {
	CatalogID int64     `json:"catalog_id"`
	Kind      MediaKind `json:"kind"`
}

// TasteProfile is the durable onboarding result for one user. ContentTypes
// and Languages keep their insertion order; the first language is the one
// every primary query strategy preserves.
type TasteProfile struct {
	UserID            string      `json:"user_id"`
	ContentTypes      []MediaKind `json:"content_types"`
	Genres            []int64     `json:"genres"`
	Languages         []string    `json:"languages"`
	MinRating         float64     `json:"min_rating,omitempty"`
	AnimeAutoLanguage bool        `json:"anime_auto_language"`
	Complete          bool        `json:"complete"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func (p *TasteProfile) Validate() error {
	if p.UserID == "" {
		return errors.New("user_id is required")
	}
	if len(p.ContentTypes) == 0 {
		return errors.New("at least one content type is required")
	}
	for _, k := range p.ContentTypes {
		if !k.Valid() {
			return errors.New("content type must be movie, series, or anime")
		}
	}
	if len(p.Genres) < 3 {
		return errors.New("at least three genres are required")
	}
	if len(p.Languages) == 0 {
		return errors.New("at least one language is required")
	}
	if p.MinRating < 0 || p.MinRating > 10 {
		return errors.New("min_rating must be between 0 and 10")
	}
	return nil
}

// NormalizeLanguages lowercases and trims the profile languages to their
// ISO-639-1 primary subtag, dropping empties.
func (p *TasteProfile) NormalizeLanguages() {
	out := p.Languages[:0]
	for _, l := range p.Languages {
		l = strings.ToLower(strings.TrimSpace(l))
		if i := strings.IndexAny(l, "-_"); i > 0 {
			l = l[:i]
		}
		if l != "" {
			out = append(out, l)
		}
	}
	p.Languages = out
}

// HistoryEntry records the latest action a user took on one item. Rows are
// unique per (user, catalog id, kind); a new action overwrites the old one.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	CatalogID   int64     `json:"catalog_id"`
	Kind        MediaKind `json:"kind"`
	Title       string    `json:"title"`
	Action      Action    `json:"action"`
	PosterPath  string    `json:"poster_path,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	Source      Mode      `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e *HistoryEntry) Validate() error {
	if e.UserID == "" {
		return errors.New("user_id is required")
	}
	if e.CatalogID <= 0 {
		return errors.New("catalog_id must be positive")
	}
	if !e.Kind.Valid() {
		return errors.New("kind must be movie, series, or anime")
	}
	if !e.Action.Valid() {
		return errors.New("action must be watched, skipped, liked, disliked, or blacklisted")
	}
	if e.Source != "" && !e.Source.Valid() {
		return errors.New("source must be filtered or smart")
	}
	return nil
}

// Key returns the blacklist identity of the entry.
func (e *HistoryEntry) Key() ItemKey {
	return ItemKey{CatalogID: e.CatalogID, Kind: e.Kind}
}

// PreferenceWeights is the learned per-user preference model. Every weight
// lives in [0,100]; a missing key means the default 50.
type PreferenceWeights struct {
	UserID          string            `json:"user_id"`
	GenreWeights    map[int64]int     `json:"genre_weights"`
	KindWeights     map[MediaKind]int `json:"kind_weights"`
	LanguageWeights map[string]int    `json:"language_weights"`
	TotalLikes      int               `json:"total_likes"`
	TotalDislikes   int               `json:"total_dislikes"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

const DefaultWeight = 50

// KindWeight returns the stored weight for k or the default.
func (w *PreferenceWeights) KindWeight(k MediaKind) int {
	if w == nil || w.KindWeights == nil {
		return DefaultWeight
	}
	if v, ok := w.KindWeights[k]; ok {
		return v
	}
	return DefaultWeight
}

// WeightSignals carries the item facets a like/dislike feeds back into the
// weight model.
type WeightSignals struct {
	GenreIDs []int64
	Kind     MediaKind
	Language string
}

// AggregatedStats summarizes a user's history by action.
type AggregatedStats struct {
	Total       int `json:"total"`
	Watched     int `json:"watched"`
	Skipped     int `json:"skipped"`
	Liked       int `json:"liked"`
	Disliked    int `json:"disliked"`
	Blacklisted int `json:"blacklisted"`
}

type PaginatedResult[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}
