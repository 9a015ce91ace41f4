package recommend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/sourcegraph/conc"

	"mediapick/internal/catalog"
	"mediapick/internal/models"
)

var (
	// ErrProfileIncomplete means smart mode was asked for before the user
	// finished onboarding.
	ErrProfileIncomplete = errors.New("taste profile incomplete")
	// ErrNoResult means every strategy exhausted without an eligible item.
	ErrNoResult = errors.New("no recommendation found")
	// ErrInvalidRequest covers malformed recommendation requests.
	ErrInvalidRequest = errors.New("invalid request")
)

const (
	// defaultSmartRating is the quality bar when a profile doesn't set one.
	defaultSmartRating = 6.0
	// diversityWindow is how many recent actions steer kind rotation.
	diversityWindow = 3

	weightUpdateTimeout = 30 * time.Second
)

// Catalog is the slice of the catalog client the engine consumes.
type Catalog interface {
	Discover(ctx context.Context, kind models.MediaKind, p catalog.DiscoverParams) (*catalog.Page, error)
	Genres(ctx context.Context, kind models.MediaKind) ([]catalog.Genre, error)
}

// ProfileReader loads onboarding profiles.
type ProfileReader interface {
	ProfileByUser(ctx context.Context, userID string) (*models.TasteProfile, error)
}

// HistoryStore records actions and answers the pipeline's history queries.
type HistoryStore interface {
	UpsertHistory(ctx context.Context, e *models.HistoryEntry) error
	Blacklist(ctx context.Context, userID string) (map[models.ItemKey]struct{}, error)
	RecentActionKinds(ctx context.Context, userID string, n int) ([]models.MediaKind, error)
}

// WeightStore reads and learns per-user preference weights.
type WeightStore interface {
	Weights(ctx context.Context, userID string) (*models.PreferenceWeights, error)
	UpdateWeightsOnAction(ctx context.Context, userID string, action models.Action, sig models.WeightSignals) error
}

// Overlay is the filtered-mode request surface. Smart mode ignores it.
type Overlay struct {
	Kind      models.MediaKind `json:"kind"`
	GenreIDs  []int64          `json:"genres"`
	Language  string           `json:"language"`
	MinRating float64          `json:"min_rating"`
}

// Attribution says which strategy produced a pick, for "why this" surfaces.
type Attribution struct {
	Strategy  string           `json:"strategy"`
	GenreIDs  []int64          `json:"genres,omitempty"`
	Languages []string         `json:"languages,omitempty"`
	Kind      models.MediaKind `json:"kind"`
}

// Recommendation is one picked item plus why it was chosen.
type Recommendation struct {
	Item        models.MediaItem `json:"item"`
	Attribution Attribution      `json:"attribution"`
}

// Engine walks the strategy cascade against the catalog and learns from
// feedback. One pick per call; no ranking model, no result lists.
type Engine struct {
	catalog  Catalog
	profiles ProfileReader
	history  HistoryStore
	weights  WeightStore
	rng      Random

	weightTimeout time.Duration
	updates       conc.WaitGroup
}

type Option func(*Engine)

// WithRandom injects the randomness source, usually a seeded one in tests.
func WithRandom(r Random) Option {
	return func(e *Engine) { e.rng = r }
}

func NewEngine(c Catalog, profiles ProfileReader, history HistoryStore, weights WeightStore, opts ...Option) *Engine {
	e := &Engine{
		catalog:       c,
		profiles:      profiles,
		history:       history,
		weights:       weights,
		rng:           NewRandom(),
		weightTimeout: weightUpdateTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Recommend returns exactly one item for the user, or an error naming why
// there is none: ErrProfileIncomplete, ErrNoResult, ErrInvalidRequest, or
// catalog.ErrUnavailable when the upstream is down.
func (e *Engine) Recommend(ctx context.Context, userID string, mode models.Mode, overlay Overlay) (*Recommendation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}

	switch mode {
	case models.ModeFiltered:
		return e.recommendFiltered(ctx, userID, overlay)
	case models.ModeSmart:
		return e.recommendSmart(ctx, userID)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, mode)
	}
}

func (e *Engine) recommendFiltered(ctx context.Context, userID string, overlay Overlay) (*Recommendation, error) {
	if !overlay.Kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidRequest, overlay.Kind)
	}
	language := overlay.Language
	if language == "" {
		language = defaultLanguage
	}

	blacklist, err := e.history.Blacklist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading blacklist: %w", err)
	}

	kinds := []models.MediaKind{overlay.Kind}
	return e.traverse(ctx, blacklist, kinds, overlay.GenreIDs, []string{language}, overlay.MinRating)
}

func (e *Engine) recommendSmart(ctx context.Context, userID string) (*Recommendation, error) {
	profile, err := e.profiles.ProfileByUser(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrProfileIncomplete
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if !profile.Complete {
		return nil, ErrProfileIncomplete
	}

	kinds := e.kindOrder(ctx, userID, profile)

	minRating := profile.MinRating
	if minRating == 0 {
		minRating = defaultSmartRating
	}

	blacklist, err := e.history.Blacklist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading blacklist: %w", err)
	}

	return e.traverse(ctx, blacklist, kinds, profile.Genres, profile.Languages, minRating)
}

// kindOrder ranks the profile's kinds by learned weight, then rotates kinds
// the user consumed recently to the back. Both reads degrade to the stored
// order when unavailable; smart mode never falls back to filtered.
func (e *Engine) kindOrder(ctx context.Context, userID string, profile *models.TasteProfile) []models.MediaKind {
	kinds := append([]models.MediaKind(nil), profile.ContentTypes...)

	weights, err := e.weights.Weights(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		// Nothing learned yet; stored order stands.
	case err != nil:
		log.Printf("recommend engine: weights unavailable for %s: %v", userID, err)
	default:
		sort.SliceStable(kinds, func(i, j int) bool {
			return weights.KindWeight(kinds[i]) > weights.KindWeight(kinds[j])
		})
	}

	recent, err := e.history.RecentActionKinds(ctx, userID, diversityWindow)
	if err != nil {
		log.Printf("recommend engine: recent history unavailable for %s: %v", userID, err)
		return kinds
	}
	return diversify(kinds, recent)
}

// diversify moves kinds absent from the recent window ahead of recently
// consumed ones, keeping relative order within each group.
func diversify(kinds, recent []models.MediaKind) []models.MediaKind {
	if len(recent) == 0 {
		return kinds
	}
	seen := make(map[models.MediaKind]struct{}, len(recent))
	for _, k := range recent {
		seen[k] = struct{}{}
	}

	fresh := make([]models.MediaKind, 0, len(kinds))
	var consumed []models.MediaKind
	for _, k := range kinds {
		if _, ok := seen[k]; ok {
			consumed = append(consumed, k)
		} else {
			fresh = append(fresh, k)
		}
	}
	return append(fresh, consumed...)
}

// traverse walks kinds, strategies, and pages in order and returns the first
// pick. A catalog failure aborts the walk; empty pages and fully blacklisted
// pages just move it along.
func (e *Engine) traverse(ctx context.Context, blacklist map[models.ItemKey]struct{}, kinds []models.MediaKind, genreIDs []int64, languages []string, minRating float64) (*Recommendation, error) {
	for _, kind := range kinds {
		for _, s := range BuildStrategies(kind, genreIDs, languages, minRating, e.rng) {
			for _, page := range strategyPages(s, e.rng) {
				result, err := e.catalog.Discover(ctx, kind, s.params(page))
				if err != nil {
					return nil, fmt.Errorf("discover %q page %d: %w", s.Name, page, err)
				}

				if item, ok := PickCandidate(result.Results, blacklist, e.rng); ok {
					return &Recommendation{
						Item: item,
						Attribution: Attribution{
							Strategy:  s.Name,
							GenreIDs:  s.GenreIDs,
							Languages: []string{s.Language},
							Kind:      kind,
						},
					}, nil
				}

				// An empty page ends the strategy; a page the blacklist
				// emptied does not.
				if len(result.Results) == 0 {
					break
				}
				if result.TotalPages > 0 && page >= result.TotalPages {
					break
				}
			}
		}
	}
	return nil, ErrNoResult
}

// strategyPages expands a strategy's page walk: the deterministic 1..5 run,
// or one random page when multi-page is off.
func strategyPages(s Strategy, rng Random) []int {
	if !s.TryMultiplePages {
		return []int{1 + rng.Intn(StrategyPages)}
	}
	pages := make([]int, StrategyPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// RecordAction stores the user's verdict on an item. Liked and disliked
// verdicts also feed the weight learner off the request path; a failure
// there is logged and never reaches the caller.
func (e *Engine) RecordAction(ctx context.Context, userID string, action models.Action, item models.MediaItem, source models.Mode) error {
	entry := &models.HistoryEntry{
		UserID:      userID,
		CatalogID:   item.CatalogID,
		Kind:        item.Kind,
		Title:       item.Title,
		Action:      action,
		PosterPath:  item.PosterPath,
		Rating:      item.Rating,
		ReleaseDate: item.ReleaseDate,
		Source:      source,
	}
	if err := e.history.UpsertHistory(ctx, entry); err != nil {
		return fmt.Errorf("recording action: %w", err)
	}

	if action == models.ActionLiked || action == models.ActionDisliked {
		sig := models.WeightSignals{
			GenreIDs: item.GenreIDs,
			Kind:     item.Kind,
			Language: item.OriginalLanguage,
		}
		e.updates.Go(func() {
			// Detached from the request context so a finished request
			// doesn't abandon the learning write.
			ctx, cancel := context.WithTimeout(context.Background(), e.weightTimeout)
			defer cancel()
			if err := e.weights.UpdateWeightsOnAction(ctx, userID, action, sig); err != nil {
				log.Printf("recommend engine: weight update for %s failed: %v", userID, err)
			}
		})
	}
	return nil
}

// WarmCache primes the per-kind genre lists so onboarding and attribution
// lookups don't pay the first-call latency. Failures are logged only.
func (e *Engine) WarmCache(ctx context.Context) {
	for _, kind := range []models.MediaKind{models.KindMovie, models.KindSeries, models.KindAnime} {
		if _, err := e.catalog.Genres(ctx, kind); err != nil {
			log.Printf("recommend engine: warming %s genres: %v", kind, err)
		}
	}
}

// Close drains scheduled weight updates. Call on shutdown.
func (e *Engine) Close() {
	if r := e.updates.WaitAndRecover(); r != nil {
		log.Printf("recommend engine: weight update panicked: %v", r.AsError())
	}
}
