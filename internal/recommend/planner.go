package recommend

import (
	"mediapick/internal/catalog"
	"mediapick/internal/models"
)

// StrategyPages is the page window a strategy walks, or samples one page
// from when TryMultiplePages is off.
const StrategyPages = 5

const (
	defaultLanguage = "en"

	// Floors for the rating relaxation ladder.
	halfStepFloor = 5.5
	fullStepFloor = 5.0

	relaxedVoteCount = 50
)

// Strategy is one fully materialized discover query shape. The engine turns
// it into per-page catalog calls.
type Strategy struct {
	Name             string
	GenreIDs         []int64
	Language         string
	MinRating        float64
	VoteCountMin     int
	SortBy           catalog.SortOrder
	TryMultiplePages bool
}

// params renders one page of the strategy as a discover query.
func (s Strategy) params(page int) catalog.DiscoverParams {
	return catalog.DiscoverParams{
		GenreIDs:         s.GenreIDs,
		OriginalLanguage: s.Language,
		VoteAverageGte:   s.MinRating,
		VoteCountGte:     s.VoteCountMin,
		SortBy:           s.SortBy,
		Page:             page,
	}
}

// BuildStrategies materializes the fallback cascade for one kind, most
// constrained first. The first language is held through every step; only the
// alternative-language tail at the end walks the rest of the user's list.
// Anime pins Japanese origin and the animation genre onto every step.
func BuildStrategies(kind models.MediaKind, genreIDs []int64, languages []string, minRating float64, rng Random) []Strategy {
	langs := languages
	if len(langs) == 0 {
		langs = []string{defaultLanguage}
	}
	primary := langs[0]

	mk := func(name string, genres []int64, lang string, rating float64) Strategy {
		return Strategy{
			Name:             name,
			GenreIDs:         genres,
			Language:         lang,
			MinRating:        rating,
			VoteCountMin:     catalog.DefaultVoteCount,
			SortBy:           catalog.SortPopularity,
			TryMultiplePages: true,
		}
	}

	out := make([]Strategy, 0, 2*len(genreIDs)+len(langs)+9)

	out = append(out, mk("all filters", genreIDs, primary, minRating))

	if minRating > halfStepFloor {
		out = append(out, mk("all genres, slightly relaxed rating",
			genreIDs, primary, relax(minRating, 0.5, halfStepFloor)))
	}

	if len(genreIDs) >= 3 {
		out = append(out, mk("two random genres",
			samplePair(genreIDs, rng), primary, minRating))
		out = append(out, mk("two random genres, relaxed rating",
			samplePair(genreIDs, rng), primary, relax(minRating, 1, fullStepFloor)))
	}

	for _, g := range genreIDs {
		out = append(out, mk("single genre", []int64{g}, primary, minRating))
	}
	for _, g := range genreIDs {
		out = append(out, mk("single genre, relaxed rating",
			[]int64{g}, primary, relax(minRating, 1, fullStepFloor)))
	}

	if minRating > 0 {
		out = append(out, mk("no genres", nil, primary, minRating))
	}
	out = append(out, mk("no genres, relaxed rating", nil, primary, relax(minRating, 1, fullStepFloor)))
	out = append(out, mk("no genres, baseline rating", nil, primary, fullStepFloor))
	out = append(out, mk("no genres, no rating floor", nil, primary, 0))

	top := mk("top rated", genreIDs, primary, relax(minRating, 1, fullStepFloor))
	top.SortBy = catalog.SortVoteAverage
	out = append(out, top)

	lowVotes := mk("low vote count", genreIDs, primary, relax(minRating, 1, fullStepFloor))
	lowVotes.VoteCountMin = relaxedVoteCount
	out = append(out, lowVotes)

	// The user listed these as acceptable, so only here does the primary
	// language give way.
	for _, alt := range langs[1:] {
		out = append(out, mk("alternative language", genreIDs, alt, relax(minRating, 1, fullStepFloor)))
	}

	if kind == models.KindAnime {
		for i := range out {
			out[i].Language = "ja"
			out[i].GenreIDs = catalog.WithAnimation(out[i].GenreIDs)
		}
	}

	return out
}

// relax lowers rating by step without crossing floor.
func relax(rating, step, floor float64) float64 {
	r := rating - step
	if r < floor {
		return floor
	}
	return r
}

// samplePair picks two distinct genres uniformly without replacement.
func samplePair(ids []int64, rng Random) []int64 {
	i := rng.Intn(len(ids))
	j := rng.Intn(len(ids) - 1)
	if j >= i {
		j++
	}
	return []int64{ids[i], ids[j]}
}
