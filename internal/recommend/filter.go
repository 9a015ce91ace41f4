package recommend

import "mediapick/internal/models"

// pickPool bounds the slice a pick is drawn from, keeping the choice
// weighted toward the strategy's sort order while adding variety.
const pickPool = 20

// PickCandidate drops blacklisted items from one page of results and
// chooses uniformly from the first min(len, 20) survivors. The second
// return is false when nothing on the page is eligible. Rating and vote
// thresholds are not re-checked here; the catalog query already applied
// them.
func PickCandidate(results []models.MediaItem, blacklist map[models.ItemKey]struct{}, rng Random) (models.MediaItem, bool) {
	eligible := make([]models.MediaItem, 0, len(results))
	for _, item := range results {
		if _, banned := blacklist[models.ItemKey{CatalogID: item.CatalogID, Kind: item.Kind}]; banned {
			continue
		}
		eligible = append(eligible, item)
	}
	if len(eligible) == 0 {
		return models.MediaItem{}, false
	}

	pool := len(eligible)
	if pool > pickPool {
		pool = pickPool
	}
	return eligible[rng.Intn(pool)], true
}
