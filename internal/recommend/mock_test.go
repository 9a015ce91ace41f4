package recommend

import (
	"context"
	"sync"

	"mediapick/internal/catalog"
	"mediapick/internal/models"
)

// zeroRandom always picks index 0: first eligible item, first sampled
// genre pair, page 1.
type zeroRandom struct{}

func (zeroRandom) Intn(int) int { return 0 }

type discoverCall struct {
	kind   models.MediaKind
	params catalog.DiscoverParams
}

// mockCatalog scripts Discover through respond and records every call.
type mockCatalog struct {
	mu      sync.Mutex
	calls   []discoverCall
	respond func(kind models.MediaKind, p catalog.DiscoverParams) (*catalog.Page, error)

	genres    map[models.MediaKind][]catalog.Genre
	genreErr  error
	genreHits int
}

func (m *mockCatalog) Discover(_ context.Context, kind models.MediaKind, p catalog.DiscoverParams) (*catalog.Page, error) {
	m.mu.Lock()
	m.calls = append(m.calls, discoverCall{kind: kind, params: p})
	m.mu.Unlock()

	if m.respond == nil {
		return &catalog.Page{Page: p.Page, TotalPages: 1}, nil
	}
	return m.respond(kind, p)
}

func (m *mockCatalog) Genres(_ context.Context, kind models.MediaKind) ([]catalog.Genre, error) {
	m.mu.Lock()
	m.genreHits++
	m.mu.Unlock()
	if m.genreErr != nil {
		return nil, m.genreErr
	}
	return m.genres[kind], nil
}

func (m *mockCatalog) recorded() []discoverCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]discoverCall(nil), m.calls...)
}

type mockProfiles struct {
	profile *models.TasteProfile
	err     error
}

func (m *mockProfiles) ProfileByUser(context.Context, string) (*models.TasteProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.profile == nil {
		return nil, models.ErrNotFound
	}
	return m.profile, nil
}

type mockHistory struct {
	mu      sync.Mutex
	entries []models.HistoryEntry

	blacklist map[models.ItemKey]struct{}
	recent    []models.MediaKind

	upsertErr    error
	blacklistErr error
	recentErr    error
}

func (m *mockHistory) UpsertHistory(_ context.Context, e *models.HistoryEntry) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].UserID == e.UserID && m.entries[i].CatalogID == e.CatalogID && m.entries[i].Kind == e.Kind {
			m.entries[i].Action = e.Action
			return nil
		}
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockHistory) Blacklist(context.Context, string) (map[models.ItemKey]struct{}, error) {
	if m.blacklistErr != nil {
		return nil, m.blacklistErr
	}
	if m.blacklist == nil {
		return map[models.ItemKey]struct{}{}, nil
	}
	return m.blacklist, nil
}

func (m *mockHistory) RecentActionKinds(context.Context, string, int) ([]models.MediaKind, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	return m.recent, nil
}

func (m *mockHistory) recorded() []models.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.HistoryEntry(nil), m.entries...)
}

type weightUpdate struct {
	userID  string
	action  models.Action
	signals models.WeightSignals
}

type mockWeights struct {
	mu      sync.Mutex
	weights *models.PreferenceWeights
	err     error

	updates   []weightUpdate
	updateErr error
	gate      chan struct{} // when set, updates block until it closes
}

func (m *mockWeights) Weights(context.Context, string) (*models.PreferenceWeights, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.weights == nil {
		return nil, models.ErrNotFound
	}
	return m.weights, nil
}

func (m *mockWeights) UpdateWeightsOnAction(_ context.Context, userID string, action models.Action, sig models.WeightSignals) error {
	if m.gate != nil {
		<-m.gate
	}
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, weightUpdate{userID: userID, action: action, signals: sig})
	return nil
}

func (m *mockWeights) recorded() []weightUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]weightUpdate(nil), m.updates...)
}
