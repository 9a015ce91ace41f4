package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mediapick/internal/models"
	"mediapick/internal/recommend"
)

func TestRecommendFiltered(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations",
		`{"mode":"filtered","kind":"movie","genres":[28],"language":"en","min_rating":7}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	rec := decodeBody[recommend.Recommendation](t, w)
	if rec.Attribution.Strategy != "all filters" {
		t.Errorf("expected 'all filters' strategy, got %q", rec.Attribution.Strategy)
	}
	if rec.Item.CatalogID < 101 || rec.Item.CatalogID > 103 {
		t.Errorf("pick outside the fixture page: %d", rec.Item.CatalogID)
	}
	if rec.Item.Kind != models.KindMovie {
		t.Errorf("expected movie, got %q", rec.Item.Kind)
	}
}

func TestRecommendMissingUserHeader(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/recommendations",
		strings.NewReader(`{"mode":"filtered","kind":"movie"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRecommendInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations", `{"mode":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecommendUnknownMode(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations", `{"mode":"psychic"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRecommendFilteredInvalidKind(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations",
		`{"mode":"filtered","kind":"podcast"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecommendSmartWithoutProfile(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations", `{"mode":"smart"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[map[string]string](t, w)
	if !strings.Contains(resp["error"], "taste profile") {
		t.Errorf("error should point at onboarding, got %q", resp["error"])
	}
}

func TestRecommendSmart(t *testing.T) {
	up := &fakeUpstream{}
	srv, st := newTestServer(t, up)
	seedProfile(t, st)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations", `{"mode":"smart"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	rec := decodeBody[recommend.Recommendation](t, w)
	if rec.Item.CatalogID == 0 {
		t.Fatal("expected a picked item")
	}
	for _, p := range up.seen() {
		if strings.HasPrefix(p, "/discover/") && p != "/discover/movie" {
			t.Errorf("profile only lists movies, yet upstream saw %s", p)
		}
	}
}

func TestRecommendNoResult(t *testing.T) {
	up := &fakeUpstream{discover: func(r *http.Request) string {
		return discoverPage(1, 1)
	}}
	srv, st := newTestServer(t, up)
	seedProfile(t, st)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations", `{"mode":"smart"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when every strategy comes back empty, got %d", w.Code)
	}
}

func TestRecommendCatalogDown(t *testing.T) {
	srv, _ := newTestServer(t, &fakeUpstream{status: http.StatusInternalServerError})

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations",
		`{"mode":"filtered","kind":"movie"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRecordAction(t *testing.T) {
	srv, st := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations/action",
		`{"action":"watched","item":{"catalog_id":603,"kind":"movie","title":"The Matrix","rating":8.2},"source":"smart"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	entry, err := st.HistoryEntryByKey(context.Background(), testUser, 603, models.KindMovie)
	if err != nil {
		t.Fatalf("expected a history row: %v", err)
	}
	if entry.Action != models.ActionWatched {
		t.Errorf("expected watched, got %q", entry.Action)
	}
	if entry.Source != models.ModeSmart {
		t.Errorf("expected smart source, got %q", entry.Source)
	}
}

func TestRecordActionInvalidAction(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations/action",
		`{"action":"devoured","item":{"catalog_id":603,"kind":"movie","title":"The Matrix"},"source":"smart"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecordActionMissingItem(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations/action",
		`{"action":"liked","source":"smart"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecordActionInvalidSource(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodPost, "/api/recommendations/action",
		`{"action":"liked","item":{"catalog_id":603,"kind":"movie","title":"The Matrix"},"source":"oracle"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
