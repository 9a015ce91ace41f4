package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"mediapick/internal/catalog"
	"mediapick/internal/models"
	"mediapick/internal/recommend"
	"mediapick/internal/store"
)

const testUser = "alice"

// fakeUpstream is a scriptable stand-in for the catalog API. The zero value
// answers every endpoint with small fixed fixtures.
type fakeUpstream struct {
	mu    sync.Mutex
	paths []string

	// status short-circuits every response when non-zero.
	status int
	// discover overrides the discover fixture when set.
	discover func(r *http.Request) string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}

	p := r.URL.Path
	switch {
	case strings.HasPrefix(p, "/discover/"):
		if f.discover != nil {
			io.WriteString(w, f.discover(r))
			return
		}
		io.WriteString(w, discoverPage(1, 1, 101, 102, 103))
	case p == "/genre/movie/list" || p == "/genre/tv/list":
		io.WriteString(w, `{"genres":[{"id":28,"name":"Action"},{"id":12,"name":"Adventure"},{"id":35,"name":"Comedy"}]}`)
	case strings.HasSuffix(p, "/videos"):
		io.WriteString(w, `{"results":[
			{"key":"teaser1","name":"Teaser","site":"YouTube","type":"Teaser","official":false},
			{"key":"abc123","name":"Official Trailer","site":"YouTube","type":"Trailer","official":true}
		]}`)
	case strings.HasSuffix(p, "/watch/providers"):
		io.WriteString(w, `{"results":{
			"US":{"link":"https://watch.example/us","flatrate":[{"provider_name":"Nstream"}]},
			"DE":{"link":"https://watch.example/de","rent":[{"provider_name":"Kaufhaus"}]}
		}}`)
	case p == "/movie/603":
		io.WriteString(w, `{"id":603,"title":"The Matrix","overview":"A hacker learns the truth.",
			"vote_average":8.2,"vote_count":25000,"release_date":"1999-03-31",
			"original_language":"en","genres":[{"id":28,"name":"Action"}],"runtime":136,
			"status":"Released","tagline":"Free your mind."}`)
	case strings.HasPrefix(p, "/tv/"):
		io.WriteString(w, `{"id":1399,"name":"Dragon Keep","overview":"Thrones.",
			"vote_average":8.4,"vote_count":20000,"first_air_date":"2011-04-17",
			"original_language":"en","genres":[{"id":18,"name":"Drama"}],
			"episode_run_time":[55],"number_of_seasons":8,"number_of_episodes":73,
			"status":"Ended"}`)
	case p == "/configuration":
		io.WriteString(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeUpstream) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func discoverPage(page, totalPages int, ids ...int64) string {
	results := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		results = append(results, map[string]any{
			"id":                id,
			"title":             fmt.Sprintf("Item %d", id),
			"name":              fmt.Sprintf("Item %d", id),
			"vote_average":      7.5,
			"vote_count":        500,
			"genre_ids":         []int64{28},
			"original_language": "en",
			"release_date":      "2020-01-01",
			"first_air_date":    "2020-01-01",
		})
	}
	b, _ := json.Marshal(map[string]any{
		"page":          page,
		"total_pages":   totalPages,
		"total_results": len(ids),
		"results":       results,
	})
	return string(b)
}

func newTestServer(t *testing.T, up http.Handler, opts ...Option) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	_, f, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(f), "..", "..", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations dir: %v", err)
	}
	if err := st.Migrate(dir); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if up == nil {
		up = &fakeUpstream{}
	}
	upstream := httptest.NewServer(up)
	t.Cleanup(upstream.Close)

	cat := catalog.NewWithBaseURL("test-key", upstream.URL)
	eng := recommend.NewEngine(cat, st, st, st, recommend.WithRandom(recommend.NewSeededRandom(1)))
	t.Cleanup(eng.Close)

	return NewServer(st, eng, cat, opts...), st
}

// doRequest performs an authenticated request against the server.
func doRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set(UserHeader, testUser)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func seedProfile(t *testing.T, st *store.Store) {
	t.Helper()
	p := &models.TasteProfile{
		UserID:       testUser,
		ContentTypes: []models.MediaKind{models.KindMovie},
		Genres:       []int64{28, 12, 35},
		Languages:    []string{"en"},
		MinRating:    6,
	}
	if err := st.UpsertProfile(context.Background(), p); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}
