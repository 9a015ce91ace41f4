// Package version tracks the running release and polls for newer ones.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"mediapick/internal/httputil"
)

const (
	defaultReleaseAPI = "https://api.github.com/repos/mediapick/mediapick/releases/latest"

	checkInterval = 6 * time.Hour
)

// Info is the version state served to clients.
type Info struct {
	Current         string `json:"version"`
	Latest          string `json:"latest_version,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url,omitempty"`
}

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker compares the running version against the newest published release.
// A current version of "dev" disables polling.
type Checker struct {
	current    string
	releaseAPI string
	client     *http.Client

	mu         sync.RWMutex
	latest     string
	releaseURL string
}

type Option func(*Checker)

// WithReleaseAPI points the checker at a different release feed, for tests.
func WithReleaseAPI(u string) Option {
	return func(c *Checker) { c.releaseAPI = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Checker) { c.client = h }
}

func NewChecker(currentVersion string, opts ...Option) *Checker {
	c := &Checker{
		current:    strings.TrimPrefix(currentVersion, "v"),
		releaseAPI: defaultReleaseAPI,
		client:     httputil.NewClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start checks immediately and then on an interval, blocking until ctx ends.
func (c *Checker) Start(ctx context.Context) {
	c.check(ctx)
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.check(ctx)
		}
	}
}

// Info returns the current version state.
func (c *Checker) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := Info{Current: c.current}
	if c.latest != "" {
		info.Latest = c.latest
		info.ReleaseURL = c.releaseURL
		if c.current != "dev" && compareSemver(c.latest, c.current) > 0 {
			info.UpdateAvailable = true
		}
	}
	return info
}

func (c *Checker) check(ctx context.Context) {
	if c.current == "dev" {
		return
	}

	rel, err := c.fetchLatest(ctx)
	if err != nil {
		log.Printf("version check: %v", err)
		return
	}

	c.mu.Lock()
	c.latest = strings.TrimPrefix(rel.TagName, "v")
	c.releaseURL = rel.HTMLURL
	c.mu.Unlock()
}

func (c *Checker) fetchLatest(ctx context.Context) (*release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releaseAPI, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "MediaPick/"+c.current)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release feed: %w", err)
	}
	defer httputil.DrainBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading release feed: %w", err)
	}

	var rel release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("decoding release feed: %w", err)
	}
	return &rel, nil
}

// compareSemver compares two dotted version strings numerically, returning
// -1, 0, or 1. Pre-release and build suffixes are ignored.
func compareSemver(a, b string) int {
	a = stripPreRelease(a)
	b = stripPreRelease(b)
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")
	for i := 0; i < 3; i++ {
		av, bv := 0, 0
		if i < len(aParts) {
			av, _ = strconv.Atoi(aParts[i])
		}
		if i < len(bParts) {
			bv, _ = strconv.Atoi(bParts[i])
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

func stripPreRelease(v string) string {
	if i := strings.IndexAny(v, "-+"); i != -1 {
		return v[:i]
	}
	return v
}
