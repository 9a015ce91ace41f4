package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"mediapick/internal/cache"
	"mediapick/internal/httputil"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultSpacing keeps outgoing calls at or under 10 req/s.
	DefaultSpacing = 100 * time.Millisecond

	retryDelay = 1 * time.Second

	breakerTrip    = 5
	breakerTimeout = 30 * time.Second
)

// ErrUnavailable marks the external catalog as unreachable or persistently
// failing. Callers treat it as a hard stop for the current traversal.
var ErrUnavailable = errors.New("catalog unavailable")

// AnimationGenreID is the catalog's genre id for animation, used to pin
// anime queries.
const AnimationGenreID int64 = 16

// Client talks to the TMDB-shaped catalog API. All calls are admitted
// through a shared rate limiter in submission order, retried once on
// 429/503, and guarded by a circuit breaker that short-circuits while the
// upstream is persistently failing. With a cache attached, lookups are
// read-through under per-class TTLs.
type Client struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[json.RawMessage]
	cache      *cache.Cache
	retryDelay time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithCache(cc *cache.Cache) Option {
	return func(c *Client) {
		c.cache = cc
	}
}

func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithRetryDelay shortens the 429/503 backoff, for tests.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		http:       httputil.NewClient(),
		limiter:    rate.NewLimiter(rate.Every(DefaultSpacing), 1),
		retryDelay: retryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker()
	return c
}

// NewWithBaseURL builds a client pointed at a test server with the rate
// limiter disabled.
func NewWithBaseURL(apiKey, baseURL string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(baseURL),
		WithLimiter(rate.NewLimiter(rate.Inf, 0)),
	}
	return New(apiKey, append(base, opts...)...)
}

func newBreaker() *gobreaker.CircuitBreaker[json.RawMessage] {
	return gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:    "catalog",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("catalog: breaker %s -> %s", from, to)
		},
		IsSuccessful: func(err error) bool {
			// A caller hanging up is not an upstream failure.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

// statusError carries a non-2xx upstream response through the retry policy.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("catalog returned status %d: %s", e.code, e.body)
}

func retryableStatus(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	return se.code == http.StatusTooManyRequests || se.code == http.StatusServiceUnavailable
}

// do performs one rate-limited GET with at most one retry on 429/503,
// then classifies failures as ErrUnavailable.
func (c *Client) do(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	u := c.baseURL + path + "?" + query.Encode()

	data, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return retry.DoWithData(func() (json.RawMessage, error) {
			return c.fetch(ctx, u)
		},
			retry.Attempts(2),
			retry.Delay(c.retryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.RetryIf(retryableStatus),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
		)
	})
	if err == nil {
		return data, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// fetch waits for rate-limit admission and performs a single request.
func (c *Client) fetch(ctx context.Context, u string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer httputil.DrainBody(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: httputil.Truncate(body, 200)}
	}

	return json.RawMessage(body), nil
}

// getJSON fetches path+query and decodes the payload into out, reading
// through the cache when one is attached. Cache content of an unexpected
// shape falls back to a direct call.
func getJSON[T any](ctx context.Context, c *Client, key string, ttl time.Duration, path string, query url.Values, decode func(json.RawMessage) (T, error)) (T, error) {
	fetchDecode := func() (T, error) {
		var zero T
		raw, err := c.do(ctx, path, query)
		if err != nil {
			return zero, err
		}
		out, err := decode(raw)
		if err != nil {
			return zero, fmt.Errorf("decoding %s: %w", path, err)
		}
		return out, nil
	}

	if c.cache == nil {
		return fetchDecode()
	}

	v, err := c.cache.GetOrCompute(key, ttl, func() (any, error) {
		return fetchDecode()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return fetchDecode()
	}
	return out, nil
}

// Ping verifies the API key and connectivity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "/configuration", nil)
	return err
}
