package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mediapick/internal/cache"
	"mediapick/internal/catalog"
	"mediapick/internal/geoip"
	"mediapick/internal/recommend"
	"mediapick/internal/store"
	"mediapick/internal/version"
)

type Server struct {
	router  chi.Router
	store   *store.Store
	engine  *recommend.Engine
	catalog *catalog.Client

	cache      *cache.Cache
	geo        *geoip.Resolver
	version    *version.Checker
	corsOrigin string
}

func NewServer(st *store.Store, eng *recommend.Engine, cat *catalog.Client, opts ...Option) *Server {
	srv := &Server{
		router:  chi.NewRouter(),
		store:   st,
		engine:  eng,
		catalog: cat,
	}
	for _, o := range opts {
		o(srv)
	}
	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.routes()
	return srv
}

type Option func(*Server)

func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

func WithCache(c *cache.Cache) Option {
	return func(s *Server) { s.cache = c }
}

func WithGeoResolver(r *geoip.Resolver) Option {
	return func(s *Server) { s.geo = r }
}

func WithVersionChecker(v *version.Checker) Option {
	return func(s *Server) { s.version = v }
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
