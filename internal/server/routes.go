package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(limitBody)
		r.Use(jsonContentType)
		r.Use(corsMiddleware(s.corsOrigin))

		r.Get("/version", s.handleVersion)
		r.Get("/genres/{kind}", s.handleGenres)
		r.Get("/media/{kind}/{id}", s.handleMediaDetails)
		r.Get("/media/{kind}/{id}/providers", s.handleMediaProviders)

		r.Group(func(ur chi.Router) {
			ur.Use(requireUser)
			ur.Post("/recommendations", s.handleRecommend)
			ur.Post("/recommendations/action", s.handleRecordAction)
			ur.Get("/profile", s.handleGetProfile)
			ur.Put("/profile", s.handleUpdateProfile)
			ur.Get("/history", s.handleListHistory)
			ur.Get("/history/stats", s.handleHistoryStats)
			ur.Get("/weights", s.handleWeights)
			ur.Get("/stats", s.handleStats)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
