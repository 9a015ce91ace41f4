package server

import (
	"log"
	"net/http"

	"mediapick/internal/cache"
	"mediapick/internal/models"
)

type statsResponse struct {
	History *models.AggregatedStats `json:"history"`
	Cache   *cache.Stats            `json:"cache,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.HistoryStats(r.Context(), userID(r))
	if err != nil {
		log.Printf("stats: %v", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}

	resp := statsResponse{History: history}
	if s.cache != nil {
		cs := s.cache.Stats()
		resp.Cache = &cs
	}
	writeJSON(w, http.StatusOK, resp)
}
