package server

import (
	"log"
	"net/http"
	"strconv"

	"mediapick/internal/models"
	"mediapick/internal/store"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	var filter store.HistoryFilter

	if a := r.URL.Query().Get("action"); a != "" {
		action := models.Action(a)
		if !action.Valid() {
			writeError(w, http.StatusBadRequest, "invalid action filter")
			return
		}
		filter.Action = action
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid skip")
			return
		}
		filter.Skip = n
	}

	result, err := s.store.ListHistory(r.Context(), userID(r), filter)
	if err != nil {
		log.Printf("listing history: %v", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.HistoryStats(r.Context(), userID(r))
	if err != nil {
		log.Printf("history stats: %v", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
