package server

import (
	"errors"
	"log"
	"net/http"

	"mediapick/internal/models"
)

func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	weights, err := s.store.Weights(r.Context(), uid)
	if errors.Is(err, models.ErrNotFound) {
		// Nothing learned yet; every facet sits at the default.
		writeJSON(w, http.StatusOK, &models.PreferenceWeights{
			UserID:          uid,
			GenreWeights:    map[int64]int{},
			KindWeights:     map[models.MediaKind]int{},
			LanguageWeights: map[string]int{},
		})
		return
	}
	if err != nil {
		log.Printf("loading weights: %v", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, weights)
}
