package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"mediapick/internal/models"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.ProfileByUser(r.Context(), userID(r))
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no taste profile yet")
		return
	}
	if err != nil {
		log.Printf("loading profile: %v", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.TasteProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile.UserID = userID(r)
	profile.NormalizeLanguages()
	if err := profile.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpsertProfile(r.Context(), &profile); err != nil {
		log.Printf("saving profile for %s: %v", profile.UserID, err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
