package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mediapick/internal/catalog"
	"mediapick/internal/models"
	"mediapick/internal/recommend"
)

// recommendTimeout bounds one full cascade walk, which can fan into dozens
// of upstream page fetches behind the shared limiter.
const recommendTimeout = 60 * time.Second

type recommendRequest struct {
	Mode      models.Mode      `json:"mode"`
	Kind      models.MediaKind `json:"kind,omitempty"`
	Genres    []int64          `json:"genres,omitempty"`
	Language  string           `json:"language,omitempty"`
	MinRating float64          `json:"min_rating,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), recommendTimeout)
	defer cancel()

	rec, err := s.engine.Recommend(ctx, userID(r), req.Mode, recommend.Overlay{
		Kind:      req.Kind,
		GenreIDs:  req.Genres,
		Language:  req.Language,
		MinRating: req.MinRating,
	})
	if err != nil {
		writeRecommendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeRecommendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrProfileIncomplete):
		writeError(w, http.StatusBadRequest, "taste profile incomplete, finish onboarding first")
	case errors.Is(err, recommend.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, recommend.ErrNoResult):
		writeError(w, http.StatusNotFound, "no title matches the current filters")
	case errors.Is(err, catalog.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable, try again shortly")
	default:
		log.Printf("recommendation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

type actionRequest struct {
	Action models.Action    `json:"action"`
	Item   models.MediaItem `json:"item"`
	Source models.Mode      `json:"source,omitempty"`
}

func (s *Server) handleRecordAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Action.Valid() {
		writeError(w, http.StatusBadRequest, "action must be watched, skipped, liked, disliked, or blacklisted")
		return
	}
	if req.Item.CatalogID <= 0 || !req.Item.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "item requires a catalog_id and a valid kind")
		return
	}
	if req.Source != "" && !req.Source.Valid() {
		writeError(w, http.StatusBadRequest, "source must be filtered or smart")
		return
	}

	if err := s.engine.RecordAction(r.Context(), userID(r), req.Action, req.Item, req.Source); err != nil {
		log.Printf("recording %s action: %v", req.Action, err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
