package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediapick/internal/models"
)

const weightColumns = `user_id, genre_weights, kind_weights, language_weights, total_likes, total_dislikes, updated_at`

// Learning deltas applied per liked/disliked signal.
const (
	likeDelta    = 5
	dislikeDelta = -3
)

func scanWeights(scanner interface{ Scan(dest ...any) error }) (*models.PreferenceWeights, error) {
	var w models.PreferenceWeights
	var genres, kinds, langs string

	err := scanner.Scan(&w.UserID, &genres, &kinds, &langs, &w.TotalLikes, &w.TotalDislikes, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := fromJSONColumn(genres, &w.GenreWeights); err != nil {
		return nil, fmt.Errorf("decoding genre weights: %w", err)
	}
	if err := fromJSONColumn(kinds, &w.KindWeights); err != nil {
		return nil, fmt.Errorf("decoding kind weights: %w", err)
	}
	if err := fromJSONColumn(langs, &w.LanguageWeights); err != nil {
		return nil, fmt.Errorf("decoding language weights: %w", err)
	}
	return &w, nil
}

// Weights returns the stored preference weights for a user, or
// models.ErrNotFound if no action has been learned from yet.
func (s *Store) Weights(ctx context.Context, userID string) (*models.PreferenceWeights, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+weightColumns+` FROM preference_weights WHERE user_id = ?`, userID)

	w, err := scanWeights(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting weights: %w", err)
	}
	return w, nil
}

// UpdateWeightsOnAction folds a liked/disliked signal into the user's
// weights: +5 per genre/kind/language on a like, -3 on a dislike, clamped to
// [0,100] from a default of 50. Other actions are ignored. The
// read-modify-write runs in one transaction so concurrent updates for the
// same user cannot interleave.
func (s *Store) UpdateWeightsOnAction(ctx context.Context, userID string, action models.Action, sig models.WeightSignals) error {
	var delta int
	switch action {
	case models.ActionLiked:
		delta = likeDelta
	case models.ActionDisliked:
		delta = dislikeDelta
	default:
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+weightColumns+` FROM preference_weights WHERE user_id = ?`, userID)
	w, err := scanWeights(row)
	if errors.Is(err, sql.ErrNoRows) {
		w = &models.PreferenceWeights{UserID: userID}
	} else if err != nil {
		return fmt.Errorf("getting weights: %w", err)
	}

	if w.GenreWeights == nil {
		w.GenreWeights = make(map[int64]int)
	}
	if w.KindWeights == nil {
		w.KindWeights = make(map[models.MediaKind]int)
	}
	if w.LanguageWeights == nil {
		w.LanguageWeights = make(map[string]int)
	}

	for _, id := range sig.GenreIDs {
		cur, ok := w.GenreWeights[id]
		if !ok {
			cur = models.DefaultWeight
		}
		w.GenreWeights[id] = clampWeight(cur + delta)
	}
	if sig.Kind.Valid() {
		cur, ok := w.KindWeights[sig.Kind]
		if !ok {
			cur = models.DefaultWeight
		}
		w.KindWeights[sig.Kind] = clampWeight(cur + delta)
	}
	if sig.Language != "" {
		cur, ok := w.LanguageWeights[sig.Language]
		if !ok {
			cur = models.DefaultWeight
		}
		w.LanguageWeights[sig.Language] = clampWeight(cur + delta)
	}

	if action == models.ActionLiked {
		w.TotalLikes++
	} else {
		w.TotalDislikes++
	}

	genres, err := jsonColumn(w.GenreWeights)
	if err != nil {
		return fmt.Errorf("encoding genre weights: %w", err)
	}
	kinds, err := jsonColumn(w.KindWeights)
	if err != nil {
		return fmt.Errorf("encoding kind weights: %w", err)
	}
	langs, err := jsonColumn(w.LanguageWeights)
	if err != nil {
		return fmt.Errorf("encoding language weights: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO preference_weights
		(user_id, genre_weights, kind_weights, language_weights, total_likes, total_dislikes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			genre_weights = excluded.genre_weights,
			kind_weights = excluded.kind_weights,
			language_weights = excluded.language_weights,
			total_likes = excluded.total_likes,
			total_dislikes = excluded.total_dislikes,
			updated_at = excluded.updated_at`,
		userID, genres, kinds, langs, w.TotalLikes, w.TotalDislikes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting weights: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func clampWeight(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
