package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mediapick/internal/models"
)

const profileColumns = `user_id, content_types, genres, languages, min_rating, anime_auto_language, complete, created_at, updated_at`

func scanProfile(scanner interface{ Scan(...any) error }) (models.TasteProfile, error) {
	var p models.TasteProfile
	var contentTypes, genres, languages string
	var autoLang, complete int
	err := scanner.Scan(&p.UserID, &contentTypes, &genres, &languages, &p.MinRating,
		&autoLang, &complete, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.AnimeAutoLanguage = autoLang != 0
	p.Complete = complete != 0
	if err := fromJSONColumn(contentTypes, &p.ContentTypes); err != nil {
		return p, err
	}
	if err := fromJSONColumn(genres, &p.Genres); err != nil {
		return p, err
	}
	if err := fromJSONColumn(languages, &p.Languages); err != nil {
		return p, err
	}
	return p, nil
}

// UpsertProfile validates and stores the onboarding profile, marking it
// complete. The stored row is read back into p.
func (s *Store) UpsertProfile(ctx context.Context, p *models.TasteProfile) error {
	p.NormalizeLanguages()
	if err := p.Validate(); err != nil {
		return err
	}

	contentTypes, err := jsonColumn(p.ContentTypes)
	if err != nil {
		return err
	}
	genres, err := jsonColumn(p.Genres)
	if err != nil {
		return err
	}
	languages, err := jsonColumn(p.Languages)
	if err != nil {
		return err
	}
	autoLang := 0
	if p.AnimeAutoLanguage {
		autoLang = 1
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO taste_profiles
		(user_id, content_types, genres, languages, min_rating, anime_auto_language, complete)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(user_id) DO UPDATE SET
			content_types = excluded.content_types,
			genres = excluded.genres,
			languages = excluded.languages,
			min_rating = excluded.min_rating,
			anime_auto_language = excluded.anime_auto_language,
			complete = 1,
			updated_at = CURRENT_TIMESTAMP`,
		p.UserID, contentTypes, genres, languages, p.MinRating, autoLang,
	)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}

	stored, err := s.ProfileByUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// ProfileByUser returns the user's taste profile or models.ErrNotFound.
func (s *Store) ProfileByUser(ctx context.Context, userID string) (*models.TasteProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM taste_profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return &p, nil
}
