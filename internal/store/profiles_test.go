package store

import (
	"context"
	"errors"
	"testing"

	"mediapick/internal/models"
)

func validProfile(userID string) *models.TasteProfile {
	return &models.TasteProfile{
		UserID:            userID,
		ContentTypes:      []models.MediaKind{models.KindMovie, models.KindSeries},
		Genres:            []int64{28, 12, 35},
		Languages:         []string{"en"},
		MinRating:         6,
		AnimeAutoLanguage: true,
	}
}

func TestUpsertAndGetProfile(t *testing.T) {
	s := newTestStoreWithMigrations(t)
	ctx := context.Background()

	p := validProfile("alice")
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if !p.Complete {
		t.Fatal("expected profile to be marked complete")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	got, err := s.ProfileByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ProfileByUser: %v", err)
	}
	if len(got.ContentTypes) != 2 || got.ContentTypes[0] != models.KindMovie {
		t.Fatalf("content types mismatch: %v", got.ContentTypes)
	}
	if len(got.Genres) != 3 || got.Genres[0] != 28 {
		t.Fatalf("genres mismatch: %v", got.Genres)
	}
	if got.MinRating != 6 {
		t.Fatalf("expected min rating 6, got %v", got.MinRating)
	}
	if !got.AnimeAutoLanguage {
		t.Fatal("expected anime auto language to persist")
	}
}

func TestUpsertProfileNormalizesLanguages(t *testing.T) {
	s := newTestStoreWithMigrations(t)
	ctx := context.Background()

	p := validProfile("bob")
	p.Languages = []string{" EN ", "pt-BR", ""}
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	got, err := s.ProfileByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ProfileByUser: %v", err)
	}
	want := []string{"en", "pt"}
	if len(got.Languages) != len(want) {
		t.Fatalf("languages mismatch: %v", got.Languages)
	}
	for i := range want {
		if got.Languages[i] != want[i] {
			t.Fatalf("languages mismatch: got %v, want %v", got.Languages, want)
		}
	}
}

func TestUpsertProfileReplaces(t *testing.T) {
	s := newTestStoreWithMigrations(t)
	ctx := context.Background()

	if err := s.UpsertProfile(ctx, validProfile("carol")); err != nil {
		t.Fatalf("first UpsertProfile: %v", err)
	}

	p := validProfile("carol")
	p.Genres = []int64{18, 80, 9648, 53}
	p.MinRating = 7.5
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("second UpsertProfile: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM taste_profiles WHERE user_id = ?`, "carol").Scan(&count); err != nil {
		t.Fatalf("counting profiles: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 profile row, got %d", count)
	}

	got, err := s.ProfileByUser(ctx, "carol")
	if err != nil {
		t.Fatalf("ProfileByUser: %v", err)
	}
	if len(got.Genres) != 4 || got.MinRating != 7.5 {
		t.Fatalf("update not applied: genres %v, min rating %v", got.Genres, got.MinRating)
	}
}

func TestUpsertProfileValidation(t *testing.T) {
	s := newTestStoreWithMigrations(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*models.TasteProfile)
	}{
		{"no user id", func(p *models.TasteProfile) { p.UserID = "" }},
		{"no content types", func(p *models.TasteProfile) { p.ContentTypes = nil }},
		{"bad content type", func(p *models.TasteProfile) { p.ContentTypes = []models.MediaKind{"podcast"} }},
		{"too few genres", func(p *models.TasteProfile) { p.Genres = []int64{28, 12} }},
		{"no languages", func(p *models.TasteProfile) { p.Languages = nil }},
		{"rating out of range", func(p *models.TasteProfile) { p.MinRating = 10.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProfile("dave")
			tc.mutate(p)
			if err := s.UpsertProfile(ctx, p); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if _, err := s.ProfileByUser(ctx, "dave"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("invalid profiles must not persist, got %v", err)
	}
}

func TestProfileByUserMissing(t *testing.T) {
	s := newTestStoreWithMigrations(t)

	_, err := s.ProfileByUser(context.Background(), "nobody")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected models.ErrNotFound, got %v", err)
	}
}
