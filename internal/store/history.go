package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediapick/internal/models"
)

const historyColumns = `id, user_id, catalog_id, kind, title, action, poster_path, rating, release_date, source, created_at, updated_at`

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func scanHistoryEntry(scanner interface{ Scan(...any) error }) (models.HistoryEntry, error) {
	var e models.HistoryEntry
	err := scanner.Scan(&e.ID, &e.UserID, &e.CatalogID, &e.Kind, &e.Title, &e.Action,
		&e.PosterPath, &e.Rating, &e.ReleaseDate, &e.Source, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// UpsertHistory records the latest action for (user, item, kind). A repeat
// action on the same item replaces the previous one and refreshes
// updated_at; item metadata carries forward when the new entry omits it.
// The stored row is read back into e.
func (s *Store) UpsertHistory(ctx context.Context, e *models.HistoryEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	// Timestamps come from Go for sub-second precision; recent-action
	// ordering depends on it.
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO recommendation_history
		(user_id, catalog_id, kind, title, action, poster_path, rating, release_date, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, catalog_id, kind) DO UPDATE SET
			action = excluded.action,
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE title END,
			poster_path = CASE WHEN excluded.poster_path != '' THEN excluded.poster_path ELSE poster_path END,
			rating = CASE WHEN excluded.rating > 0 THEN excluded.rating ELSE rating END,
			release_date = CASE WHEN excluded.release_date != '' THEN excluded.release_date ELSE release_date END,
			source = CASE WHEN excluded.source != '' THEN excluded.source ELSE source END,
			updated_at = excluded.updated_at`,
		e.UserID, e.CatalogID, e.Kind, e.Title, e.Action, e.PosterPath, e.Rating, e.ReleaseDate, e.Source, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting history: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM recommendation_history
		WHERE user_id = ? AND catalog_id = ? AND kind = ?`,
		e.UserID, e.CatalogID, e.Kind)
	stored, err := scanHistoryEntry(row)
	if err != nil {
		return fmt.Errorf("reading back history: %w", err)
	}
	*e = stored
	return nil
}

// HistoryFilter narrows ListHistory. A zero Action matches all actions.
type HistoryFilter struct {
	Action models.Action
	Limit  int
	Skip   int
}

// ListHistory returns the user's history ordered by most recent action.
func (s *Store) ListHistory(ctx context.Context, userID string, filter HistoryFilter) (*models.PaginatedResult[models.HistoryEntry], error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	where := " WHERE user_id = ?"
	args := []any{userID}
	if filter.Action != "" {
		where += " AND action = ?"
		args = append(args, filter.Action)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM recommendation_history"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting history: %w", err)
	}

	query := `SELECT ` + historyColumns + ` FROM recommendation_history` + where +
		` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, skip)...)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var items []models.HistoryEntry
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResult[models.HistoryEntry]{
		Items:   items,
		Total:   total,
		HasMore: skip+len(items) < total,
	}, nil
}

// Blacklist returns the set of items the user marked never-recommend.
func (s *Store) Blacklist(ctx context.Context, userID string) (map[models.ItemKey]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT catalog_id, kind FROM recommendation_history WHERE user_id = ? AND action = ?`,
		userID, models.ActionBlacklisted)
	if err != nil {
		return nil, fmt.Errorf("loading blacklist: %w", err)
	}
	defer rows.Close()

	set := make(map[models.ItemKey]struct{})
	for rows.Next() {
		var key models.ItemKey
		if err := rows.Scan(&key.CatalogID, &key.Kind); err != nil {
			return nil, err
		}
		set[key] = struct{}{}
	}
	return set, rows.Err()
}

// RecentActionKinds returns the kinds of the user's n most recent actions,
// newest first. Duplicates are preserved.
func (s *Store) RecentActionKinds(ctx context.Context, userID string, n int) ([]models.MediaKind, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind FROM recommendation_history WHERE user_id = ?
		 ORDER BY updated_at DESC, id DESC LIMIT ?`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("loading recent kinds: %w", err)
	}
	defer rows.Close()

	var kinds []models.MediaKind
	for rows.Next() {
		var k models.MediaKind
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, rows.Err()
}

// HistoryStats aggregates the user's history by action.
func (s *Store) HistoryStats(ctx context.Context, userID string) (*models.AggregatedStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM recommendation_history WHERE user_id = ? GROUP BY action`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("aggregating history: %w", err)
	}
	defer rows.Close()

	var stats models.AggregatedStats
	for rows.Next() {
		var action models.Action
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch action {
		case models.ActionWatched:
			stats.Watched = count
		case models.ActionSkipped:
			stats.Skipped = count
		case models.ActionLiked:
			stats.Liked = count
		case models.ActionDisliked:
			stats.Disliked = count
		case models.ActionBlacklisted:
			stats.Blacklisted = count
		}
	}
	return &stats, rows.Err()
}

// HistoryEntryByKey returns one history row or models.ErrNotFound.
func (s *Store) HistoryEntryByKey(ctx context.Context, userID string, catalogID int64, kind models.MediaKind) (*models.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM recommendation_history
		WHERE user_id = ? AND catalog_id = ? AND kind = ?`, userID, catalogID, kind)
	e, err := scanHistoryEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting history entry: %w", err)
	}
	return &e, nil
}

// BackdateHistory shifts a row's updated_at (test helper).
func (s *Store) BackdateHistory(userID string, catalogID int64, kind models.MediaKind, to time.Time) error {
	_, err := s.db.Exec(`UPDATE recommendation_history SET updated_at = ?
		WHERE user_id = ? AND catalog_id = ? AND kind = ?`, to.UTC(), userID, catalogID, kind)
	return err
}
